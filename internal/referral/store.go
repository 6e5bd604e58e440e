// Package referral implements the activation reward pipeline: closure-table
// tree extension, level-scaled commission distribution and one-time team
// milestone rewards.
package referral

import (
	"context"
	"time"

	"a1hub/internal/a1hub"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A payout claimed by a sweep that has not settled within this window is
// assumed crashed mid-credit and becomes claimable again.
const retryStaleAfter = 15 * time.Minute

// MemberStore is the read-only view of the members table the pipeline needs.
type MemberStore interface {
	// Get returns nil, nil when the member does not exist.
	Get(ctx context.Context, id string) (*a1hub.Member, error)
}

// TreeStore persists the materialized referral closure. Append-only.
type TreeStore interface {
	// EdgesFor returns a member's ancestor edges ordered by level.
	EdgesFor(ctx context.Context, memberId string) ([]a1hub.TreeEdge, error)
	// InsertEdges appends edges, silently skipping rows that already exist.
	InsertEdges(ctx context.Context, edges []a1hub.TreeEdge) error
	// CountAtLevel counts a member's descendants at one exact level.
	CountAtLevel(ctx context.Context, ancestorId string, level uint) (int64, error)
}

// CommissionStore journals upline payouts.
type CommissionStore interface {
	ForPayment(ctx context.Context, sourceId, paymentId string) ([]a1hub.Commission, error)
	// Insert journals a payout if absent; false means the row already existed.
	Insert(ctx context.Context, c *a1hub.Commission) (bool, error)
	// MarkStatus flips a journaled payout from one status to another; false
	// means another worker got there first.
	MarkStatus(ctx context.Context, c *a1hub.Commission, from, to string) (bool, error)
	PendingRetries(ctx context.Context, limit int) ([]a1hub.Commission, error)
}

// RewardStore journals one-time milestone claims.
type RewardStore interface {
	Claimed(ctx context.Context, memberId string, level uint) (map[uint]bool, error)
	// InsertClaim claims a milestone if absent; false means already claimed.
	InsertClaim(ctx context.Context, r *a1hub.Reward) (bool, error)
	MarkClaimStatus(ctx context.Context, r *a1hub.Reward, from, to string) (bool, error)
	PendingClaimRetries(ctx context.Context, limit int) ([]a1hub.Reward, error)
}

// ActivationStore covers the member/payment bookkeeping an accepted
// activation event performs before the reward stages run. Every operation is
// a one-shot guarded by a conditional write, safe under redelivery.
type ActivationStore interface {
	// RecordPayment mirrors the confirmed gateway payment, once.
	RecordPayment(ctx context.Context, p *a1hub.Payment) error
	// ClaimWelcomeBonus returns true exactly once per payment id.
	ClaimWelcomeBonus(ctx context.Context, paymentId string) (bool, error)
	// ReleaseWelcomeBonus undoes a claim whose credit failed.
	ReleaseWelcomeBonus(ctx context.Context, paymentId string) error
	// ActivateMember flips is_active false -> true; false when already active.
	ActivateMember(ctx context.Context, memberId string) (bool, error)
	// AssignRefCode sets the code only when the member has none yet. Losing
	// the unique index race to a concurrent activation surfaces as
	// gorm.ErrDuplicatedKey.
	AssignRefCode(ctx context.Context, memberId, code string) (bool, error)
	RefCodeTaken(ctx context.Context, code string) (bool, error)
}

// Store is the gorm implementation of all pipeline stores.
type Store struct {
	Db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Db: db}
}

func (s *Store) Get(ctx context.Context, id string) (*a1hub.Member, error) {
	var member a1hub.Member
	res := s.Db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&member)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &member, nil
}

func (s *Store) EdgesFor(ctx context.Context, memberId string) ([]a1hub.TreeEdge, error) {
	var edges []a1hub.TreeEdge
	res := s.Db.WithContext(ctx).
		Where("member_id = ?", memberId).
		Order("level ASC").
		Find(&edges)
	return edges, res.Error
}

func (s *Store) InsertEdges(ctx context.Context, edges []a1hub.TreeEdge) error {
	if len(edges) == 0 {
		return nil
	}
	return s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edges).Error
}

func (s *Store) CountAtLevel(ctx context.Context, ancestorId string, level uint) (int64, error) {
	var count int64
	res := s.Db.WithContext(ctx).Model(&a1hub.TreeEdge{}).
		Where("ancestor_id = ? AND level = ?", ancestorId, level).
		Count(&count)
	return count, res.Error
}

func (s *Store) ForPayment(ctx context.Context, sourceId, paymentId string) ([]a1hub.Commission, error) {
	var entries []a1hub.Commission
	res := s.Db.WithContext(ctx).
		Where("source_id = ? AND payment_id = ?", sourceId, paymentId).
		Order("level ASC").
		Find(&entries)
	return entries, res.Error
}

func (s *Store) Insert(ctx context.Context, c *a1hub.Commission) (bool, error) {
	res := s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkStatus(ctx context.Context, c *a1hub.Commission, from, to string) (bool, error) {
	res := s.Db.WithContext(ctx).Model(&a1hub.Commission{}).
		Where("member_id = ? AND source_id = ? AND payment_id = ? AND status = ?",
			c.MemberId, c.SourceId, c.PaymentId, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) PendingRetries(ctx context.Context, limit int) ([]a1hub.Commission, error) {
	var entries []a1hub.Commission
	res := s.Db.WithContext(ctx).
		Where("status = ? OR (status = ? AND updated_at < ?)",
			a1hub.PayoutRetryPending, a1hub.PayoutRetrying, time.Now().Add(-retryStaleAfter)).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries)
	return entries, res.Error
}

func (s *Store) Claimed(ctx context.Context, memberId string, level uint) (map[uint]bool, error) {
	var claims []a1hub.Reward
	res := s.Db.WithContext(ctx).
		Where("member_id = ? AND level = ?", memberId, level).
		Find(&claims)
	if res.Error != nil {
		return nil, res.Error
	}
	claimed := make(map[uint]bool, len(claims))
	for _, r := range claims {
		claimed[r.Threshold] = true
	}
	return claimed, nil
}

func (s *Store) InsertClaim(ctx context.Context, r *a1hub.Reward) (bool, error) {
	res := s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(r)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkClaimStatus flips a reward claim between payout states.
func (s *Store) MarkClaimStatus(ctx context.Context, r *a1hub.Reward, from, to string) (bool, error) {
	res := s.Db.WithContext(ctx).Model(&a1hub.Reward{}).
		Where("member_id = ? AND level = ? AND threshold = ? AND status = ?",
			r.MemberId, r.Level, r.Threshold, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) PendingClaimRetries(ctx context.Context, limit int) ([]a1hub.Reward, error) {
	var claims []a1hub.Reward
	res := s.Db.WithContext(ctx).
		Where("status = ? OR (status = ? AND updated_at < ?)",
			a1hub.PayoutRetryPending, a1hub.PayoutRetrying, time.Now().Add(-retryStaleAfter)).
		Order("created_at ASC").
		Limit(limit).
		Find(&claims)
	return claims, res.Error
}

func (s *Store) RecordPayment(ctx context.Context, p *a1hub.Payment) error {
	return s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
}

func (s *Store) ClaimWelcomeBonus(ctx context.Context, paymentId string) (bool, error) {
	res := s.Db.WithContext(ctx).Model(&a1hub.Payment{}).
		Where("id = ? AND bonus_paid = ?", paymentId, false).
		Update("bonus_paid", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ReleaseWelcomeBonus(ctx context.Context, paymentId string) error {
	return s.Db.WithContext(ctx).Model(&a1hub.Payment{}).
		Where("id = ?", paymentId).
		Update("bonus_paid", false).Error
}

func (s *Store) ActivateMember(ctx context.Context, memberId string) (bool, error) {
	res := s.Db.WithContext(ctx).Model(&a1hub.Member{}).
		Where("id = ? AND is_active = ?", memberId, false).
		Update("is_active", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) AssignRefCode(ctx context.Context, memberId, code string) (bool, error) {
	res := s.Db.WithContext(ctx).Model(&a1hub.Member{}).
		Where("id = ? AND ref_code IS NULL", memberId).
		Update("ref_code", code)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) RefCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	res := s.Db.WithContext(ctx).Model(&a1hub.Member{}).
		Where("ref_code = ?", code).
		Count(&count)
	return count > 0, res.Error
}
