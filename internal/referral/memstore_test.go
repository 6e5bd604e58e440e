package referral

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"a1hub/internal/a1hub"
	"a1hub/internal/wallet"

	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the gorm Store. It reproduces the
// conditional-write semantics the pipeline relies on (insert-if-absent,
// compare-and-set status flips) under a mutex, so the concurrency tests
// exercise the same claim races the database resolves in production.
type memStore struct {
	mu          sync.Mutex
	members     map[string]*a1hub.Member
	edges       []a1hub.TreeEdge
	edgeSet     map[string]bool
	commissions map[string]*a1hub.Commission
	rewards     map[string]*a1hub.Reward
	payments    map[string]*a1hub.Payment
}

var (
	_ MemberStore     = (*memStore)(nil)
	_ TreeStore       = (*memStore)(nil)
	_ CommissionStore = (*memStore)(nil)
	_ RewardStore     = (*memStore)(nil)
	_ ActivationStore = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		members:     map[string]*a1hub.Member{},
		edgeSet:     map[string]bool{},
		commissions: map[string]*a1hub.Commission{},
		rewards:     map[string]*a1hub.Reward{},
		payments:    map[string]*a1hub.Payment{},
	}
}

func (s *memStore) addMember(id, sponsorId string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = &a1hub.Member{Id: id, SponsorId: sponsorId, IsActive: active}
}

// seedChain creates members m1 sponsored by m2 sponsored by m3 and so on,
// with the closure rows already materialized, and returns the member ids.
func (s *memStore) seedChain(n int, maxDepth int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("m%d", i+1)
		sponsor := ""
		if i < n-1 {
			sponsor = fmt.Sprintf("m%d", i+2)
		}
		s.addMember(ids[i], sponsor, true)
	}
	for i := 0; i < n; i++ {
		var edges []a1hub.TreeEdge
		for level := 1; level <= maxDepth && i+level < n; level++ {
			edges = append(edges, a1hub.TreeEdge{
				MemberId:   ids[i],
				AncestorId: ids[i+level],
				Level:      uint(level),
			})
		}
		s.InsertEdges(context.Background(), edges)
	}
	return ids
}

func (s *memStore) Get(ctx context.Context, id string) (*a1hub.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) EdgesFor(ctx context.Context, memberId string) ([]a1hub.TreeEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []a1hub.TreeEdge
	for _, e := range s.edges {
		if e.MemberId == memberId {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *memStore) InsertEdges(ctx context.Context, edges []a1hub.TreeEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		key := e.MemberId + "|" + e.AncestorId
		if s.edgeSet[key] {
			continue
		}
		s.edgeSet[key] = true
		s.edges = append(s.edges, e)
	}
	return nil
}

func (s *memStore) CountAtLevel(ctx context.Context, ancestorId string, level uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, e := range s.edges {
		if e.AncestorId == ancestorId && e.Level == level {
			count++
		}
	}
	return count, nil
}

func commissionKey(c *a1hub.Commission) string {
	return c.MemberId + "|" + c.SourceId + "|" + c.PaymentId
}

func (s *memStore) ForPayment(ctx context.Context, sourceId, paymentId string) ([]a1hub.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []a1hub.Commission
	for _, c := range s.commissions {
		if c.SourceId == sourceId && c.PaymentId == paymentId {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *memStore) Insert(ctx context.Context, c *a1hub.Commission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := commissionKey(c)
	if _, ok := s.commissions[key]; ok {
		return false, nil
	}
	cp := *c
	s.commissions[key] = &cp
	return true, nil
}

func (s *memStore) MarkStatus(ctx context.Context, c *a1hub.Commission, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.commissions[commissionKey(c)]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) PendingRetries(ctx context.Context, limit int) ([]a1hub.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stale := time.Now().Add(-retryStaleAfter)
	var keys []string
	for key, c := range s.commissions {
		if c.Status == a1hub.PayoutRetryPending ||
			(c.Status == a1hub.PayoutRetrying && c.UpdatedAt.Before(stale)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	var out []a1hub.Commission
	for _, key := range keys {
		if len(out) == limit {
			break
		}
		out = append(out, *s.commissions[key])
	}
	return out, nil
}

func rewardKey(r *a1hub.Reward) string {
	return fmt.Sprintf("%s|%d|%d", r.MemberId, r.Level, r.Threshold)
}

func (s *memStore) Claimed(ctx context.Context, memberId string, level uint) (map[uint]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed := map[uint]bool{}
	for _, r := range s.rewards {
		if r.MemberId == memberId && r.Level == level {
			claimed[r.Threshold] = true
		}
	}
	return claimed, nil
}

func (s *memStore) InsertClaim(ctx context.Context, r *a1hub.Reward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rewardKey(r)
	if _, ok := s.rewards[key]; ok {
		return false, nil
	}
	cp := *r
	s.rewards[key] = &cp
	return true, nil
}

func (s *memStore) MarkClaimStatus(ctx context.Context, r *a1hub.Reward, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rewards[rewardKey(r)]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) PendingClaimRetries(ctx context.Context, limit int) ([]a1hub.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stale := time.Now().Add(-retryStaleAfter)
	var keys []string
	for key, r := range s.rewards {
		if r.Status == a1hub.PayoutRetryPending ||
			(r.Status == a1hub.PayoutRetrying && r.UpdatedAt.Before(stale)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	var out []a1hub.Reward
	for _, key := range keys {
		if len(out) == limit {
			break
		}
		out = append(out, *s.rewards[key])
	}
	return out, nil
}

func (s *memStore) RecordPayment(ctx context.Context, p *a1hub.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.Id]; ok {
		return nil
	}
	cp := *p
	s.payments[p.Id] = &cp
	return nil
}

func (s *memStore) ClaimWelcomeBonus(ctx context.Context, paymentId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentId]
	if !ok || p.BonusPaid {
		return false, nil
	}
	p.BonusPaid = true
	return true, nil
}

func (s *memStore) ReleaseWelcomeBonus(ctx context.Context, paymentId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[paymentId]; ok {
		p.BonusPaid = false
	}
	return nil
}

func (s *memStore) ActivateMember(ctx context.Context, memberId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberId]
	if !ok || m.IsActive {
		return false, nil
	}
	m.IsActive = true
	return true, nil
}

func (s *memStore) AssignRefCode(ctx context.Context, memberId, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.RefCode != nil && *m.RefCode == code {
			return false, gorm.ErrDuplicatedKey
		}
	}
	m, ok := s.members[memberId]
	if !ok || m.RefCode != nil {
		return false, nil
	}
	m.RefCode = &code
	return true, nil
}

func (s *memStore) RefCodeTaken(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.RefCode != nil && *m.RefCode == code {
			return true, nil
		}
	}
	return false, nil
}

// memLedger tracks balances and credit counts in memory. Credits to members
// listed in failFor are rejected, which is how the tests simulate a wallet
// outage for one beneficiary.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]float64
	credits  map[string]int
	failFor  map[string]bool
}

var _ wallet.Ledger = (*memLedger)(nil)

func newMemLedger() *memLedger {
	return &memLedger{
		balances: map[string]float64{},
		credits:  map[string]int{},
		failFor:  map[string]bool{},
	}
}

func (l *memLedger) Credit(ctx context.Context, memberId string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failFor[memberId] {
		return fmt.Errorf("simulated credit failure for %s", memberId)
	}
	l.balances[memberId] += amount
	l.credits[memberId]++
	return nil
}

func (l *memLedger) Debit(ctx context.Context, memberId string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[memberId] < amount {
		return wallet.ErrInsufficientFunds
	}
	l.balances[memberId] -= amount
	return nil
}

func (l *memLedger) Balance(ctx context.Context, memberId string) (float64, float64, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[memberId], 0, 0, nil
}

func (l *memLedger) balance(memberId string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[memberId]
}

func (l *memLedger) creditCount(memberId string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits[memberId]
}

func (l *memLedger) setFailing(memberId string, failing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failFor[memberId] = failing
}

// stripTimes zeroes the store-managed timestamps so journal rows can be
// compared field by field across reads.
func stripTimes(entries []a1hub.Commission) []a1hub.Commission {
	out := make([]a1hub.Commission, len(entries))
	for i, e := range entries {
		e.CreatedAt, e.UpdatedAt = time.Time{}, time.Time{}
		out[i] = e
	}
	return out
}
