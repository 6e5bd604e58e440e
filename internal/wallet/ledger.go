// Package wallet holds the ledger contract the referral pipeline credits
// against. Every mutation is a single UPDATE with an in-database increment:
// concurrent payouts to one popular sponsor must never read-modify-write a
// balance.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"a1hub/internal/a1hub"

	"gorm.io/gorm"
)

var ErrInsufficientFunds = errors.New("insufficient wallet balance")

type Ledger interface {
	// Credit adds amount to the member's balance and lifetime earnings.
	Credit(ctx context.Context, memberId string, amount float64) error
	// Debit removes amount, guarded against overdraft, and counts it as withdrawn.
	Debit(ctx context.Context, memberId string, amount float64) error
	// Balance reads the current balance and lifetime totals.
	Balance(ctx context.Context, memberId string) (balance, earned, withdrawn float64, err error)
}

type GormLedger struct {
	Db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{Db: db}
}

func (l *GormLedger) Credit(ctx context.Context, memberId string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %v", amount)
	}
	res := l.Db.WithContext(ctx).Model(&a1hub.Member{}).
		Where("id = ?", memberId).
		Updates(map[string]interface{}{
			"wallet_balance": gorm.Expr("wallet_balance + ?", amount),
			"total_earned":   gorm.Expr("total_earned + ?", amount),
		})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", a1hub.ErrLedgerCredit, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credit member %s: %w", memberId, gorm.ErrRecordNotFound)
	}
	return nil
}

func (l *GormLedger) Debit(ctx context.Context, memberId string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %v", amount)
	}
	res := l.Db.WithContext(ctx).Model(&a1hub.Member{}).
		Where("id = ? AND wallet_balance >= ?", memberId, amount).
		Updates(map[string]interface{}{
			"wallet_balance":  gorm.Expr("wallet_balance - ?", amount),
			"total_withdrawn": gorm.Expr("total_withdrawn + ?", amount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("debit member %s: %w", memberId, ErrInsufficientFunds)
	}
	return nil
}

func (l *GormLedger) Balance(ctx context.Context, memberId string) (float64, float64, float64, error) {
	var member a1hub.Member
	res := l.Db.WithContext(ctx).Where("id = ?", memberId).First(&member)
	if res.Error != nil {
		return 0, 0, 0, res.Error
	}
	return member.WalletBalance, member.TotalEarned, member.TotalWithdrawn, nil
}
