package referral

import (
	"context"
	"fmt"

	"a1hub/internal/a1hub"
	"a1hub/internal/wallet"
)

// RetrySweeper re-credits journaled payouts whose wallet credit failed at
// distribution or milestone time. Each row is claimed by flipping its status
// to retrying before crediting, so overlapping sweeps cannot double-pay; the
// flip to completed only happens after the credit lands, and a fresh failure
// flips the row back to retry_pending. A process that dies between claim and
// credit leaves the row in retrying, where the store surfaces it again once
// it has sat long enough to be presumed crashed.
type RetrySweeper struct {
	commissions CommissionStore
	rewards     RewardStore
	ledger      wallet.Ledger
}

func NewRetrySweeper(commissions CommissionStore, rewards RewardStore, ledger wallet.Ledger) *RetrySweeper {
	return &RetrySweeper{commissions: commissions, rewards: rewards, ledger: ledger}
}

// Sweep settles up to limit pending commissions and limit pending reward
// claims. Returns how many credits landed.
func (s *RetrySweeper) Sweep(ctx context.Context, limit int) (int, error) {
	credited := 0

	pending, err := s.commissions.PendingRetries(ctx, limit)
	if err != nil {
		return credited, fmt.Errorf("list pending commissions: %w", err)
	}
	for i := range pending {
		entry := pending[i]
		claimed, err := s.commissions.MarkStatus(ctx, &entry, entry.Status, a1hub.PayoutRetrying)
		if err != nil {
			return credited, fmt.Errorf("claim pending commission: %w", err)
		}
		if !claimed {
			continue
		}
		if err := s.ledger.Credit(ctx, entry.MemberId, entry.Amount); err != nil {
			fmt.Printf("[[Retry]] Commission credit still failing for %s payment %s: %v\n",
				entry.MemberId, entry.PaymentId, err)
			s.commissions.MarkStatus(ctx, &entry, a1hub.PayoutRetrying, a1hub.PayoutRetryPending)
			continue
		}
		if _, err := s.commissions.MarkStatus(ctx, &entry, a1hub.PayoutRetrying, a1hub.PayoutCompleted); err != nil {
			return credited, fmt.Errorf("settle commission: %w", err)
		}
		credited++
	}

	claims, err := s.rewards.PendingClaimRetries(ctx, limit)
	if err != nil {
		return credited, fmt.Errorf("list pending rewards: %w", err)
	}
	for i := range claims {
		claim := claims[i]
		claimedRow, err := s.rewards.MarkClaimStatus(ctx, &claim, claim.Status, a1hub.PayoutRetrying)
		if err != nil {
			return credited, fmt.Errorf("claim pending reward: %w", err)
		}
		if !claimedRow {
			continue
		}
		if err := s.ledger.Credit(ctx, claim.MemberId, claim.Amount); err != nil {
			fmt.Printf("[[Retry]] Reward credit still failing for %s threshold %d: %v\n",
				claim.MemberId, claim.Threshold, err)
			s.rewards.MarkClaimStatus(ctx, &claim, a1hub.PayoutRetrying, a1hub.PayoutRetryPending)
			continue
		}
		if _, err := s.rewards.MarkClaimStatus(ctx, &claim, a1hub.PayoutRetrying, a1hub.PayoutCompleted); err != nil {
			return credited, fmt.Errorf("settle reward: %w", err)
		}
		credited++
	}
	return credited, nil
}
