package referral

import (
	"context"
	"fmt"

	"a1hub/internal/a1hub"
	"a1hub/internal/wallet"
)

// Distributor pays each eligible ancestor of a newly activated member a
// level-scaled share of the joining fee, exactly once per payment.
type Distributor struct {
	members     MemberStore
	tree        TreeStore
	commissions CommissionStore
	ledger      wallet.Ledger
	plan        *a1hub.CommissionPlan
	notify      func(msg string) // Optional ops channel, nil safe
}

func NewDistributor(members MemberStore, tree TreeStore, commissions CommissionStore, ledger wallet.Ledger, plan *a1hub.CommissionPlan) *Distributor {
	return &Distributor{
		members:     members,
		tree:        tree,
		commissions: commissions,
		ledger:      ledger,
		plan:        plan,
	}
}

func (d *Distributor) WithNotify(notify func(msg string)) *Distributor {
	d.notify = notify
	return d
}

// Distribute walks the source member's upline and credits each active
// ancestor per the plan. The whole upline is walked on every call: levels
// already journaled by an earlier run are carried over as-is, levels the
// earlier run never reached are paid now. A run that finds nothing left to
// journal reports the journal unchanged with a1hub.ErrDuplicatePayment;
// callers treat that as success.
//
// Each payout is journaled before it is credited, so a concurrent duplicate
// delivery of the same payment can never double-credit: whichever worker
// inserts the journal row owns the credit. A failed credit stays journaled as
// retry_pending and is picked up by the retry sweep; it never blocks the
// remaining ancestors.
func (d *Distributor) Distribute(ctx context.Context, sourceId, paymentId string, fee float64) ([]a1hub.Commission, error) {
	if fee <= 0 {
		return nil, fmt.Errorf("fee must be positive, got %v", fee)
	}
	existing, err := d.commissions.ForPayment(ctx, sourceId, paymentId)
	if err != nil {
		return nil, fmt.Errorf("check payment %s: %w", paymentId, err)
	}
	journaled := make(map[string]a1hub.Commission, len(existing))
	for _, c := range existing {
		journaled[c.MemberId] = c
	}

	edges, err := d.tree.EdgesFor(ctx, sourceId)
	if err != nil {
		return nil, fmt.Errorf("read upline for %s: %w", sourceId, err)
	}
	if len(edges) == 0 {
		// Root member with no sponsors. Nothing owed.
		return nil, nil
	}

	var entries []a1hub.Commission
	wroteNew := false
	for _, edge := range edges {
		if edge.Level > uint(d.plan.MaxCommissionLevel) {
			break
		}
		if row, ok := journaled[edge.AncestorId]; ok {
			// Paid or at least journaled by an earlier run; a still pending
			// row belongs to the retry sweep now.
			entries = append(entries, row)
			continue
		}
		ancestor, err := d.members.Get(ctx, edge.AncestorId)
		if err != nil {
			return entries, fmt.Errorf("load ancestor %s: %w", edge.AncestorId, err)
		}
		if ancestor == nil || !ancestor.IsActive {
			// Inactive accounts accrue no commission. Policy, not an error.
			continue
		}
		amount := d.plan.Payout(edge.Level, fee)
		if amount <= 0 {
			continue
		}
		entry := a1hub.Commission{
			MemberId:  edge.AncestorId,
			SourceId:  sourceId,
			PaymentId: paymentId,
			Level:     edge.Level,
			Amount:    amount,
			Status:    a1hub.PayoutRetryPending,
		}
		inserted, err := d.commissions.Insert(ctx, &entry)
		if err != nil {
			return entries, fmt.Errorf("journal commission for %s: %w", edge.AncestorId, err)
		}
		if !inserted {
			// A concurrent delivery already owns this payout.
			continue
		}
		wroteNew = true
		if err := d.ledger.Credit(ctx, edge.AncestorId, amount); err != nil {
			fmt.Printf("[[Commission]] Credit failed for %s level %d payment %s: %v\n",
				edge.AncestorId, edge.Level, paymentId, err)
			if d.notify != nil {
				d.notify(fmt.Sprintf("COMMISSION CREDIT FAILED\nMember: %s\nLevel: %d\nPayment: %s\nAmount: %s",
					edge.AncestorId, edge.Level, paymentId,
					a1hub.EscapeMarkdownV2(fmt.Sprintf("%.2f", amount))))
			}
			entries = append(entries, entry)
			continue
		}
		if _, err := d.commissions.MarkStatus(ctx, &entry, a1hub.PayoutRetryPending, a1hub.PayoutCompleted); err != nil {
			return entries, fmt.Errorf("mark commission for %s: %w", edge.AncestorId, err)
		}
		entry.Status = a1hub.PayoutCompleted
		fmt.Printf("[[Commission]] Level %d -> %.2f to %s\n", edge.Level, amount, edge.AncestorId)
		entries = append(entries, entry)
	}
	if !wroteNew && len(existing) > 0 {
		return entries, a1hub.ErrDuplicatePayment
	}
	return entries, nil
}
