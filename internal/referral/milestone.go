package referral

import (
	"context"
	"fmt"

	"a1hub/internal/a1hub"
	"a1hub/internal/wallet"
)

// MilestoneEngine grants one-time rewards when a member's descendant count at
// a level crosses configured thresholds. It is re-invoked for every touched
// ancestor after each distribution; the claim row's composite key keeps every
// milestone a one-shot no matter how often or how concurrently it runs.
type MilestoneEngine struct {
	tree    TreeStore
	rewards RewardStore
	ledger  wallet.Ledger
	plan    *a1hub.CommissionPlan
	notify  func(msg string)
}

func NewMilestoneEngine(tree TreeStore, rewards RewardStore, ledger wallet.Ledger, plan *a1hub.CommissionPlan) *MilestoneEngine {
	return &MilestoneEngine{tree: tree, rewards: rewards, ledger: ledger, plan: plan}
}

func (m *MilestoneEngine) WithNotify(notify func(msg string)) *MilestoneEngine {
	m.notify = notify
	return m
}

// Evaluate checks every tracked level's team size against the plan's
// threshold ladder. Thresholds are walked ascending so a count jumping across
// several at once pays all of them in one pass. Claim first, credit second:
// inserting the claim row is the atomic gate, so two concurrent evaluations
// of one ancestor can never both pay the same threshold. A failed credit
// leaves the claim retry_pending for the sweep and moves on.
func (m *MilestoneEngine) Evaluate(ctx context.Context, memberId string) ([]a1hub.Reward, error) {
	var granted []a1hub.Reward
	for level := uint(1); level <= uint(m.plan.MaxDepth); level++ {
		ladder := m.plan.MilestonesFor(level)
		if len(ladder) == 0 {
			continue
		}
		count, err := m.tree.CountAtLevel(ctx, memberId, level)
		if err != nil {
			return granted, fmt.Errorf("count level %d team for %s: %w", level, memberId, err)
		}
		if count == 0 {
			continue
		}
		claimed, err := m.rewards.Claimed(ctx, memberId, level)
		if err != nil {
			return granted, fmt.Errorf("read claims for %s: %w", memberId, err)
		}
		for _, ms := range ladder {
			if count < int64(ms.Teams) {
				break // Ladder is ascending, nothing further is crossed
			}
			if claimed[ms.Teams] {
				continue
			}
			claim := a1hub.Reward{
				MemberId:  memberId,
				Level:     level,
				Threshold: ms.Teams,
				Amount:    ms.Reward,
				Title:     ms.Title,
				Status:    a1hub.PayoutRetryPending,
			}
			inserted, err := m.rewards.InsertClaim(ctx, &claim)
			if err != nil {
				return granted, fmt.Errorf("claim milestone %d/%d for %s: %w", level, ms.Teams, memberId, err)
			}
			if !inserted {
				continue
			}
			if err := m.ledger.Credit(ctx, memberId, ms.Reward); err != nil {
				fmt.Printf("[[Reward]] Credit failed for %s level %d threshold %d: %v\n",
					memberId, level, ms.Teams, err)
				if m.notify != nil {
					m.notify(fmt.Sprintf("MILESTONE CREDIT FAILED\nMember: %s\nMilestone: %s",
						memberId, a1hub.EscapeMarkdownV2(ms.Title)))
				}
				granted = append(granted, claim)
				continue
			}
			if _, err := m.rewards.MarkClaimStatus(ctx, &claim, a1hub.PayoutRetryPending, a1hub.PayoutCompleted); err != nil {
				return granted, fmt.Errorf("mark milestone %d/%d for %s: %w", level, ms.Teams, memberId, err)
			}
			claim.Status = a1hub.PayoutCompleted
			fmt.Printf("[[Reward]] %s: level %d, %d teams -> %.2f\n", memberId, level, ms.Teams, ms.Reward)
			if m.notify != nil {
				m.notify(fmt.Sprintf("MILESTONE REACHED\nMember: %s\n%s: %s",
					memberId,
					a1hub.EscapeMarkdownV2(ms.Title),
					a1hub.EscapeMarkdownV2(fmt.Sprintf("%.2f", ms.Reward))))
			}
			granted = append(granted, claim)
		}
	}
	return granted, nil
}
