package referral

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"a1hub/internal/a1hub"
	"a1hub/internal/wallet"
	"a1hub/internal/worker"

	"gorm.io/gorm"
)

// Pipeline sequences one activation end to end: payment bookkeeping and
// welcome bonus, tree extension, commission distribution, then milestone
// evaluation fanned out over every touched ancestor. Tree extension is
// durable before distribution reads it, and distribution finishes before
// milestones run.
type Pipeline struct {
	activation  ActivationStore
	tree        TreeStore
	builder     *TreeBuilder
	distributor *Distributor
	milestones  *MilestoneEngine
	ledger      wallet.Ledger
	plan        *a1hub.CommissionPlan
	pool        *worker.Pool
}

func NewPipeline(activation ActivationStore, tree TreeStore, builder *TreeBuilder, distributor *Distributor, milestones *MilestoneEngine, ledger wallet.Ledger, plan *a1hub.CommissionPlan, pool *worker.Pool) *Pipeline {
	return &Pipeline{
		activation:  activation,
		tree:        tree,
		builder:     builder,
		distributor: distributor,
		milestones:  milestones,
		ledger:      ledger,
		plan:        plan,
		pool:        pool,
	}
}

// Process runs the full activation flow. Structural failures (invalid
// sponsor, storage errors) are returned to the caller; per-beneficiary credit
// failures are absorbed by the stages and settled later by the retry sweep.
func (p *Pipeline) Process(ctx context.Context, ev a1hub.ActivationEvent) error {
	if ev.MemberId == "" || ev.PaymentId == "" {
		return fmt.Errorf("activation event missing member or payment id")
	}

	err := p.activation.RecordPayment(ctx, &a1hub.Payment{
		Id:       ev.PaymentId,
		MemberId: ev.MemberId,
		Amount:   ev.Fee,
		Status:   "completed",
	})
	if err != nil {
		return fmt.Errorf("record payment %s: %w", ev.PaymentId, err)
	}

	activated, err := p.activation.ActivateMember(ctx, ev.MemberId)
	if err != nil {
		return fmt.Errorf("activate member %s: %w", ev.MemberId, err)
	}
	if activated {
		fmt.Printf("[[Activation]] Member %s is now active\n", ev.MemberId)
	}
	if err := p.ensureRefCode(ctx, ev.MemberId); err != nil {
		return err
	}

	if p.plan.WelcomeBonus > 0 {
		claimed, err := p.activation.ClaimWelcomeBonus(ctx, ev.PaymentId)
		if err != nil {
			return fmt.Errorf("claim welcome bonus for %s: %w", ev.PaymentId, err)
		}
		if claimed {
			if err := p.ledger.Credit(ctx, ev.MemberId, p.plan.WelcomeBonus); err != nil {
				// Give the bonus back to the next delivery rather than lose it.
				p.activation.ReleaseWelcomeBonus(ctx, ev.PaymentId)
				return fmt.Errorf("credit welcome bonus for %s: %w", ev.MemberId, err)
			}
			fmt.Printf("[[Activation]] Welcome bonus %.2f credited to %s\n", p.plan.WelcomeBonus, ev.MemberId)
		}
	}

	if ev.SponsorId == "" {
		// Root member: no upline to extend or pay.
		return nil
	}

	if _, err := p.builder.Build(ctx, ev.MemberId, ev.SponsorId); err != nil {
		if !errors.Is(err, a1hub.ErrTreeAlreadyBuilt) {
			return err
		}
	}

	if _, err := p.distributor.Distribute(ctx, ev.MemberId, ev.PaymentId, ev.Fee); err != nil {
		if !errors.Is(err, a1hub.ErrDuplicatePayment) {
			return err
		}
	}

	edges, err := p.tree.EdgesFor(ctx, ev.MemberId)
	if err != nil {
		return fmt.Errorf("read ancestors of %s: %w", ev.MemberId, err)
	}
	var wg sync.WaitGroup
	for _, edge := range edges {
		wg.Add(1)
		p.pool.Exec(&evalTask{
			ctx:      ctx,
			engine:   p.milestones,
			memberId: edge.AncestorId,
			wg:       &wg,
		})
	}
	wg.Wait()
	return nil
}

func (p *Pipeline) ensureRefCode(ctx context.Context, memberId string) error {
	for attempt := 0; attempt < 10; attempt++ {
		code := a1hub.NewRefCode()
		taken, err := p.activation.RefCodeTaken(ctx, code)
		if err != nil {
			return fmt.Errorf("check ref code: %w", err)
		}
		if taken {
			continue
		}
		_, err = p.activation.AssignRefCode(ctx, memberId, code)
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent activation claimed the code first, draw again.
			continue
		}
		return fmt.Errorf("assign ref code to %s: %w", memberId, err)
	}
	return fmt.Errorf("could not generate a free ref code for %s", memberId)
}

type evalTask struct {
	ctx      context.Context
	engine   *MilestoneEngine
	memberId string
	wg       *sync.WaitGroup
}

func (t *evalTask) Execute() {
	defer t.wg.Done()
	if _, err := t.engine.Evaluate(t.ctx, t.memberId); err != nil {
		fmt.Printf("[[Reward]] Evaluation failed for %s: %v\n", t.memberId, err)
	}
}
