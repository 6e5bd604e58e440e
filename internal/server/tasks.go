package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"a1hub/internal/a1hub"
	"a1hub/internal/referral"
	"a1hub/internal/wallet"
	"a1hub/internal/worker"

	"github.com/hibiken/asynq"
)

const retrySweepBatch = 100

// Handler wires asynq deliveries into the referral pipeline. Activation tasks
// are retried by asynq on transient failure, which is safe end to end: every
// pipeline stage is idempotent.
type Handler struct {
	Pipeline *referral.Pipeline
	Sweeper  *referral.RetrySweeper
}

func (h *Handler) HandleActivation(ctx context.Context, t *asynq.Task) error {
	var ev a1hub.ActivationEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("decode activation payload: %v: %w", err, asynq.SkipRetry)
	}
	fmt.Printf("[[Activation]] Processing payment %s for member %s\n", ev.PaymentId, ev.MemberId)
	if err := h.Pipeline.Process(ctx, ev); err != nil {
		if errors.Is(err, a1hub.ErrInvalidSponsor) {
			// Structural: no amount of retrying conjures a valid sponsor.
			Logger.Error(fmt.Sprintf("activation %s rejected: %v", ev.PaymentId, err))
			return fmt.Errorf("activation %s rejected: %v: %w", ev.PaymentId, err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

func (h *Handler) HandleRetrySweep(ctx context.Context, t *asynq.Task) error {
	credited, err := h.Sweeper.Sweep(ctx, retrySweepBatch)
	if err != nil {
		return err
	}
	if credited > 0 {
		fmt.Printf("[[Retry]] Settled %d pending payouts\n", credited)
	}
	return nil
}

// EventsInit runs the activation event consumer: the asynq worker plus the
// periodic retry sweep enqueuer.
func EventsInit() {
	app := a1hub.InitEvents()
	SetLogger(logFile())

	store := referral.NewStore(app.Db)
	ledger := wallet.NewGormLedger(app.Db)
	notify := func(msg string) {
		if err := a1hub.SendTelegramMessage(msg, "finance"); err != nil {
			fmt.Println("telegram notify:", err)
		}
	}

	speed, err := strconv.Atoi(os.Getenv("WORKER_SPEED"))
	if err != nil {
		speed = 4
	}
	pool := worker.NewPool(speed, speed*4)

	builder := referral.NewTreeBuilder(store, store, app.Plan)
	distributor := referral.NewDistributor(store, store, store, ledger, app.Plan).WithNotify(notify)
	milestones := referral.NewMilestoneEngine(store, store, ledger, app.Plan).WithNotify(notify)
	pipeline := referral.NewPipeline(store, store, builder, distributor, milestones, ledger, app.Plan, pool)
	sweeper := referral.NewRetrySweeper(store, store, ledger)

	h := &Handler{Pipeline: pipeline, Sweeper: sweeper}

	go a1hub.DoEvery(5*time.Minute, func(time.Time) {
		if _, err := app.Aqc.Enqueue(a1hub.NewRetrySweepTask()); err != nil {
			fmt.Println("enqueue retry sweep:", err)
		}
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(a1hub.TypeActivationProcess, h.HandleActivation)
	mux.HandleFunc(a1hub.TypeRetrySweep, h.HandleRetrySweep)

	fmt.Println("[ A1 Hub event consumer is up ]")
	if err := app.Aqs.Run(mux); err != nil {
		log.Fatal("Failed to run event consumer: ", err)
	}
}

func logFile() string {
	if f := os.Getenv("FILE_LOG"); f != "" {
		return f
	}
	return "a1hub.log"
}
