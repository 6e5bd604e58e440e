package a1hub

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeActivationProcess = "activation:process"
	TypeRetrySweep        = "payout:retry"
)

// ActivationEvent is fired exactly once per confirmed joining fee payment.
// Delivery downstream is at-least-once; every consumer stage is idempotent,
// so redelivery is harmless.
type ActivationEvent struct {
	MemberId  string  `json:"member_id"`
	SponsorId string  `json:"sponsor_id"` // Empty for root members
	PaymentId string  `json:"payment_id"`
	Fee       float64 `json:"fee"`
}

func NewActivationTask(ev ActivationEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeActivationProcess, payload,
		asynq.Queue("activation"),
		asynq.MaxRetry(10),
	), nil
}

func NewRetrySweepTask() *asynq.Task {
	return asynq.NewTask(TypeRetrySweep, nil, asynq.Queue("retry"))
}
