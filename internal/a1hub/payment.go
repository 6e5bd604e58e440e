package a1hub

import "time"

// Payment mirrors the gateway-confirmed joining fee payment that triggered an
// activation event. The gateway protocol itself lives upstream; this row
// exists for operator visibility and to anchor the one-shot welcome bonus.
type Payment struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	MemberId  string    `json:"member_id" gorm:"index"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`     // "completed" once the event is accepted
	BonusPaid bool      `json:"bonus_paid"` // Welcome bonus credited for this payment
}
