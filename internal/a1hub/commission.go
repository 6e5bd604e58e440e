package a1hub

import "time"

const (
	PayoutCompleted    = "completed"
	PayoutRetryPending = "retry_pending" // Journaled but wallet credit still owed
	PayoutRetrying     = "retrying"      // Claimed by a sweep, credit in flight
)

// Commission is one upline payout journaled for one activation payment.
// The composite key makes re-processing a payment a no-op.
type Commission struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Tracks the last status flip
	MemberId  string    `json:"member_id" gorm:"primaryKey;autoIncrement:false"`  // Beneficiary
	SourceId  string    `json:"source_id" gorm:"primaryKey;autoIncrement:false"`  // Activating descendant
	PaymentId string    `json:"payment_id" gorm:"primaryKey;autoIncrement:false;index"`
	Level     uint      `json:"level"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status" gorm:"index"` // PayoutCompleted | PayoutRetryPending
}
