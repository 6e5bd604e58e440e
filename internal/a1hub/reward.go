package a1hub

import "time"

// Reward is a one-time team milestone claim. The composite key guarantees a
// milestone pays at most once per member and level, however often the team
// size is re-evaluated.
type Reward struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Tracks the last status flip
	MemberId  string    `json:"member_id" gorm:"primaryKey;autoIncrement:false"`
	Level     uint      `json:"level" gorm:"primaryKey;autoIncrement:false"`
	Threshold uint      `json:"threshold" gorm:"primaryKey;autoIncrement:false"` // Team size that was crossed
	Amount    float64   `json:"amount"`
	Title     string    `json:"title"`
	Status    string    `json:"status" gorm:"index"` // PayoutCompleted | PayoutRetryPending
}
