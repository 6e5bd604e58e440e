package a1hub

import (
	"time"
)

type Member struct {
	Id             string    `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	SponsorId      string    `gorm:"index" json:"sponsor_id"`    // Empty for root members
	RefCode        *string   `gorm:"uniqueIndex" json:"ref_code"` // Assigned on activation, null until then
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	IsActive       bool      `json:"is_active"` // Flips once, on joining fee payment
	WalletBalance  float64   `json:"wallet_balance"`
	TotalEarned    float64   `json:"total_earned"`
	TotalWithdrawn float64   `json:"total_withdrawn"`
}

// Code returns the shareable referral code, empty until activation assigns one.
func (m *Member) Code() string {
	if m.RefCode == nil {
		return ""
	}
	return *m.RefCode
}

type MemberData struct {
	Id             string  `json:"id"`
	RefCode        string  `json:"ref_code"`
	IsActive       bool    `json:"is_active"`
	WalletBalance  float64 `json:"wallet_balance"`
	TotalEarned    float64 `json:"total_earned"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
}

type TeamData struct {
	TotalMembers int64             `json:"total_members"`
	ByLevel      map[uint]int64    `json:"by_level"`
	Members      map[uint][]Member `json:"members,omitempty"`
}
