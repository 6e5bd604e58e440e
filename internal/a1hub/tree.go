package a1hub

import "time"

// TreeEdge is one row of the materialized referral closure: AncestorId is
// Level sponsorship hops above MemberId. Rows for a member are written once,
// at activation, and never mutated afterwards.
type TreeEdge struct {
	CreatedAt  time.Time `json:"created_at"`
	MemberId   string    `json:"member_id" gorm:"primaryKey;autoIncrement:false"`
	AncestorId string    `json:"ancestor_id" gorm:"primaryKey;autoIncrement:false;index:idx_tree_ancestor_level"`
	Level      uint      `json:"level" gorm:"index:idx_tree_ancestor_level"` // 1 = direct sponsor
}
