package a1hub

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/redis/go-redis/v9"
)

// LevelRate prices one commission level: payout = min(fee*Percentage/100, MaxAmount).
// A flat payout is expressed as Percentage 100 with MaxAmount set to the flat value.
type LevelRate struct {
	Percentage float64 `json:"percentage"`
	MaxAmount  float64 `json:"max_amount"`
}

// Milestone is a one-time team size reward for a single level.
type Milestone struct {
	Teams  uint    `json:"teams"`
	Reward float64 `json:"reward"`
	Title  string  `json:"title"`
}

// CommissionPlan is the immutable rate configuration the whole pipeline runs
// on. It is data: components get a plan at construction and never consult
// globals, so tests can inject their own tables.
type CommissionPlan struct {
	JoiningFee         float64              `json:"joining_fee"`
	WelcomeBonus       float64              `json:"welcome_bonus"`
	MaxDepth           int                  `json:"max_depth"`            // Tree depth
	MaxCommissionLevel int                  `json:"max_commission_level"` // May be shallower than MaxDepth
	Levels             map[int]LevelRate    `json:"levels"`
	Milestones         map[int][]Milestone  `json:"milestones"` // Thresholds ascending per level
	WithdrawMin        float64              `json:"withdraw_min"`
}

// DefaultPlan mirrors the production INR plan: 250 joining fee, 50 welcome
// bonus, 10 commission levels with per-level caps, milestone rewards on the
// first two levels.
func DefaultPlan() *CommissionPlan {
	return &CommissionPlan{
		JoiningFee:         250,
		WelcomeBonus:       50,
		MaxDepth:           10,
		MaxCommissionLevel: 10,
		Levels: map[int]LevelRate{
			1:  {Percentage: 20, MaxAmount: 50},
			2:  {Percentage: 10, MaxAmount: 25},
			3:  {Percentage: 6, MaxAmount: 15},
			4:  {Percentage: 6, MaxAmount: 15},
			5:  {Percentage: 4, MaxAmount: 10},
			6:  {Percentage: 2, MaxAmount: 5},
			7:  {Percentage: 2, MaxAmount: 5},
			8:  {Percentage: 2, MaxAmount: 5},
			9:  {Percentage: 2, MaxAmount: 5},
			10: {Percentage: 2, MaxAmount: 5},
		},
		Milestones: map[int][]Milestone{
			1: {
				{Teams: 5, Reward: 250, Title: "5 Direct Teams"},
				{Teams: 10, Reward: 500, Title: "10 Direct Teams"},
				{Teams: 25, Reward: 1500, Title: "25 Direct Teams"},
				{Teams: 50, Reward: 4000, Title: "50 Direct Teams"},
			},
			2: {
				{Teams: 25, Reward: 500, Title: "25 Second Level Teams"},
				{Teams: 100, Reward: 2500, Title: "100 Second Level Teams"},
			},
		},
		WithdrawMin: 500,
	}
}

// Payout computes the commission owed for one level of one fee payment,
// floored to 2 decimals. Zero for levels outside the plan.
func (p *CommissionPlan) Payout(level uint, fee float64) float64 {
	rate, ok := p.Levels[int(level)]
	if !ok {
		return 0
	}
	return RoundCost(math.Min(fee*rate.Percentage/100, rate.MaxAmount), 2)
}

// MilestonesFor returns the configured ladder for a level, already validated
// to be ascending by threshold.
func (p *CommissionPlan) MilestonesFor(level uint) []Milestone {
	return p.Milestones[int(level)]
}

// Validate enforces the payout bound as a property of the table itself: no
// fee of at least JoiningFee can ever produce level payouts summing above the
// fee. It also rejects gapped level tables and unordered milestone ladders.
func (p *CommissionPlan) Validate() error {
	if p.JoiningFee <= 0 {
		return fmt.Errorf("joining fee must be positive, got %v", p.JoiningFee)
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", p.MaxDepth)
	}
	if p.MaxCommissionLevel < 1 || p.MaxCommissionLevel > p.MaxDepth {
		return fmt.Errorf("max commission level %d out of range 1..%d", p.MaxCommissionLevel, p.MaxDepth)
	}
	var pctSum, capSum float64
	for lvl := 1; lvl <= p.MaxCommissionLevel; lvl++ {
		rate, ok := p.Levels[lvl]
		if !ok {
			return fmt.Errorf("level %d has no rate configured", lvl)
		}
		if rate.Percentage < 0 || rate.MaxAmount < 0 {
			return fmt.Errorf("level %d has negative rate", lvl)
		}
		pctSum += rate.Percentage
		capSum += rate.MaxAmount
	}
	for lvl := range p.Levels {
		if lvl < 1 || lvl > p.MaxCommissionLevel {
			return fmt.Errorf("rate configured for level %d outside 1..%d", lvl, p.MaxCommissionLevel)
		}
	}
	// Either bound keeps the total under the fee: percentages cap the payout
	// for large fees, amount caps bound it for fees at the joining price.
	if pctSum > 100 && capSum > p.JoiningFee {
		return fmt.Errorf("plan can pay out more than the fee: %.2f%% total with caps summing to %.2f", pctSum, capSum)
	}
	for lvl, ladder := range p.Milestones {
		if lvl < 1 || lvl > p.MaxDepth {
			return fmt.Errorf("milestones configured for level %d outside 1..%d", lvl, p.MaxDepth)
		}
		var prev uint
		for _, ms := range ladder {
			if ms.Teams == 0 || ms.Reward <= 0 {
				return fmt.Errorf("level %d milestone %q must have positive teams and reward", lvl, ms.Title)
			}
			if ms.Teams <= prev {
				return fmt.Errorf("level %d milestones must be strictly ascending by teams", lvl)
			}
			prev = ms.Teams
		}
	}
	return nil
}

// LoadPlan resolves the active plan: a PLAN_FILE json override when present,
// otherwise defaults. The winning plan is validated and cached in redis so
// sibling processes see the same table.
func LoadPlan(rdb *redis.Client) (*CommissionPlan, error) {
	plan := DefaultPlan()
	if path := os.Getenv("PLAN_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read plan file: %w", err)
		}
		if err := json.Unmarshal(raw, plan); err != nil {
			return nil, fmt.Errorf("parse plan file: %w", err)
		}
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("commission plan rejected: %w", err)
	}
	if rdb != nil {
		raw, _ := json.Marshal(plan)
		rdb.Set(context.Background(), "commission_plan", raw, 0)
	}
	return plan, nil
}
