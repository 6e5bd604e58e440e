package referral

import (
	"context"
	"fmt"

	"a1hub/internal/a1hub"
)

// TreeBuilder extends the referral closure by one new leaf per activation.
// Instead of walking the sponsor chain upwards one query per level, it copies
// the sponsor's own precomputed ancestor rows with the level shifted by one:
// a single bulk read and a single bulk insert regardless of chain length.
type TreeBuilder struct {
	members MemberStore
	tree    TreeStore
	plan    *a1hub.CommissionPlan
}

func NewTreeBuilder(members MemberStore, tree TreeStore, plan *a1hub.CommissionPlan) *TreeBuilder {
	return &TreeBuilder{members: members, tree: tree, plan: plan}
}

// Build writes the ancestor edges for a freshly activated member and returns
// how many were written. Re-running for an already built member returns the
// existing edge count together with a1hub.ErrTreeAlreadyBuilt; callers treat
// that as success. The sponsor is re-checked here even though activation
// validates it upstream.
func (b *TreeBuilder) Build(ctx context.Context, memberId, sponsorId string) (int, error) {
	existing, err := b.tree.EdgesFor(ctx, memberId)
	if err != nil {
		return 0, fmt.Errorf("read existing edges for %s: %w", memberId, err)
	}
	if len(existing) > 0 {
		return len(existing), a1hub.ErrTreeAlreadyBuilt
	}

	sponsor, err := b.members.Get(ctx, sponsorId)
	if err != nil {
		return 0, fmt.Errorf("load sponsor %s: %w", sponsorId, err)
	}
	if sponsor == nil || !sponsor.IsActive {
		return 0, fmt.Errorf("sponsor %s: %w", sponsorId, a1hub.ErrInvalidSponsor)
	}

	edges := []a1hub.TreeEdge{{MemberId: memberId, AncestorId: sponsorId, Level: 1}}
	sponsorEdges, err := b.tree.EdgesFor(ctx, sponsorId)
	if err != nil {
		return 0, fmt.Errorf("read sponsor edges for %s: %w", sponsorId, err)
	}
	for _, e := range sponsorEdges {
		level := e.Level + 1
		if level > uint(b.plan.MaxDepth) {
			break // Edges come back ordered by level
		}
		edges = append(edges, a1hub.TreeEdge{
			MemberId:   memberId,
			AncestorId: e.AncestorId,
			Level:      level,
		})
	}

	if err := b.tree.InsertEdges(ctx, edges); err != nil {
		return 0, fmt.Errorf("insert edges for %s: %w", memberId, err)
	}
	fmt.Printf("[[Tree]] Built %d levels for member %s\n", len(edges), memberId)
	return len(edges), nil
}
