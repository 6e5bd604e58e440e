package referral

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"a1hub/internal/a1hub"

	"github.com/stretchr/testify/require"
)

func seedTeam(t *testing.T, store *memStore, ancestorId string, level uint, size int) {
	t.Helper()
	var edges []a1hub.TreeEdge
	for i := 0; i < size; i++ {
		edges = append(edges, a1hub.TreeEdge{
			MemberId:   fmt.Sprintf("%s-l%d-c%d", ancestorId, level, i),
			AncestorId: ancestorId,
			Level:      level,
		})
	}
	require.NoError(t, store.InsertEdges(context.Background(), edges))
}

func TestMilestoneEngine_Evaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("grants the crossed threshold exactly once", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		plan := a1hub.DefaultPlan()
		seedTeam(t, store, "boss", 1, 5)
		engine := NewMilestoneEngine(store, store, ledger, plan)

		granted, err := engine.Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Len(t, granted, 1)
		require.Equal(t, uint(5), granted[0].Threshold)
		require.Equal(t, 250.0, granted[0].Amount)
		require.Equal(t, a1hub.PayoutCompleted, granted[0].Status)
		require.Equal(t, 250.0, ledger.balance("boss"))

		granted, err = engine.Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Empty(t, granted)
		require.Equal(t, 1, ledger.creditCount("boss"))
	})

	t.Run("a count jumping several thresholds pays all of them", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		seedTeam(t, store, "boss", 1, 12)

		granted, err := NewMilestoneEngine(store, store, ledger, a1hub.DefaultPlan()).Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Len(t, granted, 2)
		require.Equal(t, uint(5), granted[0].Threshold)
		require.Equal(t, uint(10), granted[1].Threshold)
		require.Equal(t, 750.0, ledger.balance("boss"))
	})

	t.Run("stays silent below the first threshold", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		seedTeam(t, store, "boss", 1, 4)

		granted, err := NewMilestoneEngine(store, store, ledger, a1hub.DefaultPlan()).Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Empty(t, granted)
		require.Zero(t, ledger.balance("boss"))
	})

	t.Run("tracks each level against its own ladder", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		seedTeam(t, store, "boss", 1, 5)
		seedTeam(t, store, "boss", 2, 25)

		granted, err := NewMilestoneEngine(store, store, ledger, a1hub.DefaultPlan()).Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Len(t, granted, 2)
		require.Equal(t, uint(1), granted[0].Level)
		require.Equal(t, uint(2), granted[1].Level)
		require.Equal(t, 250.0+500.0, ledger.balance("boss"))
	})

	t.Run("concurrent evaluations pay a threshold once", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		seedTeam(t, store, "boss", 1, 5)
		engine := NewMilestoneEngine(store, store, ledger, a1hub.DefaultPlan())

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				engine.Evaluate(ctx, "boss")
			}()
		}
		wg.Wait()

		require.Equal(t, 1, ledger.creditCount("boss"))
		require.Equal(t, 250.0, ledger.balance("boss"))
	})

	t.Run("a failed credit leaves the claim for the retry sweep", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		ledger := newMemLedger()
		ledger.setFailing("boss", true)
		seedTeam(t, store, "boss", 1, 5)
		engine := NewMilestoneEngine(store, store, ledger, a1hub.DefaultPlan())

		granted, err := engine.Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Len(t, granted, 1)
		require.Equal(t, a1hub.PayoutRetryPending, granted[0].Status)
		require.Zero(t, ledger.balance("boss"))

		// The claim row exists, so the next evaluation does not re-credit.
		granted, err = engine.Evaluate(ctx, "boss")
		require.NoError(t, err)
		require.Empty(t, granted)

		pending, err := store.PendingClaimRetries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, uint(5), pending[0].Threshold)
	})
}
