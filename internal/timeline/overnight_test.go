package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

type fakePredecessorStore struct {
	pred *models.TimelineStayPoint

	extendedID  int64
	extendedEnd int64
	extendCalls int
}

func (f *fakePredecessorStore) LastStayBefore(ctx context.Context, userID string, boundary int64) (*models.TimelineStayPoint, error) {
	return f.pred, nil
}

func (f *fakePredecessorStore) ExtendStayEnd(ctx context.Context, stayID int64, newEndTime int64) error {
	f.extendedID = stayID
	f.extendedEnd = newEndTime
	f.extendCalls++
	return nil
}

func TestContinuityReconcile(t *testing.T) {
	ctx := context.Background()
	const midnight = int64(86400)

	t.Run("no predecessor is standalone", func(t *testing.T) {
		store := &fakePredecessorStore{}
		p := NewContinuityProcessor(store)

		first := stay("office", midnight+3600, midnight+7200)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeStandalone, outcome)
		assert.Zero(t, store.extendCalls)
	})

	t.Run("empty new window leaves predecessor untouched", func(t *testing.T) {
		pred := stay("home", midnight-7200, midnight-600)
		pred.ID = 7
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		outcome, err := p.Reconcile(ctx, "u1", midnight, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUntouched, outcome)
		assert.Zero(t, store.extendCalls)
	})

	t.Run("same location is untouched", func(t *testing.T) {
		pred := stay("home", midnight-7200, midnight-600)
		pred.ID = 7
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		first := stay("home", midnight+60, midnight+7200)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUntouched, outcome)
		assert.Zero(t, store.extendCalls)
	})

	t.Run("unresolved new location is untouched", func(t *testing.T) {
		pred := stay("home", midnight-7200, midnight-600)
		pred.ID = 7
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		// No location key on the first new stay: it may be the same place,
		// so the predecessor must not be extended.
		first := stay("", midnight+14*3600, midnight+15*3600)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUntouched, outcome)
		assert.Zero(t, store.extendCalls)
	})

	t.Run("unresolved predecessor is untouched", func(t *testing.T) {
		pred := stay("", midnight-7200, midnight-600)
		pred.ID = 7
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		first := stay("office", midnight+14*3600, midnight+15*3600)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUntouched, outcome)
		assert.Zero(t, store.extendCalls)
	})

	t.Run("new location starting at the boundary is untouched", func(t *testing.T) {
		pred := stay("home", midnight-7200, midnight-600)
		pred.ID = 7
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		first := stay("office", midnight, midnight+7200)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUntouched, outcome)
	})

	t.Run("overnight stay extends to next day's first departure", func(t *testing.T) {
		// Arrived home at 23:00, first new activity at 14:00 next day.
		pred := stay("home", midnight-3600, midnight-1)
		pred.ID = 42
		store := &fakePredecessorStore{pred: &pred}
		p := NewContinuityProcessor(store)

		first := stay("office", midnight+14*3600, midnight+15*3600)
		outcome, err := p.Reconcile(ctx, "u1", midnight, &first)
		require.NoError(t, err)
		assert.Equal(t, OutcomeExtended, outcome)
		assert.Equal(t, 1, store.extendCalls)
		assert.Equal(t, int64(42), store.extendedID)
		assert.Equal(t, midnight+14*3600, store.extendedEnd)
	})
}
