package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

func TestAnalyzeFavoriteRename(t *testing.T) {
	ctx := context.Background()

	seed := func() *memStore {
		store := newMemStore()
		store.days[store.key("u1", testDay)] = &DayTimeline{
			Hash: "h1",
			Stays: []models.TimelineStayPoint{{
				UserID: "u1", LocationKey: "poi:cafe", Label: "Cafe",
				StartTime: testDay + 3600, EndTime: testDay + 7200,
			}},
		}
		store.days[store.key("u1", testDay+86400)] = &DayTimeline{
			Hash: "h2",
			Stays: []models.TimelineStayPoint{{
				UserID: "u1", LocationKey: "poi:cafe", Label: "Cafe",
				StartTime: testDay + 86400 + 3600, EndTime: testDay + 86400 + 7200,
			}},
		}
		return store
	}

	t.Run("name-only rename patches labels in place", func(t *testing.T) {
		store := seed()
		queue := NewRegenQueue(newRecordingRegen(1), 1)

		analysis, err := AnalyzeFavoriteRename(ctx, store, queue, FavoriteRenamedEvent{
			UserID: "u1", LocationKey: "poi:cafe",
			OldLabel: "Cafe", NewLabel: "Morning Cafe",
		})
		require.NoError(t, err)
		assert.Equal(t, ImpactNameOnly, analysis.Kind)
		assert.Equal(t, int64(2), analysis.PatchedStays)
		assert.Empty(t, analysis.QueuedDays)

		d, _ := store.LoadDay(ctx, "u1", testDay)
		assert.Equal(t, "Morning Cafe", d.Stays[0].Label)
		assert.False(t, d.Stale, "name-only rename must not invalidate the day")
		assert.False(t, queue.Pending("u1", testDay))
	})

	t.Run("key change marks days stale and queues regeneration", func(t *testing.T) {
		store := seed()
		queue := NewRegenQueue(newRecordingRegen(4), 1)

		analysis, err := AnalyzeFavoriteRename(ctx, store, queue, FavoriteRenamedEvent{
			UserID: "u1", LocationKey: "poi:cafe",
			OldLabel: "Cafe", NewLabel: "Cafe", KeyChanged: true,
		})
		require.NoError(t, err)
		assert.Equal(t, ImpactStructural, analysis.Kind)
		assert.Len(t, analysis.QueuedDays, 2)

		d, _ := store.LoadDay(ctx, "u1", testDay)
		assert.True(t, d.Stale)
		assert.True(t, queue.Pending("u1", testDay))
		assert.True(t, queue.Pending("u1", testDay+86400))
	})
}
