package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

func stay(key string, start, end int64) models.TimelineStayPoint {
	return models.TimelineStayPoint{
		UserID:          "u1",
		LocationKey:     key,
		Latitude:        40.0,
		Longitude:       116.4,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end - start,
		PointCount:      5,
	}
}

func trip(start, end int64, distanceKm float64) models.TimelineTrip {
	return models.TimelineTrip{
		UserID:          "u1",
		StartTimestamp:  start,
		EndTimestamp:    end,
		DistanceKm:      distanceKm,
		DurationMinutes: float64(end-start) / 60.0,
	}
}

func TestMergeStays(t *testing.T) {
	cfg := models.DefaultTimelineConfig()

	t.Run("disabled is a no-op", func(t *testing.T) {
		off := cfg
		off.MergeEnabled = false
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 700, 1300)}
		outStays, outTrips := MergeStays(off, stays, nil)
		assert.Len(t, outStays, 2)
		assert.Empty(t, outTrips)
	})

	t.Run("short trip between same location merges and deletes the trip", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 900, 1800)}
		trips := []models.TimelineTrip{trip(600, 900, 0.05)}

		outStays, outTrips := MergeStays(cfg, stays, trips)
		require.Len(t, outStays, 1)
		assert.Empty(t, outTrips)

		merged := outStays[0]
		assert.Equal(t, int64(0), merged.StartTime)
		assert.Equal(t, int64(1800), merged.EndTime)
		assert.Equal(t, int64(1800), merged.DurationSeconds)
		assert.Equal(t, 10, merged.PointCount)
	})

	t.Run("different location keys break the chain", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("office", 700, 1300)}
		outStays, outTrips := MergeStays(cfg, stays, nil)
		assert.Len(t, outStays, 2)
		assert.Empty(t, outTrips)
	})

	t.Run("empty location keys never merge", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("", 0, 600), stay("", 700, 1300)}
		outStays, _ := MergeStays(cfg, stays, nil)
		assert.Len(t, outStays, 2)
	})

	t.Run("long trip between same location does not merge", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 3000, 3600)}
		trips := []models.TimelineTrip{trip(600, 3000, 5.0)}

		outStays, outTrips := MergeStays(cfg, stays, trips)
		assert.Len(t, outStays, 2)
		assert.Len(t, outTrips, 1)
	})

	t.Run("missing trip falls back to raw time gap", func(t *testing.T) {
		near := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 700, 1300)}
		outStays, _ := MergeStays(cfg, near, nil)
		assert.Len(t, outStays, 1)

		far := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 5000, 5600)}
		outStays, _ = MergeStays(cfg, far, nil)
		assert.Len(t, outStays, 2)
	})

	t.Run("chain merges transitively", func(t *testing.T) {
		stays := []models.TimelineStayPoint{
			stay("home", 0, 600),
			stay("home", 700, 1300),
			stay("home", 1400, 2000),
		}
		outStays, _ := MergeStays(cfg, stays, nil)
		require.Len(t, outStays, 1)
		assert.Equal(t, int64(0), outStays[0].StartTime)
		assert.Equal(t, int64(2000), outStays[0].EndTime)
	})

	t.Run("idempotent", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 900, 1800)}
		trips := []models.TimelineTrip{trip(600, 900, 0.05)}

		once, onceTrips := MergeStays(cfg, stays, trips)
		twice, twiceTrips := MergeStays(cfg, once, onceTrips)
		assert.Equal(t, once, twice)
		assert.Equal(t, onceTrips, twiceTrips)
	})

	t.Run("inputs not mutated", func(t *testing.T) {
		stays := []models.TimelineStayPoint{stay("home", 0, 600), stay("home", 900, 1800)}
		trips := []models.TimelineTrip{trip(600, 900, 0.05)}
		MergeStays(cfg, stays, trips)
		assert.Equal(t, int64(600), stays[0].EndTime)
		assert.Len(t, trips, 1)
	})
}
