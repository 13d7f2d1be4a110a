package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTimelineConfigValidates(t *testing.T) {
	require.NoError(t, DefaultTimelineConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Run("negative threshold", func(t *testing.T) {
		cfg := DefaultTimelineConfig()
		cfg.StaypointVelocityThreshold = -1
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("ratio out of range", func(t *testing.T) {
		cfg := DefaultTimelineConfig()
		cfg.StaypointMinAccuracyRatio = 1.5
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		cfg := DefaultTimelineConfig()
		cfg.DetectorAlgorithm = "psychic"
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestMergeOverride(t *testing.T) {
	base := DefaultTimelineConfig()

	t.Run("nil override returns base", func(t *testing.T) {
		assert.Equal(t, base, base.MergeOverride(nil))
	})

	t.Run("set fields win, unset fall through", func(t *testing.T) {
		radius := 120.0
		enabled := false
		merged := base.MergeOverride(&TimelineConfigOverride{
			StaypointRadiusMeters: &radius,
			MergeEnabled:          &enabled,
		})
		assert.Equal(t, 120.0, merged.StaypointRadiusMeters)
		assert.False(t, merged.MergeEnabled)
		assert.Equal(t, base.StaypointVelocityThreshold, merged.StaypointVelocityThreshold)
		assert.Equal(t, base.DetectorAlgorithm, merged.DetectorAlgorithm)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		radius := 120.0
		base.MergeOverride(&TimelineConfigOverride{StaypointRadiusMeters: &radius})
		assert.Equal(t, 80.0, base.StaypointRadiusMeters)
	})
}

func TestTrackPointHelpers(t *testing.T) {
	neg := -1.0
	zero := 0.0

	assert.False(t, TrackPoint{}.HasVelocity())
	assert.False(t, TrackPoint{Velocity: &neg}.HasVelocity())
	assert.True(t, TrackPoint{Velocity: &zero}.HasVelocity())

	assert.False(t, TrackPoint{}.HasAccuracy())
	assert.False(t, TrackPoint{Accuracy: &zero}.HasAccuracy())

	assert.True(t, TrackPoint{Latitude: 90, Longitude: -180}.ValidCoordinates())
	assert.False(t, TrackPoint{Latitude: 91}.ValidCoordinates())
	assert.False(t, TrackPoint{Longitude: 181}.ValidCoordinates())
}

func TestStayDuration(t *testing.T) {
	s := TimelineStayPoint{StartTime: 100, EndTime: 400}
	assert.Equal(t, int64(300), s.Duration())
}
