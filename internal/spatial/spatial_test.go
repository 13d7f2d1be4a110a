package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

func TestDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Zero(t, Distance(39.9042, 116.4074, 39.9042, 116.4074))
	})

	t.Run("one hundredth degree of latitude", func(t *testing.T) {
		d := Distance(40.00, 116.40, 40.01, 116.40)
		assert.InDelta(t, 1112.0, d, 5.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Distance(40.0, 116.4, 40.1, 116.5)
		b := Distance(40.1, 116.5, 40.0, 116.4)
		assert.InDelta(t, a, b, 1e-6)
	})
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(40.0, 116.4, 40.0001, 116.4, 50))
	assert.False(t, WithinRadius(40.0, 116.4, 40.01, 116.4, 50))
}

func fix(lat, lon float64, acc *float64) models.TrackPoint {
	return models.TrackPoint{Latitude: lat, Longitude: lon, Accuracy: acc}
}

func ptr(v float64) *float64 { return &v }

func TestWeightedCentroid(t *testing.T) {
	t.Run("empty input is invalid", func(t *testing.T) {
		_, _, err := WeightedCentroid(nil)
		require.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("equal weights give midpoint", func(t *testing.T) {
		lat, lon, err := WeightedCentroid([]models.TrackPoint{
			fix(40.0, 116.0, nil),
			fix(40.2, 116.2, nil),
		})
		require.NoError(t, err)
		assert.InDelta(t, 40.1, lat, 1e-9)
		assert.InDelta(t, 116.1, lon, 1e-9)
	})

	t.Run("accurate fix pulls harder", func(t *testing.T) {
		good := fix(40.0, 116.0, ptr(5.0))
		bad := fix(40.2, 116.2, ptr(100.0))
		lat, _, err := WeightedCentroid([]models.TrackPoint{good, bad})
		require.NoError(t, err)
		assert.Less(t, math.Abs(lat-good.Latitude), math.Abs(lat-bad.Latitude))
	})
}

func TestPolylineLengthKm(t *testing.T) {
	t.Run("fewer than two points", func(t *testing.T) {
		assert.Zero(t, PolylineLengthKm([]models.TrackPoint{fix(40, 116, nil)}))
	})

	t.Run("sums segments", func(t *testing.T) {
		pts := []models.TrackPoint{
			fix(40.00, 116.40, nil),
			fix(40.01, 116.40, nil),
			fix(40.02, 116.40, nil),
		}
		assert.InDelta(t, 2.224, PolylineLengthKm(pts), 0.02)
	})
}
