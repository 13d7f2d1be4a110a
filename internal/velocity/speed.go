package velocity

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/spatial"
)

// InstantSpeedKmh derives the speed between two consecutive fixes in km/h.
// Returns 0 when the timestamps are equal or inverted; never divides by zero.
func InstantSpeedKmh(p1, p2 models.TrackPoint) float64 {
	dt := p2.Timestamp - p1.Timestamp
	if dt <= 0 {
		return 0
	}
	meters := spatial.Distance(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude)
	return meters / float64(dt) * 3.6
}

// SpeedSeries computes the n-1 inter-point speeds of an ordered fix sequence.
// Sensor-reported velocity on the later point wins over the derived value.
func SpeedSeries(points []models.TrackPoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	series := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		if points[i].HasVelocity() {
			series = append(series, *points[i].Velocity)
			continue
		}
		series = append(series, InstantSpeedKmh(points[i-1], points[i]))
	}
	return series
}

// MovingAverage smooths a speed series with a centered window of windowSize
// samples. The output has the same length as the input; edge windows are
// truncated rather than padded.
func MovingAverage(series []float64, windowSize int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if windowSize < 1 {
		windowSize = 1
	}
	half := windowSize / 2
	out := make([]float64, len(series))
	for i := range series {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(series)-1 {
			hi = len(series) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// FilterUnrealistic drops speeds above maxPlausible km/h from the series.
// Values above the ceiling are GPS errors; they are excluded from statistics
// but the underlying points are not deleted. The returned slice may be shorter
// than the input.
func FilterUnrealistic(series []float64, maxPlausible float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if v > maxPlausible {
			continue
		}
		out = append(out, v)
	}
	return out
}
