package trips

import (
	"gonum.org/v1/gonum/stat"

	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/velocity"
)

// ComputeStatistics aggregates inter-point speeds for a trip. Non-physical
// outliers are filtered before the average and maximum are taken; a single
// GPS glitch must not reclassify a whole walking trip as driving.
func ComputeStatistics(points []models.TrackPoint, maxPlausibleKmh float64) models.TripGpsStatistics {
	series := velocity.SpeedSeries(points)
	filtered := velocity.FilterUnrealistic(series, maxPlausibleKmh)
	if len(filtered) == 0 {
		return models.TripGpsStatistics{}
	}

	maxSpeed := filtered[0]
	for _, v := range filtered[1:] {
		if v > maxSpeed {
			maxSpeed = v
		}
	}

	return models.TripGpsStatistics{
		AvgSpeedKmh: stat.Mean(filtered, nil),
		MaxSpeedKmh: maxSpeed,
		SampleCount: len(filtered),
	}
}
