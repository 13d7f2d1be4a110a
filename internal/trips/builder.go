package trips

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/spatial"
)

// BuildTrips slices the ordered point stream into the runs between consecutive
// stays (and before the first / after the last stay) and builds one trip per
// run. Runs with fewer than 2 points are dropped silently: there is not enough
// data to characterize them. Stays must be ordered by time.
func BuildTrips(cfg models.TimelineConfig, points []models.TrackPoint, stays []models.TimelineStayPoint) []models.TimelineTrip {
	var trips []models.TimelineTrip
	var run []models.TrackPoint

	flush := func() {
		if len(run) >= 2 {
			if trip, ok := buildTrip(cfg, run); ok {
				trips = append(trips, trip)
			}
		}
		run = nil
	}

	si := 0
	for _, p := range points {
		if !p.ValidCoordinates() {
			continue
		}
		for si < len(stays) && p.Timestamp > stays[si].EndTime {
			si++
		}
		inStay := si < len(stays) &&
			p.Timestamp >= stays[si].StartTime && p.Timestamp <= stays[si].EndTime
		if inStay {
			flush()
			continue
		}
		run = append(run, p)
	}
	flush()

	return trips
}

func buildTrip(cfg models.TimelineConfig, run []models.TrackPoint) (models.TimelineTrip, bool) {
	distanceKm := spatial.PolylineLengthKm(run)
	if distanceKm*1000 < cfg.TripMinDistanceMeters {
		return models.TimelineTrip{}, false
	}

	path := make([]models.TrackPoint, len(run))
	copy(path, run)

	stats := ComputeStatistics(run, cfg.MaxPlausibleSpeedKmh)

	return models.TimelineTrip{
		UserID:          run[0].UserID,
		StartTimestamp:  run[0].Timestamp,
		EndTimestamp:    run[len(run)-1].Timestamp,
		Path:            path,
		DistanceKm:      distanceKm,
		DurationMinutes: float64(run[len(run)-1].Timestamp-run[0].Timestamp) / 60.0,
		TravelMode:      Classify(stats, distanceKm, cfg),
	}, true
}
