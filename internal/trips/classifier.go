package trips

import "github.com/lifetrace/timeline-backend-go/internal/models"

// Classify labels a trip CAR, WALK, or UNKNOWN from its filtered speed
// statistics. Either car condition alone is enough: average speed is diluted
// by stops at lights, so a high maximum also indicates motorized transport.
// The classifier never forces a decision it cannot support; short-distance
// trips (< shortDistanceKm) use the same thresholds and callers may weight
// them less confidently.
func Classify(stats models.TripGpsStatistics, distanceKm float64, cfg models.TimelineConfig) models.TravelMode {
	if stats.SampleCount == 0 {
		return models.TravelModeUnknown
	}
	if stats.AvgSpeedKmh >= cfg.CarMinAvgSpeed || stats.MaxSpeedKmh >= cfg.CarMinMaxSpeed {
		return models.TravelModeCar
	}
	if stats.AvgSpeedKmh <= cfg.WalkingMaxAvgSpeed && stats.MaxSpeedKmh <= cfg.WalkingMaxMaxSpeed {
		return models.TravelModeWalk
	}
	return models.TravelModeUnknown
}
