package timeline

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// MergeStays collapses consecutive stays that share a location identity when
// the trip between them is short in distance or time: the user never really
// left, so the trip is deleted and its time folded into the combined stay.
// Merging chains transitively left to right; a stay with a different location
// key breaks the chain. Nil/empty input returns nil/empty output. The
// operation is idempotent and produces new slices; inputs are not mutated.
func MergeStays(cfg models.TimelineConfig, stays []models.TimelineStayPoint, trips []models.TimelineTrip) ([]models.TimelineStayPoint, []models.TimelineTrip) {
	if !cfg.MergeEnabled || len(stays) == 0 {
		return stays, trips
	}

	deleted := make(map[int]bool)

	// tripBetween finds the trip occupying the interval between two stays.
	tripBetween := func(a, b models.TimelineStayPoint) int {
		for i, t := range trips {
			if deleted[i] {
				continue
			}
			if t.StartTimestamp >= a.EndTime && t.EndTimestamp <= b.StartTime {
				return i
			}
		}
		return -1
	}

	out := make([]models.TimelineStayPoint, 0, len(stays))
	cur := stays[0]

	for _, next := range stays[1:] {
		if !sameLocation(cur, next) {
			out = append(out, cur)
			cur = next
			continue
		}

		ti := tripBetween(cur, next)
		var near bool
		if ti >= 0 {
			t := trips[ti]
			near = t.DistanceKm*1000 < cfg.MergeMaxDistanceMeters ||
				t.DurationMinutes < cfg.MergeMaxTimeGapMinutes
		} else {
			// No trip survived between the stays; judge by the raw time gap.
			near = float64(next.StartTime-cur.EndTime)/60.0 < cfg.MergeMaxTimeGapMinutes
		}

		if !near {
			out = append(out, cur)
			cur = next
			continue
		}

		if ti >= 0 {
			deleted[ti] = true
		}
		cur = combineStays(cur, next)
	}
	out = append(out, cur)

	kept := make([]models.TimelineTrip, 0, len(trips))
	for i, t := range trips {
		if !deleted[i] {
			kept = append(kept, t)
		}
	}
	return out, kept
}

func sameLocation(a, b models.TimelineStayPoint) bool {
	return a.LocationKey != "" && a.LocationKey == b.LocationKey
}

// combineStays spans first arrival to last departure; the intervening trip
// time is folded in, so duration is recomputed from the new boundaries.
// Coordinates are the duration-weighted average of the two centers.
func combineStays(a, b models.TimelineStayPoint) models.TimelineStayPoint {
	wa := float64(a.DurationSeconds)
	wb := float64(b.DurationSeconds)
	if wa+wb <= 0 {
		wa, wb = 1, 1
	}

	merged := a
	merged.Latitude = (a.Latitude*wa + b.Latitude*wb) / (wa + wb)
	merged.Longitude = (a.Longitude*wa + b.Longitude*wb) / (wa + wb)
	merged.EndTime = b.EndTime
	merged.DurationSeconds = merged.EndTime - merged.StartTime
	merged.PointCount = a.PointCount + b.PointCount
	return merged
}
