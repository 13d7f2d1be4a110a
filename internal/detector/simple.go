package detector

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/spatial"
)

// simpleDetector is the classic radius-only algorithm: a cluster grows while
// points stay within staypointRadiusMeters of its running centroid, and a
// duration gate separates real stays from pass-throughs. No velocity input,
// no transition refinement. Kept as the cheap fallback variant.
type simpleDetector struct{}

func init() {
	Register(models.DetectorAlgorithmSimple, func() Detector { return &simpleDetector{} })
}

func (d *simpleDetector) Name() string { return models.DetectorAlgorithmSimple }

func (d *simpleDetector) Detect(cfg models.TimelineConfig, points []models.TrackPoint) ([]models.TimelineStayPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pts := sanitize(points)
	if len(pts) == 0 {
		return nil, nil
	}

	var stays []models.TimelineStayPoint
	var cur *cluster

	flush := func() {
		if cur == nil {
			return
		}
		if float64(cur.durationSeconds()) >= cfg.TripMinDurationMinutes*60 {
			stays = append(stays, cur.toStay())
		}
		cur = nil
	}

	for i, p := range pts {
		if cur == nil {
			cur = newCluster(p, i)
			continue
		}
		clat, clon := cur.centroid()
		if spatial.WithinRadius(p.Latitude, p.Longitude, clat, clon, cfg.StaypointRadiusMeters) {
			cur.add(p, i)
			continue
		}
		flush()
		cur = newCluster(p, i)
	}
	flush()

	return stays, nil
}
