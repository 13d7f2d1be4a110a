package detector

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/spatial"
	"github.com/lifetrace/timeline-backend-go/internal/velocity"
)

// DriftMergeMicroThresholdMeters is the centroid distance under which two
// adjacent clusters always merge, regardless of the time gap between them.
// GPS commonly jumps a building's worth of distance while the user is
// stationary; such jumps must not split a stay.
const DriftMergeMicroThresholdMeters = 15.0

// refinementWindowSize is the number of speed samples in the forward/backward
// windows used to locate the real deceleration/acceleration instant.
const refinementWindowSize = 5

// enhancedDetector is the primary stay-point algorithm: velocity-gated
// clustering with a radius fallback, accuracy and duration gates, windowed
// transition refinement, and a drift-merge pass.
type enhancedDetector struct{}

func init() {
	Register(models.DetectorAlgorithmEnhanced, func() Detector { return &enhancedDetector{} })
}

func (d *enhancedDetector) Name() string { return models.DetectorAlgorithmEnhanced }

func (d *enhancedDetector) Detect(cfg models.TimelineConfig, points []models.TrackPoint) ([]models.TimelineStayPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pts := sanitize(points)
	if len(pts) == 0 {
		return nil, nil
	}

	candidates := d.clusterPass(cfg, pts)
	accepted := make([]*cluster, 0, len(candidates))
	for _, c := range candidates {
		// Accuracy gate: systematically poor fixes must not become phantom
		// stays; their points fall through to the surrounding trip.
		if c.goodAccuracyRatio(cfg.StaypointMaxAccuracyThreshold) < cfg.StaypointMinAccuracyRatio {
			continue
		}
		// Duration gate: transient stops (red lights, traffic) are not stays.
		if float64(c.durationSeconds()) < cfg.TripMinDurationMinutes*60 {
			continue
		}
		accepted = append(accepted, c)
	}
	if len(accepted) == 0 {
		return nil, nil
	}

	speeds := velocity.SpeedSeries(pts)
	for _, c := range accepted {
		d.refineTransitions(cfg, pts, speeds, c)
	}

	merged := d.driftMerge(cfg, accepted)

	stays := make([]models.TimelineStayPoint, 0, len(merged))
	for _, c := range merged {
		stays = append(stays, c.toStay())
	}
	return stays, nil
}

// clusterPass scans the fix stream once. A cluster grows while points are
// below the velocity threshold or inside the radius of its running centroid;
// it closes when a point is above the threshold AND spatially outside the
// radius. Points without a velocity reading are judged by radius alone.
func (d *enhancedDetector) clusterPass(cfg models.TimelineConfig, pts []models.TrackPoint) []*cluster {
	var clusters []*cluster
	var cur *cluster

	for i, p := range pts {
		if cur == nil {
			if p.HasVelocity() && *p.Velocity > cfg.StaypointVelocityThreshold {
				continue
			}
			// Below threshold, or velocity unknown: open a tentative cluster.
			// Moving tentative clusters die at the duration gate.
			cur = newCluster(p, i)
			continue
		}

		clat, clon := cur.centroid()
		within := spatial.WithinRadius(p.Latitude, p.Longitude, clat, clon, cfg.StaypointRadiusMeters)

		if p.HasVelocity() {
			if *p.Velocity <= cfg.StaypointVelocityThreshold || within {
				cur.add(p, i)
				continue
			}
			clusters = append(clusters, cur)
			cur = nil
			continue
		}

		if within {
			cur.add(p, i)
			continue
		}
		clusters = append(clusters, cur)
		cur = newCluster(p, i)
	}

	if cur != nil {
		clusters = append(clusters, cur)
	}
	return clusters
}

// refineTransitions walks the raw cluster boundaries outward using forward and
// backward velocity windows to find the actual deceleration/acceleration
// instants. A boundary candidate must itself be reached by a slow segment in
// addition to having a settled window median: a window anchored just outside
// the cluster holds mostly in-stay samples, so the median alone would accept
// points still in full motion. If no settled transition is found the raw
// boundary is kept; that fallback is deliberate, not a missed case.
func (d *enhancedDetector) refineTransitions(cfg models.TimelineConfig, pts []models.TrackPoint, speeds []float64, c *cluster) {
	if len(speeds) == 0 {
		return
	}
	threshold := cfg.StaypointVelocityThreshold

	// Arrival: first point reached by a slow segment whose forward window
	// median settles under the threshold.
	arrival := -1
	searchStart := c.startIdx - refinementWindowSize
	if searchStart < 0 {
		searchStart = 0
	}
	for i := searchStart; i <= c.endIdx && i < len(speeds); i++ {
		k := i - 1
		if k < 0 {
			k = 0
		}
		w := velocity.ForwardStats(speeds, k, refinementWindowSize)
		if speeds[k] < threshold && w.Count > 0 && w.Median < threshold {
			arrival = i
			break
		}
	}

	// Departure: last point reached by a slow segment whose backward window
	// median is still under the threshold.
	departure := -1
	searchEnd := c.endIdx + refinementWindowSize
	if searchEnd > len(pts)-1 {
		searchEnd = len(pts) - 1
	}
	for j := searchEnd; j >= c.startIdx && j > 0; j-- {
		w := velocity.BackwardStats(speeds, j-1, refinementWindowSize)
		if speeds[j-1] < threshold && w.Count > 0 && w.Median < threshold {
			departure = j
			break
		}
	}
	// The stay lasts until motion resumes: when the segment leaving the last
	// stationary fix is fast, the departure instant is that segment's end.
	if departure >= 0 && departure < len(speeds) && speeds[departure] >= threshold {
		departure++
	}

	if arrival >= 0 && departure >= 0 && arrival < departure {
		c.startTime = pts[arrival].Timestamp
		c.endTime = pts[departure].Timestamp
	}
}

// driftMerge joins temporally adjacent clusters split only by GPS noise.
// Merge when the gap and centroid distance are both small, or unconditionally
// when the centroids are within the micro-threshold.
func (d *enhancedDetector) driftMerge(cfg models.TimelineConfig, clusters []*cluster) []*cluster {
	if len(clusters) < 2 {
		return clusters
	}
	merged := []*cluster{clusters[0]}
	for _, c := range clusters[1:] {
		prev := merged[len(merged)-1]
		plat, plon := prev.centroid()
		clat, clon := c.centroid()
		dist := spatial.Distance(plat, plon, clat, clon)
		gapMinutes := float64(c.startTime-prev.endTime) / 60.0

		if dist < DriftMergeMicroThresholdMeters ||
			(gapMinutes < cfg.MergeMaxTimeGapMinutes && dist < cfg.MergeMaxDistanceMeters) {
			// Merged coordinates come from the union of points; the span runs
			// first arrival to last departure.
			prev.points = append(prev.points, c.points...)
			prev.endIdx = c.endIdx
			prev.endTime = c.endTime
			continue
		}
		merged = append(merged, c)
	}
	return merged
}
