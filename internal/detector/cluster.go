package detector

import (
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/spatial"
)

// cluster is a run of consecutive fixes that may become a stay. The start/end
// times begin as the raw first/last sample instants and are later replaced by
// the refined transition instants.
type cluster struct {
	points    []models.TrackPoint
	startIdx  int
	endIdx    int
	startTime int64
	endTime   int64
}

func newCluster(p models.TrackPoint, idx int) *cluster {
	return &cluster{
		points:    []models.TrackPoint{p},
		startIdx:  idx,
		endIdx:    idx,
		startTime: p.Timestamp,
		endTime:   p.Timestamp,
	}
}

func (c *cluster) add(p models.TrackPoint, idx int) {
	c.points = append(c.points, p)
	c.endIdx = idx
	c.endTime = p.Timestamp
}

// centroid returns the accuracy-weighted centroid. Clusters are never empty.
func (c *cluster) centroid() (lat, lon float64) {
	lat, lon, _ = spatial.WeightedCentroid(c.points)
	return lat, lon
}

func (c *cluster) durationSeconds() int64 {
	return c.endTime - c.startTime
}

// goodAccuracyRatio returns the fraction of points whose accuracy is at or
// under maxAccuracy. Points without an accuracy estimate count as good: the
// gate exists to reject systematically poor fixes, and a missing estimate is
// not evidence of one.
func (c *cluster) goodAccuracyRatio(maxAccuracy float64) float64 {
	if len(c.points) == 0 {
		return 0
	}
	good := 0
	for _, p := range c.points {
		if !p.HasAccuracy() || *p.Accuracy <= maxAccuracy {
			good++
		}
	}
	return float64(good) / float64(len(c.points))
}

// toStay materializes the cluster as an immutable stay point.
func (c *cluster) toStay() models.TimelineStayPoint {
	lat, lon := c.centroid()
	return models.TimelineStayPoint{
		UserID:          c.points[0].UserID,
		Latitude:        lat,
		Longitude:       lon,
		StartTime:       c.startTime,
		EndTime:         c.endTime,
		DurationSeconds: c.endTime - c.startTime,
		PointCount:      len(c.points),
	}
}
