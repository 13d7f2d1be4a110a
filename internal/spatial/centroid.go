package spatial

import (
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// neutralWeight is used for points that carry no accuracy estimate.
const neutralWeight = 1.0

// WeightedCentroid computes the accuracy-weighted centroid of a point set.
// Each point is weighted by 1/accuracy so noisy fixes pull the center less;
// points without accuracy get a neutral weight.
func WeightedCentroid(points []models.TrackPoint) (lat, lon float64, err error) {
	if len(points) == 0 {
		return 0, 0, fmt.Errorf("%w: centroid of empty point set", models.ErrInvalidInput)
	}

	var sumLat, sumLon, sumWeight float64
	for _, p := range points {
		if !p.ValidCoordinates() {
			return 0, 0, fmt.Errorf("%w: coordinates out of range (%v, %v)",
				models.ErrInvalidInput, p.Latitude, p.Longitude)
		}
		w := neutralWeight
		if p.HasAccuracy() {
			w = 1.0 / *p.Accuracy
		}
		sumLat += p.Latitude * w
		sumLon += p.Longitude * w
		sumWeight += w
	}

	return sumLat / sumWeight, sumLon / sumWeight, nil
}

// PolylineLengthKm computes the along-path length of an ordered point sequence
// in kilometers. Fewer than two points yields 0.
func PolylineLengthKm(points []models.TrackPoint) float64 {
	var meters float64
	for i := 1; i < len(points); i++ {
		meters += Distance(points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude)
	}
	return meters / 1000.0
}
