package detector

import (
	"fmt"
	"log"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// Detector clusters an ordered fix stream into stay points. Implementations
// are pure: safe to share across goroutines, no retained state between calls.
type Detector interface {
	// Detect returns the stays found in points, ordered by time. Empty input
	// yields empty output, not an error. Config is validated before any point
	// is processed.
	Detect(cfg models.TimelineConfig, points []models.TrackPoint) ([]models.TimelineStayPoint, error)

	// Name returns the algorithm name this detector registered under.
	Name() string
}

// Factory creates a detector instance.
type Factory func() Detector

var registry = make(map[string]Factory)

// Register registers a detector factory for an algorithm name.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New returns the detector registered under the given algorithm name.
func New(name string) (Detector, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown detector algorithm %q", models.ErrInvalidConfig, name)
	}
	return factory(), nil
}

// ForConfig selects the detector named by the config.
func ForConfig(cfg models.TimelineConfig) (Detector, error) {
	return New(cfg.DetectorAlgorithm)
}

// sanitize drops fixes with impossible coordinates. One bad fix must not abort
// a whole day's segmentation, so bad points are logged and skipped.
func sanitize(points []models.TrackPoint) []models.TrackPoint {
	out := make([]models.TrackPoint, 0, len(points))
	for _, p := range points {
		if !p.ValidCoordinates() {
			log.Printf("[Detector] Skipping fix with out-of-range coordinates (%v, %v) at %d",
				p.Latitude, p.Longitude, p.Timestamp)
			continue
		}
		out = append(out, p)
	}
	return out
}
