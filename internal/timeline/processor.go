package timeline

import (
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/detector"
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/trips"
)

// maxWindowDays is the sanity ceiling on a single segmentation window.
const maxWindowDays = 365

// Processor runs one full segmentation pass for a window: stay detection,
// trip building and classification, stay merging, gap detection. It holds no
// mutable state and is safe to use concurrently for different users.
type Processor struct {
	cfg models.TimelineConfig
	det detector.Detector
}

// NewProcessor validates the config (fail fast, before any points are seen)
// and selects the configured detector algorithm.
func NewProcessor(cfg models.TimelineConfig) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	det, err := detector.ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Processor{cfg: cfg, det: det}, nil
}

// Config returns the tunables this processor was built with.
func (p *Processor) Config() models.TimelineConfig {
	return p.cfg
}

// ProcessWindow segments the points of [start, end) into stays, trips and
// data gaps. Points must be ordered and deduplicated by the ingestion
// collaborator.
func (p *Processor) ProcessWindow(userID string, points []models.TrackPoint, start, end int64) ([]models.TimelineStayPoint, []models.TimelineTrip, []models.DataGap, error) {
	if end <= start {
		return nil, nil, nil, fmt.Errorf("%w: window end %d not after start %d",
			models.ErrInvalidInput, end, start)
	}
	if end-start > maxWindowDays*24*3600 {
		return nil, nil, nil, fmt.Errorf("%w: window exceeds %d days",
			models.ErrInvalidInput, maxWindowDays)
	}

	stays, err := p.det.Detect(p.cfg, points)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to detect stays: %w", err)
	}

	builtTrips := trips.BuildTrips(p.cfg, points, stays)
	stays, builtTrips = MergeStays(p.cfg, stays, builtTrips)

	timestamps := make([]int64, 0, len(points))
	for _, pt := range points {
		if pt.ValidCoordinates() {
			timestamps = append(timestamps, pt.Timestamp)
		}
	}
	gaps, err := DetectGaps(p.cfg, userID, start, end, timestamps)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to detect gaps: %w", err)
	}

	return stays, builtTrips, gaps, nil
}
