package cache

import (
	"context"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// DayTimeline is the persisted timeline of one (user, day), plus the version
// metadata governing its validity.
type DayTimeline struct {
	Hash  string
	Stale bool
	Stays []models.TimelineStayPoint
	Trips []models.TimelineTrip
	Gaps  []models.DataGap
}

// Store is the persistence boundary of the cache gate. Callers treat it as a
// blocking call; retry on transient failure belongs to the implementation.
type Store interface {
	// LoadDay returns the cached timeline for a day, or nil when none exists.
	LoadDay(ctx context.Context, userID string, dayStart int64) (*DayTimeline, error)
	// SaveDay atomically replaces the cached timeline for a day. Either the
	// full day commits or nothing does; partial results are never published.
	SaveDay(ctx context.Context, userID string, dayStart int64, hash string, stays []models.TimelineStayPoint, trips []models.TimelineTrip, gaps []models.DataGap) error
	// DeleteDay removes the cached timeline for a day.
	DeleteDay(ctx context.Context, userID string, dayStart int64) error
	// MarkDayStale flags a cached day without deleting it.
	MarkDayStale(ctx context.Context, userID string, dayStart int64) error

	// PointsForWindow returns the ordered, deduplicated fixes of [start, end).
	PointsForWindow(ctx context.Context, userID string, start, end int64) ([]models.TrackPoint, error)
	// InputSignature summarizes the identity of the fixes in [start, end) for
	// fingerprinting; it must change whenever the underlying fixes change.
	InputSignature(ctx context.Context, userID string, start, end int64) (string, error)

	// UpdateStayLabels patches the display label of every cached stay with the
	// given location key. Returns the number of stays patched.
	UpdateStayLabels(ctx context.Context, userID, locationKey, newLabel string) (int64, error)
	// DaysWithLocation lists the day starts whose cached timeline references
	// the given location key.
	DaysWithLocation(ctx context.Context, userID, locationKey string) ([]int64, error)
}
