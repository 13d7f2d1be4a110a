package timeline

import (
	"context"
	"fmt"
	"log"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// ContinuityOutcome describes what the overnight processor did at a boundary.
type ContinuityOutcome string

const (
	// OutcomeStandalone: no previously persisted event exists before the
	// boundary; the new window is processed on its own.
	OutcomeStandalone ContinuityOutcome = "STANDALONE"
	// OutcomeExtended: the predecessor stay's end boundary was moved forward
	// to the instant the new day's activity begins, producing one logically
	// continuous stay spanning midnight.
	OutcomeExtended ContinuityOutcome = "EXTENDED"
	// OutcomeUntouched: the new window has no events, or starts with more of
	// the same stay; the predecessor is left as persisted.
	OutcomeUntouched ContinuityOutcome = "UNTOUCHED"
)

// PredecessorStore is the slice of persistence the continuity processor needs:
// read the predecessor, then perform one targeted end-boundary update. It
// never deletes or rewrites history beyond extending it.
type PredecessorStore interface {
	LastStayBefore(ctx context.Context, userID string, boundary int64) (*models.TimelineStayPoint, error)
	ExtendStayEnd(ctx context.Context, stayID int64, newEndTime int64) error
}

// ContinuityProcessor stitches a stay across a day-processing boundary,
// typically midnight.
type ContinuityProcessor struct {
	store PredecessorStore
}

func NewContinuityProcessor(store PredecessorStore) *ContinuityProcessor {
	return &ContinuityProcessor{store: store}
}

// Reconcile applies the three-outcome state machine for one boundary.
// firstNew is the first event of the new window, nil when the window is empty.
func (p *ContinuityProcessor) Reconcile(ctx context.Context, userID string, boundary int64, firstNew *models.TimelineStayPoint) (ContinuityOutcome, error) {
	pred, err := p.store.LastStayBefore(ctx, userID, boundary)
	if err != nil {
		return "", fmt.Errorf("failed to load predecessor stay: %w", err)
	}
	if pred == nil {
		return OutcomeStandalone, nil
	}
	if firstNew == nil {
		return OutcomeUntouched, nil
	}
	// An unresolved location on either side is no continuation signal: the
	// new stay may well be the same place, so the predecessor stands.
	if firstNew.LocationKey == "" || pred.LocationKey == "" {
		return OutcomeUntouched, nil
	}
	// More of the same stay: nothing to extend, the new window's own
	// segmentation carries it.
	if firstNew.LocationKey == pred.LocationKey {
		return OutcomeUntouched, nil
	}
	// A different location must begin after the boundary for the predecessor
	// to have lasted overnight.
	if firstNew.StartTime <= boundary {
		return OutcomeUntouched, nil
	}

	if err := p.store.ExtendStayEnd(ctx, pred.ID, firstNew.StartTime); err != nil {
		return "", fmt.Errorf("failed to extend predecessor stay %d: %w", pred.ID, err)
	}
	log.Printf("[Continuity] Extended stay %d for user %s: end %d -> %d",
		pred.ID, userID, pred.EndTime, firstNew.StartTime)
	return OutcomeExtended, nil
}
