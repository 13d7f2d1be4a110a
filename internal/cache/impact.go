package cache

import (
	"context"
	"fmt"
	"log"
)

// ImpactKind tags the outcome of a favorite-rename analysis.
type ImpactKind string

const (
	// ImpactNameOnly: only the display label changed; cached stays are
	// patched in place, no regeneration needed.
	ImpactNameOnly ImpactKind = "NAME_ONLY"
	// ImpactStructural: the location identity changed, which can alter merge
	// decisions; affected days are flagged stale and queued for regeneration.
	ImpactStructural ImpactKind = "STRUCTURAL"
)

// FavoriteRenamedEvent comes from the favorites collaborator when a place is
// renamed or re-keyed.
type FavoriteRenamedEvent struct {
	UserID      string `json:"userId"`
	LocationKey string `json:"locationKey"`
	OldLabel    string `json:"oldLabel"`
	NewLabel    string `json:"newLabel"`
	// KeyChanged is true when the stable identity changed, not just the name.
	KeyChanged bool `json:"keyChanged"`
}

// ImpactAnalysis reports which path was taken and what it touched.
type ImpactAnalysis struct {
	Kind         ImpactKind `json:"kind"`
	PatchedStays int64      `json:"patchedStays,omitempty"`
	QueuedDays   []int64    `json:"queuedDays,omitempty"`
}

// AnalyzeFavoriteRename routes a rename event: the fast path patches labels
// on cached stays in place; the slow path marks the affected days stale and
// queues their regeneration at interactive priority.
func AnalyzeFavoriteRename(ctx context.Context, store Store, queue *RegenQueue, ev FavoriteRenamedEvent) (*ImpactAnalysis, error) {
	if !ev.KeyChanged {
		patched, err := store.UpdateStayLabels(ctx, ev.UserID, ev.LocationKey, ev.NewLabel)
		if err != nil {
			return nil, fmt.Errorf("failed to patch stay labels: %w", err)
		}
		log.Printf("[Impact] Rename %q -> %q patched %d stays for user %s",
			ev.OldLabel, ev.NewLabel, patched, ev.UserID)
		return &ImpactAnalysis{Kind: ImpactNameOnly, PatchedStays: patched}, nil
	}

	days, err := store.DaysWithLocation(ctx, ev.UserID, ev.LocationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected days: %w", err)
	}
	queued := make([]int64, 0, len(days))
	for _, day := range days {
		if err := store.MarkDayStale(ctx, ev.UserID, day); err != nil {
			return nil, fmt.Errorf("failed to mark day %d stale: %w", day, err)
		}
		if queue.Enqueue(ev.UserID, day, PriorityHigh) {
			queued = append(queued, day)
		}
	}
	log.Printf("[Impact] Re-key of %s queued %d days for user %s", ev.LocationKey, len(queued), ev.UserID)
	return &ImpactAnalysis{Kind: ImpactStructural, QueuedDays: queued}, nil
}
