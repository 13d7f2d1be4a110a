package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/timeline"
)

const secondsPerDay = 86400

// maxQuerySpanDays is the sanity ceiling on one timeline query.
const maxQuerySpanDays = 365

// DayStart truncates a Unix timestamp to its UTC day boundary.
func DayStart(ts int64) int64 {
	return ts - (ts % secondsPerDay)
}

// Gate decides, per (user, day), whether cached timeline output may be served
// or must be regenerated. It is the only component with shared state; all
// read-modify-write cycles for a day are serialized behind a per-key mutex.
type Gate struct {
	store Store
	proc  *timeline.Processor
	locks keyedMutex

	mu           sync.Mutex
	regenerating map[string]bool

	now func() time.Time
}

// NewGate builds a cache gate over the given store and segmentation processor.
func NewGate(store Store, proc *timeline.Processor) *Gate {
	return &Gate{
		store:        store,
		proc:         proc,
		regenerating: make(map[string]bool),
		now:          time.Now,
	}
}

func dayLockKey(userID string, day int64) string {
	return fmt.Sprintf("%s:%d", userID, day)
}

func (g *Gate) todayStart() int64 {
	t := g.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

func (g *Gate) setRegenerating(key string, v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v {
		g.regenerating[key] = true
	} else {
		delete(g.regenerating, key)
	}
}

func (g *Gate) isRegenerating(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.regenerating[key]
}

// Snapshot answers a timeline query for [start, end), applying the cache
// protocol: live windows are always computed fresh, past days are served from
// valid cache or regenerated, and windows spanning the live boundary combine
// both segments.
func (g *Gate) Snapshot(ctx context.Context, userID string, start, end int64) (*models.TimelineSnapshot, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	live := g.todayStart()

	switch {
	case start >= live:
		return g.computeLive(ctx, userID, start, end)
	case end <= live:
		return g.pastSnapshot(ctx, userID, start, end)
	default:
		return g.mixedSnapshot(ctx, userID, start, end, live)
	}
}

// ForceRegenerate clears the cached days of the window, recomputes them, and
// returns the fresh snapshot.
func (g *Gate) ForceRegenerate(ctx context.Context, userID string, start, end int64) (*models.TimelineSnapshot, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	live := g.todayStart()
	for _, day := range dayRange(start, minInt64(end, live)) {
		if err := g.store.DeleteDay(ctx, userID, day); err != nil {
			return nil, fmt.Errorf("failed to clear cached day %d: %w", day, err)
		}
		if err := g.RegenerateDay(ctx, userID, day); err != nil {
			return nil, err
		}
	}
	return g.Snapshot(ctx, userID, start, end)
}

// DataSourceFor reports how a single day would currently be served.
func (g *Gate) DataSourceFor(userID string, day int64) models.DataSource {
	day = DayStart(day)
	if g.isRegenerating(dayLockKey(userID, day)) {
		return models.DataSourceRegenerating
	}
	if day >= g.todayStart() {
		return models.DataSourceLive
	}
	return models.DataSourceCached
}

// RegenerateDay recomputes and persists one past day under its key lock.
// Used by the background queue and by ForceRegenerate. On failure any
// previously cached snapshot is left in place.
func (g *Gate) RegenerateDay(ctx context.Context, userID string, day int64) error {
	day = DayStart(day)
	key := dayLockKey(userID, day)
	g.locks.lock(key)
	defer g.locks.unlock(key)

	g.setRegenerating(key, true)
	defer g.setRegenerating(key, false)

	hash, err := g.dayFingerprint(ctx, userID, day)
	if err != nil {
		return err
	}
	_, err = g.regenerateDayLocked(ctx, userID, day, hash)
	return err
}

func validateWindow(start, end int64) error {
	if end <= start {
		return fmt.Errorf("%w: query end %d not after start %d", models.ErrInvalidInput, end, start)
	}
	if end-start > maxQuerySpanDays*secondsPerDay {
		return fmt.Errorf("%w: query exceeds %d days", models.ErrInvalidInput, maxQuerySpanDays)
	}
	return nil
}

// dayRange enumerates the UTC day starts covered by [start, end).
func dayRange(start, end int64) []int64 {
	if end <= start {
		return nil
	}
	var days []int64
	for day := DayStart(start); day < end; day += secondsPerDay {
		days = append(days, day)
	}
	return days
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// computeLive runs a fresh segmentation pass for a live (today/incomplete)
// window. Never cached. Input read failures degrade to an empty timeline
// rather than failing the query: best-effort for the live view.
func (g *Gate) computeLive(ctx context.Context, userID string, start, end int64) (*models.TimelineSnapshot, error) {
	points, err := g.store.PointsForWindow(ctx, userID, start, end)
	if err != nil {
		log.Printf("[CacheGate] Degrading live window for user %s to empty timeline: %v", userID, err)
		return &models.TimelineSnapshot{UserID: userID, DataSource: models.DataSourceLive}, nil
	}
	stays, trips, gaps, err := g.proc.ProcessWindow(userID, points, start, end)
	if err != nil {
		return nil, err
	}
	return &models.TimelineSnapshot{
		UserID:     userID,
		Stays:      stays,
		Trips:      trips,
		DataGaps:   gaps,
		DataSource: models.DataSourceLive,
	}, nil
}

// computeDirect recomputes a past window without touching the cache. This is
// the fallback for multi-day fully-past windows with any staleness: full
// direct recomputation instead of per-day incremental regeneration.
func (g *Gate) computeDirect(ctx context.Context, userID string, start, end int64) (*models.TimelineSnapshot, error) {
	points, err := g.store.PointsForWindow(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixes for window: %w", err)
	}
	stays, trips, gaps, err := g.proc.ProcessWindow(userID, points, start, end)
	if err != nil {
		return nil, err
	}
	return &models.TimelineSnapshot{
		UserID:     userID,
		Stays:      stays,
		Trips:      trips,
		DataGaps:   gaps,
		DataSource: models.DataSourceLive,
	}, nil
}

func (g *Gate) pastSnapshot(ctx context.Context, userID string, start, end int64) (*models.TimelineSnapshot, error) {
	days := dayRange(start, end)

	if len(days) == 1 {
		snap, err := g.resolveDay(ctx, userID, days[0])
		if err != nil {
			return nil, err
		}
		clipSnapshot(snap, start, end)
		return snap, nil
	}

	// Multi-day fully-past window: serve from cache only when every day is
	// valid; otherwise fall back to one full direct recomputation.
	var combined models.TimelineSnapshot
	combined.UserID = userID
	combined.DataSource = models.DataSourceCached

	for _, day := range days {
		hash, err := g.dayFingerprint(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		cached, err := g.store.LoadDay(ctx, userID, day)
		if err != nil {
			return nil, fmt.Errorf("failed to read cached day %d: %w", day, err)
		}
		if cached == nil || !dayValid(cached, hash) {
			return g.computeDirect(ctx, userID, start, end)
		}
		combined.Stays = append(combined.Stays, cached.Stays...)
		combined.Trips = append(combined.Trips, cached.Trips...)
		combined.DataGaps = append(combined.DataGaps, cached.Gaps...)
	}
	clipSnapshot(&combined, start, end)
	return &combined, nil
}

func (g *Gate) mixedSnapshot(ctx context.Context, userID string, start, end, live int64) (*models.TimelineSnapshot, error) {
	combined := &models.TimelineSnapshot{
		UserID:     userID,
		DataSource: models.DataSourceMixed,
	}

	for _, day := range dayRange(start, live) {
		snap, err := g.resolveDay(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		combined.Stays = append(combined.Stays, snap.Stays...)
		combined.Trips = append(combined.Trips, snap.Trips...)
		combined.DataGaps = append(combined.DataGaps, snap.DataGaps...)
		combined.IsStale = combined.IsStale || snap.IsStale
	}

	liveSnap, err := g.computeLive(ctx, userID, live, end)
	if err != nil {
		return nil, err
	}
	combined.Stays = append(combined.Stays, liveSnap.Stays...)
	combined.Trips = append(combined.Trips, liveSnap.Trips...)
	combined.DataGaps = append(combined.DataGaps, liveSnap.DataGaps...)

	clipSnapshot(combined, start, end)
	return combined, nil
}

// resolveDay applies the per-day protocol under the day's key lock: valid
// cache is returned as-is; a mismatched or absent day is regenerated and
// persisted with the new hash. A failed regeneration serves the previous
// stale-but-present snapshot rather than nothing.
func (g *Gate) resolveDay(ctx context.Context, userID string, day int64) (*models.TimelineSnapshot, error) {
	key := dayLockKey(userID, day)
	g.locks.lock(key)
	defer g.locks.unlock(key)

	hash, err := g.dayFingerprint(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	cached, err := g.store.LoadDay(ctx, userID, day)
	if err != nil {
		// Past-window cache read failures must surface: the caller has to
		// know the cache is untrustworthy.
		return nil, fmt.Errorf("failed to read cached day %d: %w", day, err)
	}
	if cached != nil && dayValid(cached, hash) {
		return &models.TimelineSnapshot{
			UserID:             userID,
			Stays:              cached.Stays,
			Trips:              cached.Trips,
			DataGaps:           cached.Gaps,
			DataSource:         models.DataSourceCached,
			VersionFingerprint: hash,
		}, nil
	}

	snap, err := g.regenerateDayLocked(ctx, userID, day, hash)
	if err != nil {
		if cached != nil {
			log.Printf("[CacheGate] Regeneration failed for user %s day %d, serving stale cache: %v",
				userID, day, err)
			return &models.TimelineSnapshot{
				UserID:             userID,
				Stays:              cached.Stays,
				Trips:              cached.Trips,
				DataGaps:           cached.Gaps,
				DataSource:         models.DataSourceCached,
				VersionFingerprint: cached.Hash,
				IsStale:            true,
			}, nil
		}
		return nil, err
	}
	return snap, nil
}

func (g *Gate) dayFingerprint(ctx context.Context, userID string, day int64) (string, error) {
	sig, err := g.store.InputSignature(ctx, userID, day, day+secondsPerDay)
	if err != nil {
		return "", fmt.Errorf("failed to compute input signature for day %d: %w", day, err)
	}
	return Fingerprint(userID, day, sig, g.proc.Config()), nil
}

// regenerateDayLocked recomputes one day and persists it with the new hash.
// Callers must hold the day's key lock.
func (g *Gate) regenerateDayLocked(ctx context.Context, userID string, day int64, hash string) (*models.TimelineSnapshot, error) {
	points, err := g.store.PointsForWindow(ctx, userID, day, day+secondsPerDay)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixes for day %d: %w", day, err)
	}
	stays, trips, gaps, err := g.proc.ProcessWindow(userID, points, day, day+secondsPerDay)
	if err != nil {
		return nil, err
	}

	for i := range stays {
		stays[i].VersionHash = hash
	}
	for i := range trips {
		trips[i].VersionHash = hash
	}
	for i := range gaps {
		gaps[i].VersionHash = hash
	}

	if err := g.store.SaveDay(ctx, userID, day, hash, stays, trips, gaps); err != nil {
		return nil, fmt.Errorf("failed to persist day %d: %w", day, err)
	}

	return &models.TimelineSnapshot{
		UserID:             userID,
		Stays:              stays,
		Trips:              trips,
		DataGaps:           gaps,
		DataSource:         models.DataSourceCached,
		VersionFingerprint: hash,
	}, nil
}

// dayValid reports whether a cached day may be served: the stored hash must
// equal the current one, and every stay/trip must carry it with no stale flag.
func dayValid(d *DayTimeline, hash string) bool {
	if d.Stale || d.Hash != hash {
		return false
	}
	for _, s := range d.Stays {
		if s.VersionHash != hash || s.Stale {
			return false
		}
	}
	for _, t := range d.Trips {
		if t.VersionHash != hash || t.Stale {
			return false
		}
	}
	return true
}

// clipSnapshot trims entities that fall entirely outside the query window.
// Cached days are full days; sub-day queries keep overlapping entities.
func clipSnapshot(snap *models.TimelineSnapshot, start, end int64) {
	stays := snap.Stays[:0:0]
	for _, s := range snap.Stays {
		if s.EndTime > start && s.StartTime < end {
			stays = append(stays, s)
		}
	}
	snap.Stays = stays

	trips := snap.Trips[:0:0]
	for _, t := range snap.Trips {
		if t.EndTimestamp > start && t.StartTimestamp < end {
			trips = append(trips, t)
		}
	}
	snap.Trips = trips

	gaps := snap.DataGaps[:0:0]
	for _, gp := range snap.DataGaps {
		if gp.EndTime > start && gp.StartTime < end {
			gaps = append(gaps, gp)
		}
	}
	snap.DataGaps = gaps
}

// keyedMutex serializes work per string key. Entries are reference-counted
// and removed when the last holder unlocks, so the map stays bounded by the
// number of keys currently in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()
	l.mu.Lock()
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
	l.mu.Unlock()
}
