package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/timeline"
)

// memStore is an in-memory Store for gate tests.
type memStore struct {
	mu     sync.Mutex
	days   map[string]*DayTimeline
	points []models.TrackPoint

	failPoints  bool
	pointsCalls int
	saveCalls   int
}

func newMemStore() *memStore {
	return &memStore{days: make(map[string]*DayTimeline)}
}

func (m *memStore) key(userID string, day int64) string {
	return fmt.Sprintf("%s:%d", userID, day)
}

func (m *memStore) LoadDay(ctx context.Context, userID string, dayStart int64) (*DayTimeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[m.key(userID, dayStart)]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) SaveDay(ctx context.Context, userID string, dayStart int64, hash string, stays []models.TimelineStayPoint, trips []models.TimelineTrip, gaps []models.DataGap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	m.days[m.key(userID, dayStart)] = &DayTimeline{Hash: hash, Stays: stays, Trips: trips, Gaps: gaps}
	return nil
}

func (m *memStore) DeleteDay(ctx context.Context, userID string, dayStart int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.days, m.key(userID, dayStart))
	return nil
}

func (m *memStore) MarkDayStale(ctx context.Context, userID string, dayStart int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.days[m.key(userID, dayStart)]; ok {
		d.Stale = true
	}
	return nil
}

func (m *memStore) PointsForWindow(ctx context.Context, userID string, start, end int64) ([]models.TrackPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pointsCalls++
	if m.failPoints {
		return nil, fmt.Errorf("storage offline")
	}
	var out []models.TrackPoint
	for _, p := range m.points {
		if p.UserID == userID && p.Timestamp >= start && p.Timestamp < end {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) InputSignature(ctx context.Context, userID string, start, end int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count, minTs, maxTs, sum int64
	for _, p := range m.points {
		if p.UserID != userID || p.Timestamp < start || p.Timestamp >= end {
			continue
		}
		if count == 0 || p.Timestamp < minTs {
			minTs = p.Timestamp
		}
		if p.Timestamp > maxTs {
			maxTs = p.Timestamp
		}
		sum += p.Timestamp
		count++
	}
	if count == 0 {
		return "0:0:0:0", nil
	}
	return fmt.Sprintf("%d:%d:%d:%d", count, minTs, maxTs, sum), nil
}

func (m *memStore) UpdateStayLabels(ctx context.Context, userID, locationKey, newLabel string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.days {
		for i := range d.Stays {
			if d.Stays[i].UserID == userID && d.Stays[i].LocationKey == locationKey {
				d.Stays[i].Label = newLabel
				n++
			}
		}
	}
	return n, nil
}

func (m *memStore) DaysWithLocation(ctx context.Context, userID, locationKey string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var days []int64
	for _, d := range m.days {
		for _, s := range d.Stays {
			if s.UserID == userID && s.LocationKey == locationKey {
				days = append(days, DayStart(s.StartTime))
				break
			}
		}
	}
	return days, nil
}

const (
	testDay   = int64(8 * 86400)
	testToday = int64(10 * 86400)
)

func ptr(v float64) *float64 { return &v }

// stationaryDay fills one cached-day window with a morning stay's worth of fixes.
func stationaryDay(userID string, day int64) []models.TrackPoint {
	var pts []models.TrackPoint
	for i := int64(0); i < 30; i++ {
		pts = append(pts, models.TrackPoint{
			UserID:    userID,
			Timestamp: day + 8*3600 + i*120,
			Latitude:  40.0,
			Longitude: 116.4,
			Velocity:  ptr(0.0),
		})
	}
	return pts
}

func newTestGate(t *testing.T, store Store) *Gate {
	t.Helper()
	proc, err := timeline.NewProcessor(models.DefaultTimelineConfig())
	require.NoError(t, err)
	g := NewGate(store, proc)
	g.now = func() time.Time { return time.Unix(testToday+3600, 0) }
	return g
}

func TestGateValidation(t *testing.T) {
	g := newTestGate(t, newMemStore())
	ctx := context.Background()

	_, err := g.Snapshot(ctx, "u1", 100, 100)
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = g.Snapshot(ctx, "u1", 0, 400*86400)
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGateLiveWindow(t *testing.T) {
	store := newMemStore()
	store.points = stationaryDay("u1", testToday)
	g := newTestGate(t, store)
	ctx := context.Background()

	snap, err := g.Snapshot(ctx, "u1", testToday, testToday+86400)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceLive, snap.DataSource)
	assert.NotEmpty(t, snap.Stays)
	assert.Zero(t, store.saveCalls, "live output must never be cached")
}

func TestGateLiveWindowDegradesOnReadError(t *testing.T) {
	store := newMemStore()
	store.failPoints = true
	g := newTestGate(t, store)

	snap, err := g.Snapshot(context.Background(), "u1", testToday, testToday+86400)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceLive, snap.DataSource)
	assert.Empty(t, snap.Stays)
}

func TestGatePastDayCaching(t *testing.T) {
	store := newMemStore()
	store.points = stationaryDay("u1", testDay)
	g := newTestGate(t, store)
	ctx := context.Background()

	first, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceCached, first.DataSource)
	require.NotEmpty(t, first.Stays)
	assert.NotEmpty(t, first.VersionFingerprint)
	assert.Equal(t, first.VersionFingerprint, first.Stays[0].VersionHash)
	assert.Equal(t, 1, store.saveCalls)
	readsAfterFirst := store.pointsCalls

	second, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceCached, second.DataSource)
	assert.Equal(t, first.VersionFingerprint, second.VersionFingerprint)
	assert.Equal(t, 1, store.saveCalls, "valid cache must be served without recompute")
	assert.Equal(t, readsAfterFirst, store.pointsCalls)
}

func TestGateInputChangeInvalidates(t *testing.T) {
	store := newMemStore()
	store.points = stationaryDay("u1", testDay)
	g := newTestGate(t, store)
	ctx := context.Background()

	first, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)

	// A late-arriving fix changes the input signature.
	store.mu.Lock()
	store.points = append(store.points, models.TrackPoint{
		UserID: "u1", Timestamp: testDay + 20*3600, Latitude: 40.0, Longitude: 116.4, Velocity: ptr(0.0),
	})
	store.mu.Unlock()

	second, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.NotEqual(t, first.VersionFingerprint, second.VersionFingerprint)
	assert.Equal(t, 2, store.saveCalls)
}

func TestGateStaleFlagInvalidates(t *testing.T) {
	store := newMemStore()
	store.points = stationaryDay("u1", testDay)
	g := newTestGate(t, store)
	ctx := context.Background()

	_, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	require.NoError(t, store.MarkDayStale(ctx, "u1", testDay))

	_, err = g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.Equal(t, 2, store.saveCalls)
}

func TestGateRegenFailureServesStaleCache(t *testing.T) {
	store := newMemStore()
	store.days[store.key("u1", testDay)] = &DayTimeline{
		Hash: "outdated",
		Stays: []models.TimelineStayPoint{{
			UserID: "u1", StartTime: testDay + 3600, EndTime: testDay + 7200,
			DurationSeconds: 3600, VersionHash: "outdated",
		}},
	}
	store.failPoints = true
	g := newTestGate(t, store)

	snap, err := g.Snapshot(context.Background(), "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.True(t, snap.IsStale)
	assert.Equal(t, models.DataSourceCached, snap.DataSource)
	assert.Equal(t, "outdated", snap.VersionFingerprint)
	require.Len(t, snap.Stays, 1)
}

func TestGateMultiDayPastWindow(t *testing.T) {
	store := newMemStore()
	store.points = append(stationaryDay("u1", testDay), stationaryDay("u1", testDay+86400)...)
	g := newTestGate(t, store)
	ctx := context.Background()

	t.Run("any invalid day falls back to direct recompute", func(t *testing.T) {
		snap, err := g.Snapshot(ctx, "u1", testDay, testDay+2*86400)
		require.NoError(t, err)
		assert.Equal(t, models.DataSourceLive, snap.DataSource)
		assert.Zero(t, store.saveCalls, "direct recompute must not write cache")
	})

	t.Run("all days valid combines cached output", func(t *testing.T) {
		_, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
		require.NoError(t, err)
		_, err = g.Snapshot(ctx, "u1", testDay+86400, testDay+2*86400)
		require.NoError(t, err)
		saves := store.saveCalls

		snap, err := g.Snapshot(ctx, "u1", testDay, testDay+2*86400)
		require.NoError(t, err)
		assert.Equal(t, models.DataSourceCached, snap.DataSource)
		assert.Len(t, snap.Stays, 2)
		assert.Equal(t, saves, store.saveCalls)
	})
}

func TestGateMixedWindow(t *testing.T) {
	store := newMemStore()
	yesterday := testToday - 86400
	store.points = append(stationaryDay("u1", yesterday), stationaryDay("u1", testToday)...)
	g := newTestGate(t, store)

	snap, err := g.Snapshot(context.Background(), "u1", yesterday, testToday+36000)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceMixed, snap.DataSource)
	assert.Len(t, snap.Stays, 2)
	assert.Equal(t, 1, store.saveCalls, "only the past day is cached")
}

func TestGateForceRegenerate(t *testing.T) {
	store := newMemStore()
	store.points = stationaryDay("u1", testDay)
	g := newTestGate(t, store)
	ctx := context.Background()

	_, err := g.Snapshot(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	require.Equal(t, 1, store.saveCalls)

	snap, err := g.ForceRegenerate(ctx, "u1", testDay, testDay+86400)
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceCached, snap.DataSource)
	assert.Equal(t, 2, store.saveCalls)
}

func TestGateDataSourceFor(t *testing.T) {
	g := newTestGate(t, newMemStore())
	assert.Equal(t, models.DataSourceLive, g.DataSourceFor("u1", testToday+100))
	assert.Equal(t, models.DataSourceCached, g.DataSourceFor("u1", testDay))
}

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		var km keyedMutex
		var n int

		km.lock("u1:0")
		done := make(chan struct{})
		go func() {
			km.lock("u1:0")
			n++
			km.unlock("u1:0")
			close(done)
		}()

		n++
		km.unlock("u1:0")
		<-done
		assert.Equal(t, 2, n)
	})

	t.Run("releases entries after the last unlock", func(t *testing.T) {
		var km keyedMutex
		for day := int64(0); day < 50; day++ {
			key := fmt.Sprintf("u1:%d", day*86400)
			km.lock(key)
			km.unlock(key)
		}

		km.mu.Lock()
		defer km.mu.Unlock()
		assert.Empty(t, km.locks)
	})

	t.Run("contended key survives until all holders are done", func(t *testing.T) {
		var km keyedMutex
		var wg sync.WaitGroup
		var n int
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				km.lock("u1:0")
				n++
				km.unlock("u1:0")
			}()
		}
		wg.Wait()

		assert.Equal(t, 8, n)
		km.mu.Lock()
		defer km.mu.Unlock()
		assert.Empty(t, km.locks)
	})
}
