package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lifetrace/timeline-backend-go/internal/cache"
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/repository"
	"github.com/lifetrace/timeline-backend-go/internal/timeline"
)

// TimelineService orchestrates segmentation, caching, and overnight
// continuity. Each user gets a gate built from the defaults merged with their
// stored override; gates are cached until the override changes, because the
// configuration participates in cache fingerprints.
type TimelineService struct {
	store      *repository.TimelineRepository
	configRepo *repository.ConfigRepository
	continuity *timeline.ContinuityProcessor
	base       models.TimelineConfig

	queue *cache.RegenQueue

	mu    sync.Mutex
	gates map[string]*cache.Gate
}

// NewTimelineService wires the service. Call StartQueue before serving and
// StopQueue on shutdown.
func NewTimelineService(store *repository.TimelineRepository, configRepo *repository.ConfigRepository, workers int) *TimelineService {
	s := &TimelineService{
		store:      store,
		configRepo: configRepo,
		continuity: timeline.NewContinuityProcessor(store),
		base:       models.DefaultTimelineConfig(),
		gates:      make(map[string]*cache.Gate),
	}
	s.queue = cache.NewRegenQueue(s, workers)
	return s
}

// StartQueue launches the background regeneration workers.
func (s *TimelineService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue waits for in-flight regenerations to finish.
func (s *TimelineService) StopQueue() {
	s.queue.Stop()
}

// GetTimeline answers a timeline query through the cache gate, then applies
// overnight continuity at the window's start boundary.
func (s *TimelineService) GetTimeline(ctx context.Context, filter models.TimelineFilter) (*models.TimelineSnapshot, error) {
	gate, err := s.gateFor(ctx, filter.UserID)
	if err != nil {
		return nil, err
	}
	snap, err := gate.Snapshot(ctx, filter.UserID, filter.StartTime, filter.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to build timeline: %w", err)
	}

	boundary := cache.DayStart(filter.StartTime)
	if boundary == filter.StartTime {
		var firstStay *models.TimelineStayPoint
		if len(snap.Stays) > 0 {
			firstStay = &snap.Stays[0]
		}
		outcome, err := s.continuity.Reconcile(ctx, filter.UserID, boundary, firstStay)
		if err != nil {
			log.Printf("[TimelineService] Continuity reconcile failed for user %s: %v", filter.UserID, err)
		} else if outcome == timeline.OutcomeExtended {
			log.Printf("[TimelineService] Overnight stay extended for user %s at boundary %d", filter.UserID, boundary)
		}
	}
	return snap, nil
}

// ForceRegenerate discards cached days in the window and recomputes them.
func (s *TimelineService) ForceRegenerate(ctx context.Context, filter models.TimelineFilter) (*models.TimelineSnapshot, error) {
	gate, err := s.gateFor(ctx, filter.UserID)
	if err != nil {
		return nil, err
	}
	return gate.ForceRegenerate(ctx, filter.UserID, filter.StartTime, filter.EndTime)
}

// DataSource reports how a given day would currently be served.
func (s *TimelineService) DataSource(ctx context.Context, userID string, day int64) (models.DataSource, error) {
	gate, err := s.gateFor(ctx, userID)
	if err != nil {
		return "", err
	}
	return gate.DataSourceFor(userID, day), nil
}

// RegenerateDay dispatches a queued job through the user's gate.
func (s *TimelineService) RegenerateDay(ctx context.Context, userID string, day int64) error {
	gate, err := s.gateFor(ctx, userID)
	if err != nil {
		return err
	}
	return gate.RegenerateDay(ctx, userID, day)
}

// OnFavoriteRenamed routes a rename event into the impact analyzer.
func (s *TimelineService) OnFavoriteRenamed(ctx context.Context, ev cache.FavoriteRenamedEvent) (*cache.ImpactAnalysis, error) {
	return cache.AnalyzeFavoriteRename(ctx, s.store, s.queue, ev)
}

// GetConfig returns the user's effective configuration after override merge.
func (s *TimelineService) GetConfig(ctx context.Context, userID string) (models.TimelineConfig, error) {
	override, err := s.configRepo.GetOverride(ctx, userID)
	if err != nil {
		return models.TimelineConfig{}, err
	}
	return s.base.MergeOverride(override), nil
}

// UpdateConfig validates and stores a per-user override. The cached gate is
// dropped so the next query picks up the new fingerprint, which naturally
// invalidates cached days.
func (s *TimelineService) UpdateConfig(ctx context.Context, userID string, override models.TimelineConfigOverride) (models.TimelineConfig, error) {
	merged := s.base.MergeOverride(&override)
	if err := merged.Validate(); err != nil {
		return models.TimelineConfig{}, err
	}
	if err := s.configRepo.SaveOverride(ctx, userID, override); err != nil {
		return models.TimelineConfig{}, err
	}

	s.mu.Lock()
	delete(s.gates, userID)
	s.mu.Unlock()

	return merged, nil
}

// ResetConfig removes the user's override, reverting them to defaults.
func (s *TimelineService) ResetConfig(ctx context.Context, userID string) error {
	if err := s.configRepo.DeleteOverride(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.gates, userID)
	s.mu.Unlock()
	return nil
}

func (s *TimelineService) gateFor(ctx context.Context, userID string) (*cache.Gate, error) {
	s.mu.Lock()
	if gate, ok := s.gates[userID]; ok {
		s.mu.Unlock()
		return gate, nil
	}
	s.mu.Unlock()

	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config for user %s: %w", userID, err)
	}
	proc, err := timeline.NewProcessor(cfg)
	if err != nil {
		return nil, err
	}
	gate := cache.NewGate(s.store, proc)

	s.mu.Lock()
	// Another goroutine may have built one meanwhile; keep the first.
	if existing, ok := s.gates[userID]; ok {
		gate = existing
	} else {
		s.gates[userID] = gate
	}
	s.mu.Unlock()
	return gate, nil
}
