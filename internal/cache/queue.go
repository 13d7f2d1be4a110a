package cache

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Priority orders regeneration work. Interactive edits jump ahead of bulk
// imports.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// Job is one queued (user, day) regeneration.
type Job struct {
	ID       string
	UserID   string
	Day      int64
	Priority Priority
}

// Regenerator recomputes one (user, day). *Gate satisfies it; the service
// layer wraps it to pick the right per-user configuration.
type Regenerator interface {
	RegenerateDay(ctx context.Context, userID string, day int64) error
}

// RegenQueue feeds background day regenerations through a bounded worker
// pool. Enqueueing is idempotent: re-queuing a (user, day) already pending is
// a no-op. Regeneration failures leave the previous cached snapshot in place.
type RegenQueue struct {
	regen   Regenerator
	high    chan Job
	low     chan Job
	workers int

	mu      sync.Mutex
	pending map[string]bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRegenQueue creates a queue draining into the given regenerator with the
// given number of workers.
func NewRegenQueue(regen Regenerator, workers int) *RegenQueue {
	if workers < 1 {
		workers = 2
	}
	return &RegenQueue{
		regen:   regen,
		high:    make(chan Job, 256),
		low:     make(chan Job, 1024),
		workers: workers,
		pending: make(map[string]bool),
	}
}

// Start launches the worker pool. Stop drains nothing: in-flight jobs finish,
// queued jobs are dropped.
func (q *RegenQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	log.Printf("[RegenQueue] Started %d workers", q.workers)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (q *RegenQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue queues one (user, day) regeneration. Returns false when the key is
// already pending or the lane is full.
func (q *RegenQueue) Enqueue(userID string, day int64, priority Priority) bool {
	day = DayStart(day)
	key := dayLockKey(userID, day)

	q.mu.Lock()
	if q.pending[key] {
		q.mu.Unlock()
		return false
	}
	q.pending[key] = true
	q.mu.Unlock()

	job := Job{ID: uuid.NewString(), UserID: userID, Day: day, Priority: priority}

	lane := q.low
	if priority == PriorityHigh {
		lane = q.high
	}
	select {
	case lane <- job:
		return true
	default:
		q.clearPending(key)
		log.Printf("[RegenQueue] Lane full, dropping job %s (user=%s day=%d)", job.ID, userID, day)
		return false
	}
}

// Pending reports whether a (user, day) regeneration is queued or running.
func (q *RegenQueue) Pending(userID string, day int64) bool {
	key := dayLockKey(userID, DayStart(day))
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[key]
}

func (q *RegenQueue) clearPending(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func (q *RegenQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		// Drain the high-priority lane before touching the low one.
		select {
		case <-ctx.Done():
			return
		case job := <-q.high:
			q.run(ctx, job)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return
		case job := <-q.high:
			q.run(ctx, job)
		case job := <-q.low:
			q.run(ctx, job)
		}
	}
}

func (q *RegenQueue) run(ctx context.Context, job Job) {
	defer q.clearPending(dayLockKey(job.UserID, job.Day))

	if err := q.regen.RegenerateDay(ctx, job.UserID, job.Day); err != nil {
		log.Printf("[RegenQueue] Job %s failed (user=%s day=%d), previous snapshot kept: %v",
			job.ID, job.UserID, job.Day, err)
		return
	}
	log.Printf("[RegenQueue] Job %s completed (user=%s day=%d)", job.ID, job.UserID, job.Day)
}
