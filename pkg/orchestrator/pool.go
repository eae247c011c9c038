package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/resilix/orchestrator/pkg/models"
)

// Sentinel errors for pool operations.
var (
	// ErrQueueFull indicates the background job queue has no free slots.
	ErrQueueFull = errors.New("orchestrator: queue full")
	// ErrIncidentActive indicates a pipeline run is already in progress for
	// this incident_id; at most one run executes per incident at a time.
	ErrIncidentActive = errors.New("orchestrator: incident already processing")
)

// Store is the subset of the session store the pool needs to persist a
// pipeline's resulting incident state.
type Store interface {
	Save(ctx context.Context, state *models.IncidentState) error
}

// job is one unit of background pipeline work.
type job struct {
	incidentID string
	rawAlert   map[string]any
}

// PoolHealth reports the background job pool's health (spec §4.9 GET /health).
type PoolHealth struct {
	IsHealthy      bool      `json:"is_healthy"`
	PodID          string    `json:"pod_id"`
	TotalWorkers   int       `json:"total_workers"`
	ActiveIncidents int      `json:"active_incidents"`
	QueueDepth     int       `json:"queue_depth"`
	QueueCapacity  int       `json:"queue_capacity"`
	Processed      int       `json:"processed"`
	StartedAt      time.Time `json:"started_at"`
}

// Pool runs incident pipelines on a fixed-size worker pool, adapted from
// the teacher's queue.WorkerPool/Worker pair: the same activeSessions
// cancel-registry and graceful-stop shape, but jobs are dispatched over an
// in-memory channel instead of claimed from a polled database table, since
// this module has no generated queue ORM.
type Pool struct {
	podID       string
	pipeline    *Pipeline
	store       Store
	workerCount int

	queue chan job

	mu              sync.Mutex
	activeIncidents map[string]context.CancelFunc
	processed       int
	startedAt       time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(podID string, pipeline *Pipeline, store Store, workerCount, queueCapacity int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = workerCount * 4
	}
	return &Pool{
		podID:           podID,
		pipeline:        pipeline,
		store:           store,
		workerCount:     workerCount,
		queue:           make(chan job, queueCapacity),
		activeIncidents: make(map[string]context.CancelFunc),
		stopCh:          make(chan struct{}),
	}
}

// Start spawns the worker goroutines. Safe to call once; later calls are
// no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.startedAt = time.Now().UTC()
	p.mu.Unlock()

	slog.Info("starting orchestrator pool", "pod_id", p.podID, "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		p.wg.Add(1)
		go p.run(ctx, workerID)
	}
}

// Stop signals all workers to stop after their current job, then waits for
// them. Jobs still in the queue are not processed.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	slog.Info("orchestrator pool stopped", "pod_id", p.podID)
}

// Submit enqueues an incident for background processing. It returns
// ErrIncidentActive if a run for this incident_id is already underway, and
// ErrQueueFull if the queue has no free capacity — the caller (the webhook
// handler) should treat both as "try again" rather than as fatal.
func (p *Pool) Submit(incidentID string, rawAlert map[string]any) error {
	p.mu.Lock()
	if _, active := p.activeIncidents[incidentID]; active {
		p.mu.Unlock()
		return ErrIncidentActive
	}
	p.mu.Unlock()

	select {
	case p.queue <- job{incidentID: incidentID, rawAlert: rawAlert}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel cancels a running pipeline for the given incident, if this pod is
// running it. Returns true if found and cancelled.
func (p *Pool) Cancel(incidentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.activeIncidents[incidentID]; ok {
		cancel()
		return true
	}
	return false
}

// Health reports the pool's current status.
func (p *Pool) Health() PoolHealth {
	p.mu.Lock()
	active := len(p.activeIncidents)
	processed := p.processed
	startedAt := p.startedAt
	p.mu.Unlock()

	return PoolHealth{
		IsHealthy:       p.workerCount > 0,
		PodID:           p.podID,
		TotalWorkers:    p.workerCount,
		ActiveIncidents: active,
		QueueDepth:      len(p.queue),
		QueueCapacity:   cap(p.queue),
		Processed:       processed,
		StartedAt:       startedAt,
	}
}

func (p *Pool) run(ctx context.Context, workerID string) {
	defer p.wg.Done()
	log := slog.With("worker_id", workerID, "pod_id", p.podID)
	log.Info("orchestrator worker started")

	for {
		select {
		case <-p.stopCh:
			log.Info("orchestrator worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, orchestrator worker shutting down")
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(ctx, j, log)
		}
	}
}

func (p *Pool) process(ctx context.Context, j job, log *slog.Logger) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.activeIncidents[j.incidentID] = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.activeIncidents, j.incidentID)
		p.mu.Unlock()
	}()

	log.Info("processing incident", "incident_id", j.incidentID)

	state, err := p.pipeline.Run(runCtx, j.rawAlert, j.incidentID)
	if err != nil {
		log.Error("pipeline run failed", "incident_id", j.incidentID, "error", err)
		return
	}

	if err := p.store.Save(context.Background(), state); err != nil {
		log.Error("failed to persist incident state", "incident_id", j.incidentID, "error", err)
		return
	}

	p.mu.Lock()
	p.processed++
	p.mu.Unlock()

	log.Info("incident processed", "incident_id", j.incidentID)
}
