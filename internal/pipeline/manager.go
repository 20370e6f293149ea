package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"reelsmith/internal/config"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
)

const (
	defaultPollInterval  = 3 * time.Second
	defaultRetryInterval = 10 * time.Second
	defaultMaxConcurrent = 1
)

// Processor runs a single job to a terminal state.
type Processor interface {
	Process(ctx context.Context, job *jobstore.Job) error
}

// Manager polls the store for pending jobs and admits them to the processor
// under a concurrency bound.
type Manager struct {
	store     *jobstore.Store
	processor Processor
	notifier  notifications.Service
	logger    *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration
	sem           *semaphore.Weighted

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	workers sync.WaitGroup

	active    atomic.Int64
	processed atomic.Int64
}

// NewManager creates a manager bound by the pipeline configuration. A nil
// notifier falls back to the configured notification service.
func NewManager(cfg *config.Config, store *jobstore.Store, processor Processor, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil && cfg != nil {
		notifier = notifications.NewService(cfg)
	}
	poll := defaultPollInterval
	if cfg != nil && cfg.Pipeline.QueuePollInterval > 0 {
		poll = time.Duration(cfg.Pipeline.QueuePollInterval) * time.Second
	}
	retry := defaultRetryInterval
	if cfg != nil && cfg.Pipeline.ErrorRetryInterval > 0 {
		retry = time.Duration(cfg.Pipeline.ErrorRetryInterval) * time.Second
	}
	maxConcurrent := defaultMaxConcurrent
	if cfg != nil && cfg.Pipeline.MaxConcurrentJobs > 0 {
		maxConcurrent = cfg.Pipeline.MaxConcurrentJobs
	}
	return &Manager{
		store:         store,
		processor:     processor,
		notifier:      notifier,
		logger:        logger.With(logging.String(logging.FieldComponent, "pipeline-manager")),
		pollInterval:  poll,
		retryInterval: retry,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Start launches the polling loop. Jobs stranded in processing by an earlier
// run are returned to pending first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline manager already running")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	m.logger.Info("pipeline manager started",
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop cancels the loop and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.workers.Wait()
	m.logger.Info("pipeline manager stopped")
}

// Running reports whether the polling loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := m.store.NextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("poll for pending job failed", logging.Error(err))
			if !m.waitOrShutdown(ctx, m.retryInterval) {
				return
			}
			continue
		}
		if job == nil {
			m.notifyDrained(ctx)
			if !m.waitOrShutdown(ctx, m.pollInterval) {
				return
			}
			continue
		}

		if err := m.sem.Acquire(ctx, 1); err != nil {
			return
		}
		// Claim the row before the next poll iteration so it is not
		// admitted twice.
		job.Status = jobstore.StatusProcessing
		job.SetProgress("admitted", job.Progress)
		if err := m.store.Update(ctx, job); err != nil {
			m.sem.Release(1)
			m.logger.Error("claim pending job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			if !m.waitOrShutdown(ctx, m.retryInterval) {
				return
			}
			continue
		}

		m.workers.Add(1)
		m.active.Add(1)
		go func(job *jobstore.Job) {
			defer m.workers.Done()
			defer m.sem.Release(1)
			defer m.active.Add(-1)
			if err := m.processor.Process(ctx, job); err != nil {
				m.logger.Error("job processing failed",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
			}
			m.processed.Add(1)
		}(job)
	}
}

// notifyDrained fires once per batch: when the queue empties after at least
// one job finished and nothing is in flight.
func (m *Manager) notifyDrained(ctx context.Context) {
	if m.notifier == nil || m.active.Load() != 0 {
		return
	}
	processed := m.processed.Swap(0)
	if processed == 0 {
		return
	}
	if err := m.notifier.NotifyQueueDrained(ctx, int(processed)); err != nil {
		m.logger.Warn("queue drained notification failed", logging.Error(err))
	}
}

// waitOrShutdown sleeps for the given duration, returning false when the
// manager is shutting down.
func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
