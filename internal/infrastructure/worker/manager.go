package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Status is a point-in-time view of the managed workers.
type Status struct {
	Running    bool
	Registered int
	Started    []string
	Failed     map[string]string // worker name -> start error
}

// Healthy reports whether every registered worker is running.
func (s Status) Healthy() bool {
	return s.Running && len(s.Failed) == 0
}

func (s Status) String() string {
	msg := fmt.Sprintf("running: %d/%d", len(s.Started), s.Registered)
	for name, reason := range s.Failed {
		msg += fmt.Sprintf("; %s: %s", name, reason)
	}
	return msg
}

// WorkerManager owns the lifecycle of the background workers. A worker that
// fails to start does not block the others; it is reported through Status.
type WorkerManager struct {
	logger *zap.Logger

	mu        sync.RWMutex
	workers   []Worker
	started   []Worker
	failed    map[string]string
	isRunning bool
	cancel    context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		logger: logger,
		failed: make(map[string]string),
	}
}

// Register adds a worker to be managed
func (m *WorkerManager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts all registered workers under a context derived from ctx.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("workers already running")
	}

	var workerCtx context.Context
	workerCtx, m.cancel = context.WithCancel(ctx)
	m.isRunning = true
	m.started = m.started[:0]
	m.failed = make(map[string]string)

	for _, w := range m.workers {
		if err := w.Start(workerCtx); err != nil {
			m.failed[w.Name()] = err.Error()
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			continue
		}
		m.started = append(m.started, w)
		m.logger.Info("Worker started", zap.String("worker_name", w.Name()))
	}

	return nil
}

// StopAll stops started workers in reverse start order
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}
	m.isRunning = false

	if m.cancel != nil {
		m.cancel()
	}

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
		}
	}
	m.started = m.started[:0]

	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d workers: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Status returns a snapshot for health reporting
func (m *WorkerManager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		Running:    m.isRunning,
		Registered: len(m.workers),
		Started:    make([]string, 0, len(m.started)),
		Failed:     make(map[string]string, len(m.failed)),
	}
	for _, w := range m.started {
		s.Started = append(s.Started, w.Name())
	}
	for name, reason := range m.failed {
		s.Failed[name] = reason
	}
	return s
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
