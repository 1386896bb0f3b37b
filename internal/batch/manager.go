package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"motioncanvas/internal/export"
)

// DefaultConcurrency bounds simultaneous exports. Each export pins a frame
// pipeline plus an encoder process, so the default stays low.
const DefaultConcurrency = 2

// Runner executes one export request. The coordinator satisfies this.
type Runner interface {
	Run(ctx context.Context, req export.Request, progress export.ProgressFunc) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, req export.Request, progress export.ProgressFunc) error

func (f RunnerFunc) Run(ctx context.Context, req export.Request, progress export.ProgressFunc) error {
	return f(ctx, req, progress)
}

// Manager runs enqueued export jobs with bounded concurrency. Jobs start
// in queue order; a finished job promotes the next queued one. Failures
// are isolated: one failed job never stops the rest of the batch.
type Manager struct {
	mu     sync.Mutex
	runner Runner
	limit  int

	jobs  []*Job
	index map[string]*Job

	active    int
	started   bool
	doneFired bool
	onAllDone func()

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewManager creates a manager running at most limit jobs at once.
// A non-positive limit falls back to DefaultConcurrency.
func NewManager(runner Runner, limit int, logger *slog.Logger) *Manager {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner: runner,
		limit:  limit,
		index:  make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Enqueue adds a job and returns its ID. Jobs enqueued after Start are
// picked up by the running dispatch loop.
func (m *Manager) Enqueue(req export.Request) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:      uuid.NewString(),
		Request: req,
		Status:  StatusQueued,
	}
	m.jobs = append(m.jobs, job)
	m.index[job.ID] = job
	if m.started {
		m.dispatchLocked()
	}
	return job.ID
}

// Start begins dispatching. onAllDone fires exactly once, after every job
// has reached a terminal state.
func (m *Manager) Start(onAllDone func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.onAllDone = onAllDone
	m.dispatchLocked()
	m.maybeFinishLocked()
}

// Jobs returns a snapshot of every job in enqueue order.
func (m *Manager) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, len(m.jobs))
	for i, job := range m.jobs {
		out[i] = *job
	}
	return out
}

// Job returns a snapshot of one job by ID.
func (m *Manager) Job(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.index[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// CancelAll cancels every non-terminal job, running ones included, and
// fires the completion callback if it has not fired yet.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			job.Status = StatusCancelled
		}
	}
	m.active = 0
	m.cancel()
	m.mu.Unlock()

	m.mu.Lock()
	m.maybeFinishLocked()
	m.mu.Unlock()
}

// dispatchLocked promotes queued jobs until the concurrency limit is hit.
func (m *Manager) dispatchLocked() {
	for _, job := range m.jobs {
		if m.active >= m.limit {
			return
		}
		if job.Status != StatusQueued {
			continue
		}
		job.Status = StatusInProgress
		m.active++
		go m.run(job)
	}
}

func (m *Manager) run(job *Job) {
	progress := func(p float64) {
		m.mu.Lock()
		if job.Status == StatusInProgress {
			job.Progress = p
		}
		m.mu.Unlock()
	}

	err := m.runner.Run(m.ctx, job.Request, progress)

	m.mu.Lock()
	defer m.mu.Unlock()

	// CancelAll may have already retired this job.
	if job.Status == StatusInProgress {
		m.active--
		switch {
		case err == nil:
			job.Status = StatusCompleted
			job.Progress = 1
		case errors.Is(err, export.ErrCancelled):
			job.Status = StatusCancelled
		default:
			job.Status = StatusFailed
			job.Err = err
			m.logger.Error("batch job failed", "job", job.ID, "error", err)
		}
		m.dispatchLocked()
	}
	m.maybeFinishLocked()
}

// maybeFinishLocked fires the completion callback once all jobs are
// terminal. The callback runs off the lock.
func (m *Manager) maybeFinishLocked() {
	if m.doneFired || !m.started {
		return
	}
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			return
		}
	}
	m.doneFired = true
	if cb := m.onAllDone; cb != nil {
		go cb()
	}
}
