package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"motioncanvas/internal/export"
	"motioncanvas/internal/logging"
)

// stubRunner coordinates job completion from the test body.
type stubRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
	results map[string]error // keyed by request base name
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		release: make(chan struct{}),
		results: make(map[string]error),
	}
}

func (r *stubRunner) Run(ctx context.Context, req export.Request, progress export.ProgressFunc) error {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	result := r.results[req.BaseName]
	r.mu.Unlock()

	progress(0.5)

	select {
	case <-r.release:
	case <-ctx.Done():
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
		return export.Wrap(export.ErrCancelled, "stub", "", ctx.Err())
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return result
}

func (r *stubRunner) peakActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func request(name string) export.Request {
	return export.Request{Format: export.FormatVideo, BaseName: name}
}

func TestManagerRespectsConcurrencyLimit(t *testing.T) {
	runner := newStubRunner()
	m := NewManager(runner, 2, logging.NewNop())

	for _, name := range []string{"a", "b", "c", "d"} {
		m.Enqueue(request(name))
	}

	var done atomic.Bool
	m.Start(func() { done.Store(true) })

	waitFor(t, "two running jobs", func() bool {
		running := 0
		for _, job := range m.Jobs() {
			if job.Status == StatusInProgress {
				running++
			}
		}
		return running == 2
	})

	// The other two must still be queued.
	queued := 0
	for _, job := range m.Jobs() {
		if job.Status == StatusQueued {
			queued++
		}
	}
	if queued != 2 {
		t.Errorf("%d jobs queued, want 2", queued)
	}

	close(runner.release)
	waitFor(t, "batch completion", done.Load)

	if runner.peakActive() > 2 {
		t.Errorf("peak concurrency %d exceeded the limit 2", runner.peakActive())
	}
	for _, job := range m.Jobs() {
		if job.Status != StatusCompleted {
			t.Errorf("job %s finished as %s, want completed", job.Request.BaseName, job.Status)
		}
		if job.Progress != 1 {
			t.Errorf("job %s progress = %v, want 1", job.Request.BaseName, job.Progress)
		}
	}
}

func TestManagerSerializesWithLimitOne(t *testing.T) {
	runner := newStubRunner()
	m := NewManager(runner, 1, logging.NewNop())
	firstID := m.Enqueue(request("first"))
	secondID := m.Enqueue(request("second"))

	var done atomic.Bool
	m.Start(func() { done.Store(true) })

	waitFor(t, "first job running", func() bool {
		job, ok := m.Job(firstID)
		return ok && job.Status == StatusInProgress
	})
	second, _ := m.Job(secondID)
	if second.Status != StatusQueued {
		t.Errorf("second job = %s while first runs, want queued", second.Status)
	}

	close(runner.release)
	waitFor(t, "batch completion", done.Load)
	second, _ = m.Job(secondID)
	if second.Status != StatusCompleted {
		t.Errorf("second job finished as %s, want completed", second.Status)
	}
}

func TestManagerFailureIsolation(t *testing.T) {
	runner := newStubRunner()
	runner.results["bad"] = errors.New("disk gremlins")
	m := NewManager(runner, 1, logging.NewNop())

	goodID := m.Enqueue(request("good"))
	badID := m.Enqueue(request("bad"))
	lastID := m.Enqueue(request("last"))

	var done atomic.Bool
	m.Start(func() { done.Store(true) })
	close(runner.release)
	waitFor(t, "batch completion", done.Load)

	good, _ := m.Job(goodID)
	if good.Status != StatusCompleted {
		t.Errorf("good job = %s, want completed", good.Status)
	}
	bad, _ := m.Job(badID)
	if bad.Status != StatusFailed {
		t.Errorf("bad job = %s, want failed", bad.Status)
	}
	if bad.Err == nil {
		t.Error("failed job carries no error")
	}
	last, _ := m.Job(lastID)
	if last.Status != StatusCompleted {
		t.Errorf("job after the failure = %s, want completed", last.Status)
	}
}

func TestManagerCancelledRunnerErrorMapsToCancelled(t *testing.T) {
	runner := newStubRunner()
	runner.results["c"] = export.Wrap(export.ErrCancelled, "stub", "", nil)
	m := NewManager(runner, 1, logging.NewNop())
	id := m.Enqueue(request("c"))

	var done atomic.Bool
	m.Start(func() { done.Store(true) })
	close(runner.release)
	waitFor(t, "batch completion", done.Load)

	job, _ := m.Job(id)
	if job.Status != StatusCancelled {
		t.Errorf("job = %s, want cancelled", job.Status)
	}
	if job.Err != nil {
		t.Errorf("cancelled job carries error %v, want none", job.Err)
	}
}

func TestManagerCancelAll(t *testing.T) {
	runner := newStubRunner()
	m := NewManager(runner, 1, logging.NewNop())
	m.Enqueue(request("running"))
	m.Enqueue(request("queued"))

	var callbacks atomic.Int32
	m.Start(func() { callbacks.Add(1) })

	waitFor(t, "first job running", func() bool {
		jobs := m.Jobs()
		return len(jobs) > 0 && jobs[0].Status == StatusInProgress
	})

	m.CancelAll()

	for _, job := range m.Jobs() {
		if job.Status != StatusCancelled {
			t.Errorf("job %s = %s, want cancelled", job.Request.BaseName, job.Status)
		}
	}
	waitFor(t, "completion callback", func() bool { return callbacks.Load() == 1 })

	// The callback must not fire a second time once the runner returns.
	time.Sleep(20 * time.Millisecond)
	if callbacks.Load() != 1 {
		t.Errorf("completion callback fired %d times, want once", callbacks.Load())
	}
}

func TestManagerEnqueueAfterStart(t *testing.T) {
	runner := newStubRunner()
	m := NewManager(runner, 2, logging.NewNop())

	var done atomic.Bool
	m.Enqueue(request("first"))
	m.Start(func() { done.Store(true) })

	waitFor(t, "first job running", func() bool {
		jobs := m.Jobs()
		return jobs[0].Status == StatusInProgress
	})
	lateID := m.Enqueue(request("late"))
	waitFor(t, "late job running", func() bool {
		job, ok := m.Job(lateID)
		return ok && job.Status == StatusInProgress
	})

	close(runner.release)
	waitFor(t, "batch completion", done.Load)
}

func TestManagerStartWithNoJobsFinishesImmediately(t *testing.T) {
	m := NewManager(newStubRunner(), 2, logging.NewNop())
	var done atomic.Bool
	m.Start(func() { done.Store(true) })
	waitFor(t, "empty batch completion", done.Load)
}
