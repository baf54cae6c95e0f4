// Package network tracks connectivity and defers jobs submitted while the
// process is offline. Deferred jobs are kept in a persistent queue and
// flushed once connectivity returns.
package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"readinglist/internal/logger"
	"readinglist/internal/notify"
)

const (
	DefaultInterval = 30 * time.Second
	probeTimeout    = 5 * time.Second
	// MaxAttempts bounds how often a failing job is retried before it is
	// dropped
	MaxAttempts = 5
)

// ErrNoHandler is returned when a job kind has no registered handler
var ErrNoHandler = errors.New("no handler for job kind")

// Handler runs a job. A returned error re-queues the job.
type Handler func(ctx context.Context, job Job) error

// Status is a snapshot of connectivity and the pending job count
type Status struct {
	Online     bool       `json:"isOnline"`
	LastOnline *time.Time `json:"lastOnline,omitempty"`
	Pending    int        `json:"pendingOperations"`
}

// MonitorConfig controls connectivity probing. An empty ProbeURL disables
// probing; the monitor then changes state only through SetOnline.
type MonitorConfig struct {
	ProbeURL string
	Interval time.Duration
}

// Monitor probes connectivity on an interval and owns the job queue
type Monitor struct {
	cfg      MonitorConfig
	client   *http.Client
	queue    *Queue
	bus      notify.Bus
	logger   *logger.Logger
	handlers map[string]Handler

	mu     sync.Mutex
	status Status

	flushMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor that starts out online
func NewMonitor(cfg MonitorConfig, queue *Queue, log *logger.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	now := time.Now().UTC()

	m := &Monitor{
		cfg:      cfg,
		client:   &http.Client{Timeout: probeTimeout},
		queue:    queue,
		logger:   log,
		handlers: make(map[string]Handler),
		status:   Status{Online: true, LastOnline: &now},
	}
	if n, err := queue.Len(); err == nil {
		m.status.Pending = n
	}
	return m
}

// Handle registers the handler for jobs of kind. Handlers must be
// registered before Start.
func (m *Monitor) Handle(kind string, h Handler) {
	m.handlers[kind] = h
}

// Subscribe registers fn to run whenever the status changes
func (m *Monitor) Subscribe(fn func()) func() {
	return m.bus.Subscribe(fn)
}

// Status returns the current connectivity snapshot
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status
	if s.LastOnline != nil {
		t := *s.LastOnline
		s.LastOnline = &t
	}
	return s
}

// Online reports whether the last probe succeeded
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Online
}

// Start probes once and then keeps probing until Stop or ctx is done.
// Calling Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)
	m.logger.Info("Network monitor started (probe=%q every %v)", m.cfg.ProbeURL, m.cfg.Interval)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if m.cfg.ProbeURL != "" {
			m.SetOnline(ctx, m.probe(ctx))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts probing and waits for the probe loop to exit
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("Network monitor stopped")
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.cfg.ProbeURL, nil)
	if err != nil {
		m.logger.Error("Invalid connectivity probe URL %q: %v", m.cfg.ProbeURL, err)
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("Connectivity probe failed: %v", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// SetOnline records the connectivity state. Going from offline to online
// flushes the queue.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	was := m.status.Online
	m.status.Online = online
	if online {
		now := time.Now().UTC()
		m.status.LastOnline = &now
	}
	m.mu.Unlock()

	if was == online {
		return
	}

	if online {
		m.logger.Info("Connectivity restored")
	} else {
		m.logger.Warn("Connectivity lost")
	}
	m.bus.Publish()

	if online {
		if _, err := m.Flush(ctx); err != nil {
			m.logger.Error("Failed to flush job queue: %v", err)
		}
	}
}

// Submit runs job now when online and queues it otherwise. A job that fails
// while online is queued for the next flush. The returned error reports
// only failures to run or queue the job at all.
func (m *Monitor) Submit(ctx context.Context, job Job) error {
	handler, ok := m.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}

	if m.Online() {
		err := handler(ctx, job)
		if err == nil {
			return nil
		}
		m.logger.Warn("Job %s (%s) failed, queueing: %v", job.ID, job.Kind, err)
		job.Attempts++
	}

	if err := m.queue.Put(job); err != nil {
		return err
	}
	m.refreshPending()
	return nil
}

// Flush runs every queued job once. Successful jobs are removed, failed jobs
// stay queued with their attempt count raised, and jobs that exhausted
// MaxAttempts are dropped. It returns the number of jobs that succeeded.
func (m *Monitor) Flush(ctx context.Context) (int, error) {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	jobs, err := m.queue.List()
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	m.logger.Info("Flushing %d queued jobs", len(jobs))

	done := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := m.runQueued(ctx, job); err != nil {
			m.logger.Warn("Queued job %s (%s) failed: %v", job.ID, job.Kind, err)
			continue
		}
		done++
	}

	m.refreshPending()
	return done, nil
}

func (m *Monitor) runQueued(ctx context.Context, job Job) error {
	handler, ok := m.handlers[job.Kind]
	var runErr error
	if ok {
		runErr = handler(ctx, job)
	} else {
		runErr = fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}

	if runErr == nil {
		return m.queue.Remove(job.ID)
	}

	job.Attempts++
	if job.Attempts >= MaxAttempts {
		m.logger.Error("Dropping job %s after %d attempts", job.ID, job.Attempts)
		if err := m.queue.Remove(job.ID); err != nil {
			return err
		}
		return runErr
	}
	if err := m.queue.Put(job); err != nil {
		return err
	}
	return runErr
}

func (m *Monitor) refreshPending() {
	n, err := m.queue.Len()
	if err != nil {
		m.logger.Error("Failed to count queued jobs: %v", err)
		return
	}

	m.mu.Lock()
	changed := m.status.Pending != n
	m.status.Pending = n
	m.mu.Unlock()

	if changed {
		m.bus.Publish()
	}
}
