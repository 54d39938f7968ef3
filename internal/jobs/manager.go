package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/maltedev/amazon-bsr-checker/internal/batch"
	"github.com/maltedev/amazon-bsr-checker/internal/models"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrNotReady = errors.New("job has no such artifact")
	ErrClosed   = errors.New("job manager is closed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Runner executes one batch and writes its artifacts into dir.
type Runner interface {
	Execute(ctx context.Context, b *batch.Batch, dir string, progress batch.ProgressFunc) (*models.RunResult, *batch.Artifacts, error)
}

// Job is a point-in-time copy of an upload run.
type Job struct {
	ID          string     `json:"job_id"`
	Variant     string     `json:"variant"`
	Status      Status     `json:"status"`
	Processed   int        `json:"processed"`
	Total       int        `json:"total"`
	Progress    float64    `json:"progress"`
	Failed      int        `json:"failed"`
	HasResults  bool       `json:"has_results"`
	HasFailed   bool       `json:"has_failed"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type record struct {
	job       Job
	dir       string
	artifacts *batch.Artifacts
}

func (r *record) snapshot() Job {
	j := r.job
	if j.Total > 0 {
		j.Progress = float64(j.Processed) / float64(j.Total)
	} else if j.Status == StatusCompleted {
		j.Progress = 1
	}
	j.HasResults = r.artifacts != nil && r.artifacts.Results != ""
	j.HasFailed = r.artifacts != nil && r.artifacts.Failed != ""
	return j
}

// Manager keeps upload runs in memory. Every run owns a temp directory that
// is removed once the run expires or the manager closes.
type Manager struct {
	runner  Runner
	baseDir string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*record
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(runner Runner, baseDir string, ttl time.Duration, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		baseDir: baseDir,
		ttl:     ttl,
		logger:  logger.With("component", "job_manager"),
		now:     time.Now,
		jobs:    make(map[string]*record),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit registers the batch and starts it in the background.
func (m *Manager) Submit(b *batch.Batch) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Job{}, ErrClosed
	}

	dir, err := os.MkdirTemp(m.baseDir, "bsr-"+b.ID+"-")
	if err != nil {
		return Job{}, fmt.Errorf("failed to create job directory: %w", err)
	}

	rec := &record{
		job: Job{
			ID:        b.ID,
			Variant:   b.Variant.Name,
			Status:    StatusPending,
			Total:     b.Total(),
			CreatedAt: m.now(),
		},
		dir: dir,
	}
	m.jobs[b.ID] = rec

	m.wg.Add(1)
	go m.run(b, rec)

	m.logger.Info("job created", "id", b.ID, "variant", b.Variant.Name, "rows", b.Total())
	return rec.snapshot(), nil
}

func (m *Manager) run(b *batch.Batch, rec *record) {
	defer m.wg.Done()

	m.update(rec, func(j *Job) {
		now := m.now()
		j.Status = StatusRunning
		j.StartedAt = &now
	})

	res, artifacts, err := m.runner.Execute(m.ctx, b, rec.dir, func(done, total int) {
		m.update(rec, func(j *Job) { j.Processed = done })
	})

	m.mu.Lock()
	now := m.now()
	rec.job.CompletedAt = &now
	if err != nil {
		rec.job.Status = StatusFailed
		rec.job.Error = err.Error()
	} else {
		rec.job.Status = StatusCompleted
		rec.job.Failed = len(res.Failed)
		rec.artifacts = artifacts
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("job failed", "id", b.ID, "error", err)
		return
	}
	m.logger.Info("job completed", "id", b.ID, "failed", len(res.Failed))
}

func (m *Manager) update(rec *record, fn func(j *Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&rec.job)
}

func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return rec.snapshot(), nil
}

// ResultsPath returns the augmented spreadsheet of a completed job.
func (m *Manager) ResultsPath(id string) (string, error) {
	return m.artifact(id, func(a *batch.Artifacts) string { return a.Results })
}

// FailedPath returns the failed identifiers spreadsheet; ErrNotReady when the
// job is still running or nothing failed.
func (m *Manager) FailedPath(id string) (string, error) {
	return m.artifact(id, func(a *batch.Artifacts) string { return a.Failed })
}

func (m *Manager) artifact(id string, pick func(*batch.Artifacts) string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.jobs[id]
	if !ok {
		return "", ErrNotFound
	}
	if rec.artifacts == nil {
		return "", ErrNotReady
	}
	path := pick(rec.artifacts)
	if path == "" {
		return "", ErrNotReady
	}
	return path, nil
}

// Sweep drops finished jobs older than the TTL and removes their files.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*record
	for id, rec := range m.jobs {
		if rec.job.CompletedAt != nil && rec.job.CompletedAt.Before(cutoff) {
			expired = append(expired, rec)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, rec := range expired {
		m.removeDir(rec)
	}
	if len(expired) > 0 {
		m.logger.Info("expired jobs removed", "count", len(expired))
	}
	return len(expired)
}

// StartJanitor sweeps on every tick until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close cancels running jobs, waits for them and deletes every job directory.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, rec := range m.jobs {
		if err := os.RemoveAll(rec.dir); err != nil {
			errs = append(errs, err)
		}
		delete(m.jobs, id)
	}
	return errors.Join(errs...)
}

func (m *Manager) removeDir(rec *record) {
	if err := os.RemoveAll(rec.dir); err != nil {
		m.logger.Warn("failed to remove job directory", "id", rec.job.ID, "dir", rec.dir, "error", err)
	}
}
