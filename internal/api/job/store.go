// Package job tracks scans started asynchronously through the API.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/momentum/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job is one asynchronous scan.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	Status    Status    `json:"status"`
	ReportID  string    `json:"report_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job reached a final status
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Store keeps a bounded set of jobs. Finished jobs older than ttl are
// evicted on the next Create.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a new job store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a pending job for source.
func (s *Store) Create(source string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	j := &Job{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	return *j
}

// Get returns a copy of a job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, core.WrapError(core.ErrNoData, fmt.Errorf("job %s not found", id))
	}
	return *j, nil
}

// Start marks a job running
func (s *Store) Start(id string) error {
	return s.update(id, func(j *Job) { j.Status = StatusRunning })
}

// Complete records the report a job produced
func (s *Store) Complete(id, reportID string) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusComplete
		j.ReportID = reportID
	})
}

// Fail records a job's error
func (s *Store) Fail(id string, err error) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
	})
}

// List returns jobs oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

func (s *Store) update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return core.WrapError(core.ErrNoData, fmt.Errorf("job %s not found", id))
	}
	fn(j)
	j.UpdatedAt = s.now()
	return nil
}

// evictLocked drops expired finished jobs, then the oldest jobs while the
// store is full.
func (s *Store) evictLocked(now time.Time) {
	if s.ttl > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			j := s.jobs[id]
			if j.Done() && now.Sub(j.UpdatedAt) > s.ttl {
				delete(s.jobs, id)
				continue
			}
			kept = append(kept, id)
		}
		s.order = kept
	}
	for len(s.order) >= s.maxSize {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}
