// Package repository keeps asynchronous batch jobs and their row results.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/dropout/internal/domain/model"
	"github.com/okian/dropout/pkg/metrics"
)

// Store provides read/write access to batch jobs.
type Store interface {
	// Create registers a pending job expecting total rows.
	// Returns ErrExists if id is taken.
	Create(ctx context.Context, id string, total int) (model.Job, error)

	// Record stores the result for one row. Recording the same row twice
	// keeps the latest result without double counting.
	Record(ctx context.Context, id string, r model.RowResult) error

	// Get returns a snapshot of the job. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id string) (model.Job, error)

	// Discard removes a job, e.g. when it could not be enqueued.
	Discard(ctx context.Context, id string) error

	// Count returns the number of stored jobs.
	Count(ctx context.Context) int
}

type jobState struct {
	job     model.Job
	results []model.RowResult
	filled  []bool
}

func (s *jobState) snapshot() model.Job {
	out := s.job
	out.Results = make([]model.RowResult, 0, s.job.Completed+s.job.Failed)
	for i, ok := range s.filled {
		if ok {
			out.Results = append(out.Results, s.results[i])
		}
	}
	return out
}

// InMemoryStore implements Store with a mutex-guarded map.
type InMemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]*jobState
	order   []string // creation order, oldest first
	maxJobs int
	now     func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		jobs:    make(map[string]*jobState),
		maxJobs: defaultMaxJobs,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateBatchJobsStored(0)
	return s
}

// Create registers a pending job.
func (s *InMemoryStore) Create(ctx context.Context, id string, total int) (model.Job, error) {
	if total < 0 {
		total = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrExists, id)
	}
	now := s.now()
	st := &jobState{
		job: model.Job{
			ID:        id,
			Status:    model.JobPending,
			Total:     total,
			CreatedAt: now,
			UpdatedAt: now,
		},
		results: make([]model.RowResult, total),
		filled:  make([]bool, total),
	}
	if total == 0 {
		st.job.Status = model.JobDone
	}
	s.jobs[id] = st
	s.order = append(s.order, id)
	s.evict(id)
	metrics.UpdateBatchJobsStored(len(s.jobs))
	return st.snapshot(), nil
}

// Record stores one row result.
func (s *InMemoryStore) Record(ctx context.Context, id string, r model.RowResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.Index < 0 || r.Index >= st.job.Total {
		return fmt.Errorf("%w: %d of %d", ErrRowRange, r.Index, st.job.Total)
	}
	if st.filled[r.Index] {
		if st.results[r.Index].Failed() {
			st.job.Failed--
		} else {
			st.job.Completed--
		}
	}
	st.results[r.Index] = r
	st.filled[r.Index] = true
	if r.Failed() {
		st.job.Failed++
	} else {
		st.job.Completed++
	}

	st.job.Status = model.JobRunning
	if st.job.Completed+st.job.Failed == st.job.Total {
		st.job.Status = model.JobDone
	}
	st.job.UpdatedAt = s.now()
	return nil
}

// Get returns a snapshot of the job.
func (s *InMemoryStore) Get(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.jobs[id]
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return st.snapshot(), nil
}

// Discard removes a job.
func (s *InMemoryStore) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.remove(id)
	metrics.UpdateBatchJobsStored(len(s.jobs))
	return nil
}

// Count returns the number of stored jobs.
func (s *InMemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// evict drops the oldest finished jobs other than keep while over capacity.
// Must be called with s.mu held.
func (s *InMemoryStore) evict(keep string) {
	for i := 0; len(s.jobs) > s.maxJobs && i < len(s.order); {
		id := s.order[i]
		if id == keep || s.jobs[id].job.Status != model.JobDone {
			i++
			continue
		}
		s.remove(id)
	}
}

// remove deletes id from the map and the order list.
// Must be called with s.mu held.
func (s *InMemoryStore) remove(id string) {
	delete(s.jobs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
