package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gradekit/speed-grader/internal/store/model"
)

// Job is the registry of grading jobs. The orchestrator is the only writer
// for a given job; polling clients read snapshots. The interface is keyed
// get/create/update so a persistent store can replace the in-memory
// implementation without changing the orchestrator's contract.
type Job interface {
	Create(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*model.Job)) (*model.Job, error)
}

// MemoryJobStore keeps jobs in a process-wide locked map. There is no
// eviction: finished jobs stay until process teardown, a known
// resource-growth tradeoff accepted for this store.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]*model.Job)}
}

func (s *MemoryJobStore) Create(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	job := &model.Job{
		ID:        id,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job

	snapshot := *job
	return &snapshot, nil
}

// Get returns a snapshot of the job. Result is shared with the stored
// record, which is safe because results are set once at completion and
// never mutated afterwards.
func (s *MemoryJobStore) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	snapshot := *job
	return &snapshot, nil
}

func (s *MemoryJobStore) Update(_ context.Context, id uuid.UUID, mutate func(*model.Job)) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	mutate(job)
	job.UpdatedAt = time.Now()

	snapshot := *job
	return &snapshot, nil
}
