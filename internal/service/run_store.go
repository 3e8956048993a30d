package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/engine"
)

// RunStatus is the lifecycle state of a scheduling run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusAborted   RunStatus = "ABORTED"
)

// schedulingRun is the in-memory record of one run from submission to
// expiry. Mutable fields are guarded by the owning store's lock; callers
// read them through snapshot copies.
type schedulingRun struct {
	ID           string
	Status       RunStatus
	AcademicYear string
	Semester     int
	ClassIDs     []string
	RulesID      string
	Preserve     bool
	Rules        engine.Rules
	Config       engine.AlgorithmConfig
	Progress     *engine.Progress
	Result       *engine.Result
	Err          string
	StartedAt    time.Time
	FinishedAt   *time.Time

	cancel context.CancelFunc
	ctx    context.Context
}

func (r *schedulingRun) terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusAborted:
		return true
	}
	return false
}

// runStore keeps runs in memory with a TTL measured from completion.
// Unfinished runs never expire.
type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*schedulingRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]*schedulingRun),
	}
}

func (s *runStore) Save(run *schedulingRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = run
}

// Get returns a copy of the run so callers never race with the worker
// mutating it.
func (s *runStore) Get(id string) (schedulingRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	if !ok {
		s.mu.RUnlock()
		return schedulingRun{}, false
	}
	if run.FinishedAt != nil && time.Since(*run.FinishedAt) > s.ttl {
		s.mu.RUnlock()
		s.Delete(id)
		return schedulingRun{}, false
	}
	copied := *run
	s.mu.RUnlock()
	return copied, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Update applies fn to the stored run under the lock.
func (s *runStore) Update(id string, fn func(*schedulingRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.items[id]; ok {
		fn(run)
	}
}
