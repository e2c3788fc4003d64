package runs

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Store is the append-only per-submission run collection. No update or
// delete operations exist: editing feedback means composing a new run and
// appending it, preserving the full audit trail. Runs are returned
// newest-first by creation time, ties broken by insertion sequence.
//
// Append must be serialized per submission by the caller (see CommitGuard);
// reads never require locking because appended runs are immutable.
type Store interface {
	Append(ctx context.Context, run *AssessmentRun) error
	Latest(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error)
	Previous(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error)
	ByID(ctx context.Context, submissionID, runID uuid.UUID) (*AssessmentRun, error)
	History(ctx context.Context, submissionID uuid.UUID) ([]AssessmentRun, error)
}

type storedRun struct {
	seq uint64
	run AssessmentRun
}

// MemoryStore is an in-memory Store, safe for concurrent use. It backs
// tests and the offline reconciliation tool.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   uint64
	bySub map[uuid.UUID][]storedRun
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySub: make(map[uuid.UUID][]storedRun)}
}

func (s *MemoryStore) Append(_ context.Context, run *AssessmentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.bySub[run.SubmissionID] {
		if st.run.ID == run.ID {
			return ErrDuplicateRun
		}
	}

	s.seq++
	s.bySub[run.SubmissionID] = append(s.bySub[run.SubmissionID], storedRun{
		seq: s.seq,
		run: *run.Clone(),
	})
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.ordered(submissionID)
	if len(ordered) == 0 {
		return nil, ErrNoRuns
	}
	return ordered[0].run.Clone(), nil
}

func (s *MemoryStore) Previous(_ context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.ordered(submissionID)
	if len(ordered) == 0 {
		return nil, ErrNoRuns
	}
	if len(ordered) < 2 {
		return nil, ErrNoPrevious
	}
	return ordered[1].run.Clone(), nil
}

func (s *MemoryStore) ByID(_ context.Context, submissionID, runID uuid.UUID) (*AssessmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.bySub[submissionID] {
		if st.run.ID == runID {
			return st.run.Clone(), nil
		}
	}
	return nil, ErrRunNotFound
}

func (s *MemoryStore) History(_ context.Context, submissionID uuid.UUID) ([]AssessmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.ordered(submissionID)
	history := make([]AssessmentRun, 0, len(ordered))
	for _, st := range ordered {
		history = append(history, *st.run.Clone())
	}
	return history, nil
}

// ordered returns the submission's runs newest-first by createdAt, ties
// broken by insertion sequence, never by id comparison.
func (s *MemoryStore) ordered(submissionID uuid.UUID) []storedRun {
	ordered := slices.Clone(s.bySub[submissionID])
	slices.SortFunc(ordered, func(a, b storedRun) int {
		if c := b.run.CreatedAt.Compare(a.run.CreatedAt); c != 0 {
			return c
		}
		switch {
		case b.seq > a.seq:
			return 1
		case b.seq < a.seq:
			return -1
		}
		return 0
	})
	return ordered
}
