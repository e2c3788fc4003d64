package runs

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// CommitGuard serializes appends per submission: a grading commit and a
// feedback-edit commit racing on the same submission must not interleave.
// Acquisition is context-aware so a cancelled caller never queues forever.
type CommitGuard struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*semaphore.Weighted
}

// NewCommitGuard creates an empty guard.
func NewCommitGuard() *CommitGuard {
	return &CommitGuard{locks: make(map[uuid.UUID]*semaphore.Weighted)}
}

// Acquire takes the exclusive commit slot for submissionID, blocking until
// it is free or ctx is done. The returned release function must be called
// exactly once.
func (g *CommitGuard) Acquire(ctx context.Context, submissionID uuid.UUID) (func(), error) {
	g.mu.Lock()
	sem, ok := g.locks[submissionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.locks[submissionID] = sem
	}
	g.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
