package overrides

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/verdict"
)

// Ledger stores at most one active override per criterion code per run.
// Applying a new override for the same code replaces the prior one
// (last-write-wins); Clear removes an override entirely and is the only
// destructive operation.
type Ledger interface {
	// Apply validates cmd against the run's decisions, snapshots the model
	// decision, and stores the override, replacing any prior override for
	// the same code.
	Apply(ctx context.Context, runID uuid.UUID, decisions []verdict.CriterionDecision, cmd ApplyCommand) (*CriterionOverride, error)

	// Clear removes the active override for code. Returns ErrNoOverride if
	// none is active.
	Clear(ctx context.Context, runID uuid.UUID, code verdict.CriterionCode) error

	// ForRun returns the active overrides for a run, ordered by code.
	ForRun(ctx context.Context, runID uuid.UUID) ([]CriterionOverride, error)
}

// MemoryLedger is an in-memory Ledger, safe for concurrent use. It backs
// tests and the offline reconciliation tool; production persistence uses
// the Postgres ledger.
type MemoryLedger struct {
	mu    sync.RWMutex
	byRun map[uuid.UUID]map[verdict.CriterionCode]CriterionOverride
	now   func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byRun: make(map[uuid.UUID]map[verdict.CriterionCode]CriterionOverride),
		now:   time.Now,
	}
}

func (l *MemoryLedger) Apply(_ context.Context, runID uuid.UUID, decisions []verdict.CriterionDecision, cmd ApplyCommand) (*CriterionOverride, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, err := newOverride(decisions, cmd, l.now().UTC())
	if err != nil {
		return nil, err
	}

	run, ok := l.byRun[runID]
	if !ok {
		run = make(map[verdict.CriterionCode]CriterionOverride)
		l.byRun[runID] = run
	}
	run[o.Code] = *o

	return o, nil
}

func (l *MemoryLedger) Clear(_ context.Context, runID uuid.UUID, code verdict.CriterionCode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	run, ok := l.byRun[runID]
	if !ok {
		return ErrNoOverride
	}
	if _, ok := run[code]; !ok {
		return ErrNoOverride
	}

	delete(run, code)
	return nil
}

func (l *MemoryLedger) ForRun(_ context.Context, runID uuid.UUID) ([]CriterionOverride, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	run := l.byRun[runID]
	active := make([]CriterionOverride, 0, len(run))
	for _, o := range run {
		active = append(active, o)
	}

	sortByCode(active)
	return active, nil
}
