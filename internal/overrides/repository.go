package overrides

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/verdict"
	"github.com/mwhitfield/assay/pkg/repository"
)

// PostgresLedger persists overrides in the criterion_overrides table,
// keyed by (run_id, code). Upsert semantics implement the last-write-wins
// replacement rule.
type PostgresLedger struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresLedger creates a ledger backed by the given connection pool.
func NewPostgresLedger(db *sql.DB, logger *slog.Logger) *PostgresLedger {
	return &PostgresLedger{
		db:     db,
		logger: logger.With("system", "overrides"),
		now:    time.Now,
	}
}

const overrideColumns = `run_id, code, final_decision, reason_code, note, model_decision, applied_by, applied_at`

func (l *PostgresLedger) Apply(ctx context.Context, runID uuid.UUID, decisions []verdict.CriterionDecision, cmd ApplyCommand) (*CriterionOverride, error) {
	o, err := newOverride(decisions, cmd, l.now().UTC())
	if err != nil {
		return nil, err
	}

	upsertQ := `
		INSERT INTO criterion_overrides(` + overrideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, code) DO UPDATE SET
			final_decision = EXCLUDED.final_decision,
			reason_code = EXCLUDED.reason_code,
			note = EXCLUDED.note,
			model_decision = EXCLUDED.model_decision,
			applied_by = EXCLUDED.applied_by,
			applied_at = EXCLUDED.applied_at
		RETURNING ` + overrideColumns

	args := []any{
		runID, string(o.Code), string(o.FinalDecision), string(o.ReasonCode),
		o.Note, string(o.ModelDecision), o.AppliedBy, o.AppliedAt,
	}

	stored, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (storedOverride, error) {
		return repository.QueryOne(ctx, tx, upsertQ, args, scanOverride)
	})
	if err != nil {
		return nil, fmt.Errorf("apply override %s: %w", o.Code, err)
	}

	l.logger.Info("override applied",
		"run_id", runID,
		"code", stored.Code,
		"final_decision", stored.FinalDecision,
		"reason_code", stored.ReasonCode,
		"applied_by", stored.AppliedBy,
	)
	return &stored.CriterionOverride, nil
}

func (l *PostgresLedger) Clear(ctx context.Context, runID uuid.UUID, code verdict.CriterionCode) error {
	err := repository.ExecExpectOne(ctx, l.db,
		"DELETE FROM criterion_overrides WHERE run_id = $1 AND code = $2",
		runID, string(code),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoOverride
		}
		return fmt.Errorf("clear override %s: %w", code, err)
	}

	l.logger.Info("override cleared", "run_id", runID, "code", code)
	return nil
}

func (l *PostgresLedger) ForRun(ctx context.Context, runID uuid.UUID) ([]CriterionOverride, error) {
	// ordering by band letter would interleave D before M; sort in memory
	// with the shared code comparator instead
	q := `SELECT ` + overrideColumns + ` FROM criterion_overrides WHERE run_id = $1`

	rows, err := repository.QueryMany(ctx, l.db, q, []any{runID}, scanOverride)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	active := make([]CriterionOverride, 0, len(rows))
	for _, r := range rows {
		active = append(active, r.CriterionOverride)
	}
	sortByCode(active)
	return active, nil
}

type storedOverride struct {
	CriterionOverride
	runID uuid.UUID
}

func scanOverride(s repository.Scanner) (storedOverride, error) {
	var o storedOverride
	err := s.Scan(
		&o.runID,
		&o.Code,
		&o.FinalDecision,
		&o.ReasonCode,
		&o.Note,
		&o.ModelDecision,
		&o.AppliedBy,
		&o.AppliedAt,
	)
	return o, err
}
