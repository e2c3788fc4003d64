package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/pkg/repository"
)

// PostgresStore persists runs in the assessment_runs table. The full run is
// stored as a jsonb payload alongside the columns the store orders and
// filters on; rows are only ever inserted.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.With("system", "runs"),
	}
}

func (s *PostgresStore) Append(ctx context.Context, run *AssessmentRun) error {
	payload, err := marshalRun(run)
	if err != nil {
		return err
	}

	insertQ := `
		INSERT INTO assessment_runs(id, submission_id, created_at, overall_grade, feedback_text, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.db.ExecContext(ctx, insertQ,
		run.ID, run.SubmissionID, run.CreatedAt,
		string(run.OverallGrade), run.FeedbackText, payload,
	)
	if err != nil {
		return repository.MapError(fmt.Errorf("append run: %w", err), ErrRunNotFound, ErrDuplicateRun)
	}

	s.logger.Info("run appended",
		"id", run.ID,
		"submission_id", run.SubmissionID,
		"overall_grade", run.OverallGrade,
	)
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	run, err := repository.QueryOne(ctx, s.db, selectRuns+` LIMIT 1`, []any{submissionID}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNoRuns, ErrDuplicateRun)
	}
	return run, nil
}

func (s *PostgresStore) Previous(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	run, err := repository.QueryOne(ctx, s.db, selectRuns+` LIMIT 1 OFFSET 1`, []any{submissionID}, scanRun)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// distinguish an empty history from a single-run one
			if _, lerr := s.Latest(ctx, submissionID); lerr == nil {
				return nil, ErrNoPrevious
			}
			return nil, ErrNoRuns
		}
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ByID(ctx context.Context, submissionID, runID uuid.UUID) (*AssessmentRun, error) {
	q := `SELECT payload FROM assessment_runs WHERE submission_id = $1 AND id = $2`

	run, err := repository.QueryOne(ctx, s.db, q, []any{submissionID, runID}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrRunNotFound, ErrDuplicateRun)
	}
	return run, nil
}

func (s *PostgresStore) History(ctx context.Context, submissionID uuid.UUID) ([]AssessmentRun, error) {
	rows, err := repository.QueryMany(ctx, s.db, selectRuns, []any{submissionID}, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}

	history := make([]AssessmentRun, 0, len(rows))
	for _, r := range rows {
		history = append(history, *r)
	}
	return history, nil
}
