package runs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/overrides"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/internal/verdict"
	"github.com/mwhitfield/assay/pkg/pagination"
)

// Service is the operation layer over the run store and override ledger:
// commit a graded verdict, edit feedback (as a new run), apply and clear
// overrides, and read runs with overrides merged in.
type Service struct {
	store      Store
	ledger     overrides.Ledger
	policy     policy.Config
	notes      notes.Config
	pagination pagination.Config
	guard      *CommitGuard
	logger     *slog.Logger
	now        func() time.Time
	newID      func() uuid.UUID
}

// NewService creates a Service over the given store and ledger.
func NewService(
	store Store,
	ledger overrides.Ledger,
	policyCfg policy.Config,
	notesCfg notes.Config,
	pageCfg pagination.Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		policy:     policyCfg,
		notes:      notesCfg,
		pagination: pageCfg,
		guard:      NewCommitGuard(),
		logger:     logger.With("system", "runs"),
		now:        time.Now,
		newID:      uuid.New,
	}
}

// Commit composes a validated verdict document into a new run and appends
// it. Feedback text must be non-empty; nothing is persisted on rejection.
func (s *Service) Commit(ctx context.Context, submissionID uuid.UUID, doc *verdict.Document, warnings []verdict.Warning) (*AssessmentRun, error) {
	if strings.TrimSpace(doc.FeedbackText) == "" {
		return nil, ErrEmptyFeedback
	}

	run := Compose(s.policy, submissionID, s.newID(), doc, warnings, s.now())

	release, err := s.guard.Acquire(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("acquire commit slot: %w", err)
	}
	defer release()

	if err := s.store.Append(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("run committed",
		"id", run.ID,
		"submission_id", submissionID,
		"overall_grade", run.OverallGrade,
		"was_capped", run.GradePolicy.WasCapped,
		"final_confidence", run.ConfidencePolicy.FinalConfidence,
		"warnings", len(warnings),
	)
	return run, nil
}

// EditFeedback appends a new run with the same grading inputs as the latest
// run, the replacement feedback text, and the editor recorded on the run.
// The original run is untouched; every feedback commit stays in the audit
// trail.
func (s *Service) EditFeedback(ctx context.Context, submissionID uuid.UUID, feedback, editedBy string) (*AssessmentRun, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, ErrEmptyFeedback
	}

	// hold the commit slot across read-latest and append so a racing commit
	// cannot slip between them
	release, err := s.guard.Acquire(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("acquire commit slot: %w", err)
	}
	defer release()

	latest, err := s.store.Latest(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	doc := &verdict.Document{
		CriterionChecks:          latest.CriterionDecisions,
		ConfidenceSignals:        latest.ConfidenceSignals,
		OverallGrade:             string(latest.GradePolicy.RawOverallGrade),
		FeedbackText:             feedback,
		ResubmissionRequired:     latest.ResubmissionRequired,
		ReferenceContextSnapshot: latest.ReferenceContext,
	}

	run := Compose(s.policy, submissionID, s.newID(), doc, latest.Warnings, s.now())
	run.EditedBy = editedBy
	if err := s.store.Append(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("feedback edited",
		"id", run.ID,
		"submission_id", submissionID,
		"supersedes", latest.ID,
		"edited_by", editedBy,
	)
	return run, nil
}

// ApplyOverride records an assessor decision for a criterion on a specific
// run, snapshotting the machine decision it replaces.
func (s *Service) ApplyOverride(ctx context.Context, submissionID, runID uuid.UUID, cmd overrides.ApplyCommand) (*overrides.CriterionOverride, error) {
	run, err := s.store.ByID(ctx, submissionID, runID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Apply(ctx, runID, run.CriterionDecisions, cmd)
}

// ClearOverride removes an assessor decision; the machine decision stands
// again.
func (s *Service) ClearOverride(ctx context.Context, submissionID, runID uuid.UUID, code verdict.CriterionCode) error {
	if _, err := s.store.ByID(ctx, submissionID, runID); err != nil {
		return err
	}
	return s.ledger.Clear(ctx, runID, code)
}

// Run returns a run with its active overrides merged in.
func (s *Service) Run(ctx context.Context, submissionID, runID uuid.UUID) (*AssessmentRun, error) {
	run, err := s.store.ByID(ctx, submissionID, runID)
	if err != nil {
		return nil, err
	}
	return s.withOverrides(ctx, run)
}

// Latest returns the most recent run with overrides merged in.
func (s *Service) Latest(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	run, err := s.store.Latest(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return s.withOverrides(ctx, run)
}

// Previous returns the second most recent run with overrides merged in.
func (s *Service) Previous(ctx context.Context, submissionID uuid.UUID) (*AssessmentRun, error) {
	run, err := s.store.Previous(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return s.withOverrides(ctx, run)
}

// History returns a page of the submission's runs, newest first, each with
// overrides merged in.
func (s *Service) History(ctx context.Context, submissionID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[AssessmentRun], error) {
	page.Normalize(s.pagination)

	history, err := s.store.History(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	start := page.Offset()
	if start > len(history) {
		start = len(history)
	}
	end := start + page.PageSize
	if end > len(history) {
		end = len(history)
	}

	window := make([]AssessmentRun, 0, end-start)
	for i := start; i < end; i++ {
		run, err := s.withOverrides(ctx, &history[i])
		if err != nil {
			return nil, err
		}
		window = append(window, *run)
	}

	result := pagination.NewPageResult(window, len(history), page.Page, page.PageSize)
	return &result, nil
}

// Render assembles the payload the PDF-annotation renderer consumes: page
// notes projected from the effective decisions, the feedback text, and
// cover fields merged with last-write-wins precedence over run defaults.
func (s *Service) Render(ctx context.Context, submissionID, runID uuid.UUID, noteCtx notes.Context, cover CoverFields) (*RenderPayload, error) {
	run, err := s.Run(ctx, submissionID, runID)
	if err != nil {
		return nil, err
	}

	defaults := CoverFields{
		MarkedDate: run.CreatedAt.Format("2 January 2006"),
	}

	return &RenderPayload{
		RunID:            run.ID,
		FeedbackText:     run.FeedbackText,
		Cover:            MergeCoverFields(defaults, cover),
		Notes:            notes.Project(s.notes, run.EffectiveDecisions(), noteCtx),
		AnnotatedPDFPath: run.AnnotatedPDFPath,
	}, nil
}

// NoteConfig exposes the projector bounds the service was configured with,
// so callers that regenerate notes (the rerun differ) stay consistent.
func (s *Service) NoteConfig() notes.Config {
	return s.notes
}

func (s *Service) withOverrides(ctx context.Context, run *AssessmentRun) (*AssessmentRun, error) {
	active, err := s.ledger.ForRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("merge overrides for run %s: %w", run.ID, err)
	}
	run.Overrides = active
	return run, nil
}
