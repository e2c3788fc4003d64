package runs

import (
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/evidence"
	"github.com/mwhitfield/assay/internal/overrides"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/internal/verdict"
)

// Compose runs the full derivation pipeline over a validated verdict
// document: evidence density, confidence decomposition, then grade capping.
// The composed run carries the grader's raw inputs alongside every derived
// result so later recomposition and audit always work from first principles.
func Compose(cfg policy.Config, submissionID, id uuid.UUID, doc *verdict.Document, warnings []verdict.Warning, createdAt time.Time) *AssessmentRun {
	density := evidence.Analyze(doc.CriterionChecks)

	confidence := policy.ComposeConfidence(
		cfg,
		doc.ConfidenceSignals.GradingConfidence,
		doc.CriterionChecks,
		density.Summary,
		doc.ConfidenceSignals.ExtractionConfidence,
	)

	grade := policy.ApplyGradeCap(
		cfg,
		policy.ParseGrade(doc.OverallGrade),
		doc.CriterionChecks,
		doc.ResubmissionRequired,
	)

	return &AssessmentRun{
		ID:                   id,
		SubmissionID:         submissionID,
		CreatedAt:            createdAt.UTC(),
		OverallGrade:         grade.FinalOverallGrade,
		FeedbackText:         doc.FeedbackText,
		CriterionDecisions:   doc.CriterionChecks,
		ConfidenceSignals:    doc.ConfidenceSignals,
		GradePolicy:          grade,
		ConfidencePolicy:     confidence,
		EvidenceDensity:      density,
		Overrides:            make([]overrides.CriterionOverride, 0),
		ResubmissionRequired: doc.ResubmissionRequired,
		Warnings:             warnings,
		ReferenceContext:     doc.ReferenceContextSnapshot,
	}
}
