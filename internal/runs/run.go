// Package runs implements the assessment run aggregate: composition of a
// grading verdict into an immutable run, the append-only per-submission run
// store (in-memory and Postgres), and the operation layer the review
// workspace calls. Runs are never mutated in place; feedback edits append a
// new run and overrides live in a ledger keyed by run id.
package runs

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/evidence"
	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/overrides"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/internal/verdict"
)

// AssessmentRun is one immutable, timestamped grading attempt for a
// submission. Overrides is populated on read from the override ledger; the
// stored run itself is append-only.
type AssessmentRun struct {
	ID                   uuid.UUID                      `json:"id"`
	SubmissionID         uuid.UUID                      `json:"submissionId"`
	CreatedAt            time.Time                      `json:"createdAt"`
	OverallGrade         policy.Grade                   `json:"overallGrade"`
	FeedbackText         string                         `json:"feedbackText"`
	AnnotatedPDFPath     string                         `json:"annotatedPdfPath,omitempty"`
	CriterionDecisions   []verdict.CriterionDecision    `json:"criterionDecisions"`
	ConfidenceSignals    verdict.ConfidenceSignals      `json:"confidenceSignals"`
	GradePolicy          policy.GradePolicyResult       `json:"gradePolicy"`
	ConfidencePolicy     policy.ConfidencePolicyResult  `json:"confidencePolicy"`
	EvidenceDensity      evidence.Density               `json:"evidenceDensity"`
	Overrides            []overrides.CriterionOverride  `json:"overrides"`
	ResubmissionRequired bool                           `json:"resubmissionRequired"`
	EditedBy             string                         `json:"editedBy,omitempty"`
	Warnings             []verdict.Warning              `json:"warnings,omitempty"`
	ReferenceContext     json.RawMessage                `json:"referenceContextSnapshot,omitempty"`
}

// EffectiveDecisions returns the decision set with active overrides applied.
// The stored decisions are never mutated.
func (r *AssessmentRun) EffectiveDecisions() []verdict.CriterionDecision {
	return overrides.Merge(r.CriterionDecisions, r.Overrides)
}

// Clone returns a deep copy so stored runs stay immutable when callers hold
// a returned run.
func (r *AssessmentRun) Clone() *AssessmentRun {
	c := *r

	c.CriterionDecisions = make([]verdict.CriterionDecision, len(r.CriterionDecisions))
	copy(c.CriterionDecisions, r.CriterionDecisions)
	for i := range c.CriterionDecisions {
		c.CriterionDecisions[i].Evidence = slices.Clone(c.CriterionDecisions[i].Evidence)
		if conf := c.CriterionDecisions[i].Confidence; conf != nil {
			v := *conf
			c.CriterionDecisions[i].Confidence = &v
		}
	}

	c.EvidenceDensity.Rows = make([]evidence.Row, len(r.EvidenceDensity.Rows))
	copy(c.EvidenceDensity.Rows, r.EvidenceDensity.Rows)
	for i := range c.EvidenceDensity.Rows {
		c.EvidenceDensity.Rows[i].PageDistribution = slices.Clone(c.EvidenceDensity.Rows[i].PageDistribution)
	}

	if bc := r.GradePolicy.CriteriaBandCap; bc != nil {
		copied := *bc
		copied.Missing.Pass = slices.Clone(bc.Missing.Pass)
		copied.Missing.Merit = slices.Clone(bc.Missing.Merit)
		copied.Missing.Distinction = slices.Clone(bc.Missing.Distinction)
		c.GradePolicy.CriteriaBandCap = &copied
	}

	c.ConfidencePolicy.CapsApplied = slices.Clone(r.ConfidencePolicy.CapsApplied)
	c.ConfidencePolicy.Bonuses = cloneMap(r.ConfidencePolicy.Bonuses)
	c.ConfidencePolicy.Penalties = cloneMap(r.ConfidencePolicy.Penalties)

	c.Overrides = slices.Clone(r.Overrides)
	c.Warnings = slices.Clone(r.Warnings)
	c.ReferenceContext = slices.Clone(r.ReferenceContext)
	return &c
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// CoverFields are the renderer-facing cover overrides for the annotated
// output.
type CoverFields struct {
	StudentName string `json:"studentName,omitempty"`
	MarkedBy    string `json:"markedBy,omitempty"`
	MarkedDate  string `json:"markedDate,omitempty"`
}

// MergeCoverFields merges cover field sets with explicit last-write-wins
// precedence per field: a later non-empty value overwrites an earlier one.
func MergeCoverFields(fields ...CoverFields) CoverFields {
	var merged CoverFields
	for _, f := range fields {
		if f.StudentName != "" {
			merged.StudentName = f.StudentName
		}
		if f.MarkedBy != "" {
			merged.MarkedBy = f.MarkedBy
		}
		if f.MarkedDate != "" {
			merged.MarkedDate = f.MarkedDate
		}
	}
	return merged
}

// RenderPayload is everything the PDF-annotation renderer consumes.
// Rendering itself happens elsewhere; this is data only.
type RenderPayload struct {
	RunID            uuid.UUID        `json:"runId"`
	FeedbackText     string           `json:"feedbackText"`
	Cover            CoverFields      `json:"cover"`
	Notes            []notes.PageNote `json:"notes"`
	AnnotatedPDFPath string           `json:"annotatedPdfPath,omitempty"`
}
