// Package verdict defines the canonical in-memory representation of one
// grading run's raw criterion decisions and evidence citations, along with
// the ingestion boundary that validates grader output structurally before
// any policy derivation runs.
package verdict

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Decision is a grader's verdict for a single criterion.
type Decision string

// Decision values accepted from the grading collaborator.
const (
	DecisionAchieved    Decision = "ACHIEVED"
	DecisionNotAchieved Decision = "NOT_ACHIEVED"
	DecisionUnclear     Decision = "UNCLEAR"
)

// ValidDecision reports whether d is a member of the decision enum.
func ValidDecision(d Decision) bool {
	switch d {
	case DecisionAchieved, DecisionNotAchieved, DecisionUnclear:
		return true
	}
	return false
}

// Band identifies the grade band a criterion code belongs to.
type Band byte

// Criterion bands, matching the leading letter of a criterion code.
const (
	BandPass        Band = 'P'
	BandMerit       Band = 'M'
	BandDistinction Band = 'D'
)

// CriterionCode identifies a single rubric requirement, e.g. "P2" or "D1".
type CriterionCode string

var codePattern = regexp.MustCompile(`^[PMD]\d{1,2}$`)

// ParseCode validates s against the criterion code pattern.
func ParseCode(s string) (CriterionCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !codePattern.MatchString(s) {
		return "", fmt.Errorf("malformed criterion code %q", s)
	}
	return CriterionCode(s), nil
}

// Band returns the grade band encoded in the code's leading letter.
func (c CriterionCode) Band() Band {
	if c == "" {
		return 0
	}
	return Band(c[0])
}

// Index returns the numeric suffix of the code, or 0 if absent.
func (c CriterionCode) Index() int {
	if len(c) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(string(c[1:]))
	return n
}

var bandOrder = map[Band]int{BandPass: 0, BandMerit: 1, BandDistinction: 2}

// CompareCodes orders codes by band (Pass, Merit, Distinction) then index.
// Suitable for slices.SortFunc.
func CompareCodes(a, b CriterionCode) int {
	if d := bandOrder[a.Band()] - bandOrder[b.Band()]; d != 0 {
		return d
	}
	return a.Index() - b.Index()
}

// Citation anchors a criterion decision to evidentiary text on a specific
// page of the submission.
type Citation struct {
	Page       int    `json:"page"`
	QuotedText string `json:"quotedText"`
	WordCount  int    `json:"wordCount"`
}

// CriterionDecision is one criterion's verdict with its supporting evidence.
// Confidence is optional; when absent, downstream policy derives a proxy
// from decision certainty. Decisions are immutable once a run is stored.
type CriterionDecision struct {
	Code       CriterionCode `json:"code"`
	Decision   Decision      `json:"decision"`
	Rationale  string        `json:"rationale"`
	Confidence *float64      `json:"confidence,omitempty"`
	Evidence   []Citation    `json:"evidence"`
}

// ConfidenceSignals are raw confidence inputs reported by the grading
// collaborator, not derived values.
type ConfidenceSignals struct {
	ExtractionConfidence float64 `json:"extractionConfidence"`
	GradingConfidence    float64 `json:"gradingConfidence"`
}

// Document is the structurally validated grading verdict for one run, as
// received from the external grading collaborator. ReferenceContextSnapshot
// is an opaque pass-through preserved for audit display.
type Document struct {
	CriterionChecks          []CriterionDecision `json:"criterionChecks"`
	ConfidenceSignals        ConfidenceSignals   `json:"confidenceSignals"`
	OverallGrade             string              `json:"overallGrade"`
	FeedbackText             string              `json:"feedbackText"`
	ResubmissionRequired     bool                `json:"resubmissionRequired"`
	ReferenceContextSnapshot json.RawMessage     `json:"referenceContextSnapshot,omitempty"`
}
