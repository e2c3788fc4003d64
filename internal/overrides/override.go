// Package overrides implements the human-assessor decision layer: per
// criterion code, an assessor can replace the machine decision with their
// own, with a reason code and note, without mutating the original verdict.
// The original decision is snapshotted onto the override at creation so
// later re-extractions cannot silently rewrite history.
package overrides

import (
	"slices"
	"time"

	"github.com/mwhitfield/assay/internal/verdict"
)

// ReasonCode categorizes why an assessor overrode a machine decision.
type ReasonCode string

// Override reason codes.
const (
	ReasonInsufficientEvidence    ReasonCode = "INSUFFICIENT_EVIDENCE"
	ReasonRubricMisalignment      ReasonCode = "RUBRIC_MISALIGNMENT"
	ReasonCriterionInterpretation ReasonCode = "CRITERION_INTERPRETATION"
	ReasonPolicyAlignment         ReasonCode = "POLICY_ALIGNMENT"
	ReasonAssessorJudgement       ReasonCode = "ASSESSOR_JUDGEMENT"
	ReasonOther                   ReasonCode = "OTHER"
)

// ValidReason reports whether r is a member of the reason enum.
func ValidReason(r ReasonCode) bool {
	switch r {
	case ReasonInsufficientEvidence, ReasonRubricMisalignment,
		ReasonCriterionInterpretation, ReasonPolicyAlignment,
		ReasonAssessorJudgement, ReasonOther:
		return true
	}
	return false
}

// CriterionOverride is one active assessor decision for a criterion code.
// ModelDecision is the machine decision snapshotted when the override was
// created. AppliedBy is an opaque audit-actor string.
type CriterionOverride struct {
	Code          verdict.CriterionCode `json:"code"`
	FinalDecision verdict.Decision      `json:"finalDecision"`
	ReasonCode    ReasonCode            `json:"reasonCode"`
	Note          string                `json:"note"`
	ModelDecision verdict.Decision      `json:"modelDecision"`
	AppliedBy     string                `json:"appliedBy"`
	AppliedAt     time.Time             `json:"appliedAt"`
}

// ApplyCommand carries the data needed to apply an override.
type ApplyCommand struct {
	Code          verdict.CriterionCode `json:"code"`
	FinalDecision verdict.Decision      `json:"finalDecision"`
	ReasonCode    ReasonCode            `json:"reasonCode"`
	Note          string                `json:"note"`
	AppliedBy     string                `json:"appliedBy"`
}

// newOverride validates cmd against the run's decisions and builds the
// override, snapshotting the model decision. Shared by every Ledger
// implementation so validation rules cannot drift.
func newOverride(decisions []verdict.CriterionDecision, cmd ApplyCommand, now time.Time) (*CriterionOverride, error) {
	if !verdict.ValidDecision(cmd.FinalDecision) {
		return nil, ErrInvalidDecision
	}
	if !ValidReason(cmd.ReasonCode) {
		return nil, ErrInvalidReason
	}

	for _, d := range decisions {
		if d.Code == cmd.Code {
			return &CriterionOverride{
				Code:          cmd.Code,
				FinalDecision: cmd.FinalDecision,
				ReasonCode:    cmd.ReasonCode,
				Note:          cmd.Note,
				ModelDecision: d.Decision,
				AppliedBy:     cmd.AppliedBy,
				AppliedAt:     now,
			}, nil
		}
	}
	return nil, ErrUnknownCriterionCode
}

// Resolve returns the effective decision for code: an active override's
// final decision always wins over the original machine decision. The second
// return reports whether the code exists in the decision set at all.
func Resolve(code verdict.CriterionCode, decisions []verdict.CriterionDecision, active []CriterionOverride) (verdict.Decision, bool) {
	for _, o := range active {
		if o.Code == code {
			return o.FinalDecision, true
		}
	}
	for _, d := range decisions {
		if d.Code == code {
			return d.Decision, true
		}
	}
	return "", false
}

// Merge produces the effective decision set with overrides applied. The
// input slice is never mutated; evidence and rationale are carried through
// unchanged so downstream projection and re-capping see the full record.
func Merge(decisions []verdict.CriterionDecision, active []CriterionOverride) []verdict.CriterionDecision {
	if len(active) == 0 {
		return decisions
	}

	byCode := make(map[verdict.CriterionCode]verdict.Decision, len(active))
	for _, o := range active {
		byCode[o.Code] = o.FinalDecision
	}

	merged := make([]verdict.CriterionDecision, len(decisions))
	copy(merged, decisions)
	for i := range merged {
		if d, ok := byCode[merged[i].Code]; ok {
			merged[i].Decision = d
		}
	}
	return merged
}

func sortByCode(active []CriterionOverride) {
	slices.SortFunc(active, func(a, b CriterionOverride) int {
		return verdict.CompareCodes(a.Code, b.Code)
	})
}
