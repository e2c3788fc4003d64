package policy

import (
	"slices"
	"strings"

	"github.com/mwhitfield/assay/internal/verdict"
)

// Grade is an overall submission grade in band order.
type Grade string

// Grades ordered strongest to weakest: Distinction, Merit, Pass, Fail,
// Resubmit.
const (
	GradeDistinction Grade = "Distinction"
	GradeMerit       Grade = "Merit"
	GradePass        Grade = "Pass"
	GradeFail        Grade = "Fail"
	GradeResubmit    Grade = "Resubmit"
)

var gradeRanks = map[Grade]int{
	GradeResubmit:    0,
	GradeFail:        1,
	GradePass:        2,
	GradeMerit:       3,
	GradeDistinction: 4,
}

// ParseGrade normalizes a grade literal case-insensitively. Unknown literals
// rank as the lowest band rather than erroring, so the capping policy stays
// total over untrusted grader output.
func ParseGrade(s string) Grade {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distinction":
		return GradeDistinction
	case "merit":
		return GradeMerit
	case "pass":
		return GradePass
	case "resubmit":
		return GradeResubmit
	}
	return GradeFail
}

// Rank returns the grade's position in band order; higher is stronger.
func (g Grade) Rank() int {
	return gradeRanks[g]
}

// CapReason explains why a grade was capped.
type CapReason string

// Cap reasons in reporting precedence order.
const (
	CapReasonResubmission   CapReason = "CAPPED_DUE_TO_RESUBMISSION"
	CapReasonBandIncomplete CapReason = "CAPPED_DUE_TO_INCOMPLETE_BAND"
)

// BandGaps lists the criterion codes blocking each band. Slices are always
// non-nil so the audit UI can render tooltips without nil checks.
type BandGaps struct {
	Pass        []verdict.CriterionCode `json:"pass"`
	Merit       []verdict.CriterionCode `json:"merit"`
	Distinction []verdict.CriterionCode `json:"distinction"`
}

// BandCap reports a band-completeness cap with the codes that caused it.
type BandCap struct {
	WasCapped bool      `json:"wasCapped"`
	CapReason CapReason `json:"capReason,omitempty"`
	Missing   BandGaps  `json:"missing"`
}

// GradePolicyResult is the full grade-capping outcome for audit display.
// FinalOverallGrade is never higher than RawOverallGrade in band order.
type GradePolicyResult struct {
	RawOverallGrade   Grade     `json:"rawOverallGrade"`
	FinalOverallGrade Grade     `json:"finalOverallGrade"`
	WasCapped         bool      `json:"wasCapped"`
	CapReason         CapReason `json:"capReason,omitempty"`
	CriteriaBandCap   *BandCap  `json:"criteriaBandCap,omitempty"`
}

// ApplyGradeCap caps raw downward to the highest band whose required
// criteria are all ACHIEVED. Completeness is cumulative: Merit requires the
// Pass and Merit sets, Distinction all three. A band with no codes in the
// decision set is vacuously complete. When a resubmission signal is present
// the grade is further capped to the configured resubmission ceiling, and
// that reason takes reporting precedence over band completeness; the band
// detail is still attached for tooltips. Pure function, never errors.
func ApplyGradeCap(cfg Config, raw Grade, decisions []verdict.CriterionDecision, resubmission bool) GradePolicyResult {
	result := GradePolicyResult{
		RawOverallGrade:   raw,
		FinalOverallGrade: raw,
	}

	gaps := collectGaps(decisions)
	bandCeiling := GradeDistinction
	switch {
	case len(gaps.Pass) > 0:
		bandCeiling = GradeFail
	case len(gaps.Merit) > 0:
		bandCeiling = GradePass
	case len(gaps.Distinction) > 0:
		bandCeiling = GradeMerit
	}

	if bandCeiling.Rank() < raw.Rank() {
		result.FinalOverallGrade = bandCeiling
		result.CapReason = CapReasonBandIncomplete
		result.CriteriaBandCap = &BandCap{
			WasCapped: true,
			CapReason: CapReasonBandIncomplete,
			Missing:   gaps,
		}
	}

	if resubmission {
		resubCeiling := ParseGrade(cfg.ResubmissionCap)
		if resubCeiling.Rank() < result.FinalOverallGrade.Rank() {
			result.FinalOverallGrade = resubCeiling
		}
		if resubCeiling.Rank() < raw.Rank() {
			result.CapReason = CapReasonResubmission
		}
	}

	result.WasCapped = result.FinalOverallGrade.Rank() < raw.Rank()
	if !result.WasCapped {
		result.CapReason = ""
	}

	return result
}

func collectGaps(decisions []verdict.CriterionDecision) BandGaps {
	gaps := BandGaps{
		Pass:        make([]verdict.CriterionCode, 0),
		Merit:       make([]verdict.CriterionCode, 0),
		Distinction: make([]verdict.CriterionCode, 0),
	}

	for _, d := range decisions {
		if d.Decision == verdict.DecisionAchieved {
			continue
		}
		switch d.Code.Band() {
		case verdict.BandPass:
			gaps.Pass = append(gaps.Pass, d.Code)
		case verdict.BandMerit:
			gaps.Merit = append(gaps.Merit, d.Code)
		case verdict.BandDistinction:
			gaps.Distinction = append(gaps.Distinction, d.Code)
		}
	}

	slices.SortFunc(gaps.Pass, verdict.CompareCodes)
	slices.SortFunc(gaps.Merit, verdict.CompareCodes)
	slices.SortFunc(gaps.Distinction, verdict.CompareCodes)
	return gaps
}
