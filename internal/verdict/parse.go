package verdict

import (
	"encoding/json"
	"fmt"

	"github.com/mwhitfield/assay/pkg/formatting"
)

// Warning records a structural defect found during ingestion. Warnings are
// retained on the composed run so the audit UI can show what was dropped.
type Warning struct {
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

// rawCheck mirrors the grader's untrusted per-criterion shape. Fields stay
// loosely typed until validated.
type rawCheck struct {
	Code       string     `json:"code"`
	Decision   string     `json:"decision"`
	Rationale  string     `json:"rationale"`
	Confidence *float64   `json:"confidence"`
	Evidence   []Citation `json:"evidence"`
}

type rawDocument struct {
	CriterionChecks          []rawCheck        `json:"criterionChecks"`
	ConfidenceSignals        ConfidenceSignals `json:"confidenceSignals"`
	OverallGrade             string            `json:"overallGrade"`
	FeedbackText             string            `json:"feedbackText"`
	ResubmissionRequired     bool              `json:"resubmissionRequired"`
	ReferenceContextSnapshot json.RawMessage   `json:"referenceContextSnapshot"`
}

// Parse decodes and structurally validates a grading verdict document.
// Graders are model-backed, so the payload may arrive wrapped in a markdown
// code fence; both forms are accepted. Checks with malformed codes, unknown
// decision values, or duplicate codes are dropped with a recorded warning
// rather than failing the whole document. Citations with an invalid page are
// dropped per-citation; negative word counts are clamped to zero. Confidence
// signals are clamped to [0, 1].
func Parse(data []byte) (*Document, []Warning, error) {
	raw, err := formatting.Parse[rawDocument](string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode verdict document: %w", err)
	}

	var warnings []Warning
	doc := &Document{
		ConfidenceSignals: ConfidenceSignals{
			ExtractionConfidence: clamp01(raw.ConfidenceSignals.ExtractionConfidence),
			GradingConfidence:    clamp01(raw.ConfidenceSignals.GradingConfidence),
		},
		OverallGrade:             raw.OverallGrade,
		FeedbackText:             raw.FeedbackText,
		ResubmissionRequired:     raw.ResubmissionRequired,
		ReferenceContextSnapshot: raw.ReferenceContextSnapshot,
	}

	seen := make(map[CriterionCode]bool, len(raw.CriterionChecks))
	doc.CriterionChecks = make([]CriterionDecision, 0, len(raw.CriterionChecks))

	for _, rc := range raw.CriterionChecks {
		code, err := ParseCode(rc.Code)
		if err != nil {
			warnings = append(warnings, Warning{Code: rc.Code, Reason: "malformed criterion code"})
			continue
		}
		if seen[code] {
			warnings = append(warnings, Warning{Code: string(code), Reason: "duplicate criterion code"})
			continue
		}

		decision := Decision(rc.Decision)
		if !ValidDecision(decision) {
			warnings = append(warnings, Warning{
				Code:   string(code),
				Reason: fmt.Sprintf("unknown decision %q", rc.Decision),
			})
			continue
		}

		check := CriterionDecision{
			Code:      code,
			Decision:  decision,
			Rationale: rc.Rationale,
			Evidence:  make([]Citation, 0, len(rc.Evidence)),
		}
		if rc.Confidence != nil {
			c := clamp01(*rc.Confidence)
			check.Confidence = &c
		}

		for _, cit := range rc.Evidence {
			if cit.Page < 1 {
				warnings = append(warnings, Warning{
					Code:   string(code),
					Reason: fmt.Sprintf("citation with invalid page %d dropped", cit.Page),
				})
				continue
			}
			if cit.WordCount < 0 {
				cit.WordCount = 0
			}
			check.Evidence = append(check.Evidence, cit)
		}

		seen[code] = true
		doc.CriterionChecks = append(doc.CriterionChecks, check)
	}

	return doc, warnings, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
