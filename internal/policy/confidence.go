package policy

import (
	"fmt"

	"github.com/mwhitfield/assay/internal/evidence"
	"github.com/mwhitfield/assay/internal/verdict"
)

// Evidence score term weights: coverage dominates, raw citation volume and
// cited word volume saturate with diminishing returns.
const (
	coverageWeight = 0.5
	citationWeight = 0.3
	wordWeight     = 0.2
)

// CapEntry records one ceiling that bound the final confidence, so the
// audit UI can show why a score was held down.
type CapEntry struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// ConfidencePolicyResult is the fully decomposed confidence outcome. Every
// input, adjustment, and cap is recorded individually; FinalConfidence is
// always within [0, 1] and never exceeds RawConfidenceBeforeCaps.
type ConfidencePolicyResult struct {
	FinalConfidence            float64            `json:"finalConfidence"`
	WeightedBaseConfidence     float64            `json:"weightedBaseConfidence"`
	RawConfidenceBeforeCaps    float64            `json:"rawConfidenceBeforeCaps"`
	WasCapped                  bool               `json:"wasCapped"`
	ModelConfidence            float64            `json:"modelConfidence"`
	CriterionAverageConfidence float64            `json:"criterionAverageConfidence"`
	EvidenceScore              float64            `json:"evidenceScore"`
	ExtractionConfidence       float64            `json:"extractionConfidence"`
	Bonuses                    map[string]float64 `json:"bonuses"`
	Penalties                  map[string]float64 `json:"penalties"`
	CapsApplied                []CapEntry         `json:"capsApplied"`
}

// ComposeConfidence combines model confidence, per-criterion confidence,
// evidence coverage, and extraction confidence into one explainable value.
// Bonuses and penalties are named adjustments; low extraction confidence
// caps the ceiling of the final value. Pure function, total over its inputs.
func ComposeConfidence(
	cfg Config,
	model float64,
	decisions []verdict.CriterionDecision,
	summary evidence.Summary,
	extraction float64,
) ConfidencePolicyResult {
	model = clamp01(model)
	extraction = clamp01(extraction)

	result := ConfidencePolicyResult{
		ModelConfidence:            model,
		CriterionAverageConfidence: criterionAverage(cfg, decisions),
		EvidenceScore:              evidenceScore(cfg, summary),
		ExtractionConfidence:       extraction,
		Bonuses:                    map[string]float64{},
		Penalties:                  map[string]float64{},
		CapsApplied:                []CapEntry{},
	}

	result.WeightedBaseConfidence = cfg.ModelWeight*model +
		cfg.CriterionWeight*result.CriterionAverageConfidence +
		cfg.EvidenceWeight*result.EvidenceScore +
		cfg.ExtractionWeight*extraction

	if summary.CriteriaCount > 0 && summary.CriteriaWithoutEvidence == 0 {
		result.Bonuses["all_criteria_cited"] = cfg.AllCitedBonus
	}
	if n := summary.CriteriaWithoutEvidence; n > 0 {
		p := float64(n) * cfg.MissingEvidencePenalty
		if p > cfg.MissingEvidencePenaltyCap {
			p = cfg.MissingEvidencePenaltyCap
		}
		result.Penalties["criteria_without_evidence"] = p
	}
	if extraction < cfg.LowExtractionThreshold {
		result.Penalties["low_extraction_confidence"] = cfg.LowExtractionPenalty
	}

	raw := result.WeightedBaseConfidence
	for _, b := range result.Bonuses {
		raw += b
	}
	for _, p := range result.Penalties {
		raw -= p
	}
	if raw < 0 {
		raw = 0
	}
	result.RawConfidenceBeforeCaps = raw

	final := raw
	if ceiling, reason, ok := extractionCeiling(cfg, extraction); ok && final > ceiling {
		result.CapsApplied = append(result.CapsApplied, CapEntry{
			Name:   "extraction_ceiling",
			Value:  ceiling,
			Reason: reason,
		})
		final = ceiling
	}
	if final > 1 {
		result.CapsApplied = append(result.CapsApplied, CapEntry{
			Name:   "unit_interval",
			Value:  1,
			Reason: "confidence is bounded to [0, 1]",
		})
		final = 1
	}

	result.FinalConfidence = final
	result.WasCapped = len(result.CapsApplied) > 0
	return result
}

// criterionAverage is the mean of explicit per-criterion confidences where
// the grader reported them, with decision-certainty proxies for the rest.
// UNCLEAR contributes a fixed low value.
func criterionAverage(cfg Config, decisions []verdict.CriterionDecision) float64 {
	if len(decisions) == 0 {
		return cfg.NeutralConfidence
	}

	var sum float64
	for _, d := range decisions {
		switch {
		case d.Confidence != nil:
			sum += clamp01(*d.Confidence)
		case d.Decision == verdict.DecisionUnclear:
			sum += cfg.UnclearProxyConfidence
		default:
			sum += cfg.DecidedProxyConfidence
		}
	}
	return sum / float64(len(decisions))
}

// evidenceScore is monotonic in citation count and cited word volume but
// saturates hyperbolically, so doubling citations never doubles the score
// past the fixed ceiling of 1.
func evidenceScore(cfg Config, summary evidence.Summary) float64 {
	if summary.CriteriaCount == 0 {
		return 0
	}

	coverage := 1 - float64(summary.CriteriaWithoutEvidence)/float64(summary.CriteriaCount)
	citations := float64(summary.TotalCitations)
	words := float64(summary.TotalWordsCited)

	return coverageWeight*coverage +
		citationWeight*(citations/(citations+cfg.CitationSaturation)) +
		wordWeight*(words/(words+cfg.WordSaturation))
}

func extractionCeiling(cfg Config, extraction float64) (float64, string, bool) {
	switch {
	case extraction < cfg.LowExtractionThreshold:
		return cfg.LowExtractionCeiling, fmt.Sprintf(
			"extraction confidence %.2f below %.2f caps final confidence at %.2f",
			extraction, cfg.LowExtractionThreshold, cfg.LowExtractionCeiling,
		), true
	case extraction < cfg.MidExtractionThreshold:
		return cfg.MidExtractionCeiling, fmt.Sprintf(
			"extraction confidence %.2f below %.2f caps final confidence at %.2f",
			extraction, cfg.MidExtractionThreshold, cfg.MidExtractionCeiling,
		), true
	}
	return 1, "", false
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
