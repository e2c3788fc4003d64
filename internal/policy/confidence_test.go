package policy_test

import (
	"math"
	"testing"

	"github.com/mwhitfield/assay/internal/evidence"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/internal/verdict"
)

func ptr(v float64) *float64 { return &v }

func TestComposeConfidence(t *testing.T) {
	cfg := policy.Default()

	decisions := []verdict.CriterionDecision{
		{Code: "P1", Decision: verdict.DecisionAchieved, Confidence: ptr(0.9)},
		{Code: "P2", Decision: verdict.DecisionAchieved},
		{Code: "M1", Decision: verdict.DecisionUnclear},
	}
	summary := evidence.Summary{
		CriteriaCount:   3,
		TotalCitations:  6,
		TotalWordsCited: 300,
	}

	got := policy.ComposeConfidence(cfg, 0.8, decisions, summary, 0.9)

	wantAvg := (0.9 + 0.85 + 0.35) / 3
	if math.Abs(got.CriterionAverageConfidence-wantAvg) > 1e-9 {
		t.Errorf("CriterionAverageConfidence = %v, want %v", got.CriterionAverageConfidence, wantAvg)
	}

	// coverage 1.0, both saturation terms at half strength
	wantEvidence := 0.5*1 + 0.3*0.5 + 0.2*0.5
	if math.Abs(got.EvidenceScore-wantEvidence) > 1e-9 {
		t.Errorf("EvidenceScore = %v, want %v", got.EvidenceScore, wantEvidence)
	}

	wantBase := 0.35*0.8 + 0.25*wantAvg + 0.20*wantEvidence + 0.20*0.9
	if math.Abs(got.WeightedBaseConfidence-wantBase) > 1e-9 {
		t.Errorf("WeightedBaseConfidence = %v, want %v", got.WeightedBaseConfidence, wantBase)
	}

	if got.Bonuses["all_criteria_cited"] != cfg.AllCitedBonus {
		t.Errorf("bonuses = %v, want all_criteria_cited = %v", got.Bonuses, cfg.AllCitedBonus)
	}
	if len(got.Penalties) != 0 {
		t.Errorf("penalties = %v, want none", got.Penalties)
	}
	if got.WasCapped {
		t.Errorf("WasCapped = true with caps %v, want uncapped", got.CapsApplied)
	}
	if math.Abs(got.FinalConfidence-(wantBase+cfg.AllCitedBonus)) > 1e-9 {
		t.Errorf("FinalConfidence = %v, want base plus bonus", got.FinalConfidence)
	}
}

func TestComposeConfidenceMissingEvidencePenalty(t *testing.T) {
	cfg := policy.Default()

	tests := []struct {
		name    string
		without int
		want    float64
	}{
		{"two missing", 2, 0.06},
		{"cap engages", 9, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := evidence.Summary{CriteriaCount: 10, CriteriaWithoutEvidence: tt.without}
			got := policy.ComposeConfidence(cfg, 0.8, nil, summary, 0.9)

			if p := got.Penalties["criteria_without_evidence"]; math.Abs(p-tt.want) > 1e-9 {
				t.Errorf("penalty = %v, want %v", p, tt.want)
			}
			if _, ok := got.Bonuses["all_criteria_cited"]; ok {
				t.Error("all-cited bonus granted despite missing evidence")
			}
		})
	}
}

func TestComposeConfidenceExtractionCeilings(t *testing.T) {
	cfg := policy.Default()
	decisions := []verdict.CriterionDecision{
		{Code: "P1", Decision: verdict.DecisionAchieved, Confidence: ptr(1)},
	}
	summary := evidence.Summary{CriteriaCount: 1, TotalCitations: 20, TotalWordsCited: 2000}

	tests := []struct {
		name        string
		extraction  float64
		wantCeiling float64
		wantPenalty bool
	}{
		{"low extraction", 0.4, 0.60, true},
		{"mid extraction", 0.6, 0.85, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.ComposeConfidence(cfg, 1, decisions, summary, tt.extraction)

			if !got.WasCapped {
				t.Fatal("WasCapped = false, want extraction ceiling applied")
			}
			if got.FinalConfidence != tt.wantCeiling {
				t.Errorf("FinalConfidence = %v, want %v", got.FinalConfidence, tt.wantCeiling)
			}
			if len(got.CapsApplied) == 0 || got.CapsApplied[0].Name != "extraction_ceiling" {
				t.Errorf("CapsApplied = %v, want extraction_ceiling entry", got.CapsApplied)
			}
			_, penalized := got.Penalties["low_extraction_confidence"]
			if penalized != tt.wantPenalty {
				t.Errorf("low extraction penalty present = %v, want %v", penalized, tt.wantPenalty)
			}
		})
	}
}

func TestComposeConfidenceBounds(t *testing.T) {
	cfg := policy.Default()

	inputs := []struct {
		name       string
		model      float64
		extraction float64
		summary    evidence.Summary
	}{
		{"all zero", 0, 0, evidence.Summary{}},
		{"out of range inputs", 3, -2, evidence.Summary{CriteriaCount: 4, CriteriaWithoutEvidence: 4}},
		{"saturated", 1, 1, evidence.Summary{CriteriaCount: 2, TotalCitations: 500, TotalWordsCited: 50000}},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.ComposeConfidence(cfg, tt.model, nil, tt.summary, tt.extraction)

			if got.FinalConfidence < 0 || got.FinalConfidence > 1 {
				t.Errorf("FinalConfidence = %v, want within [0, 1]", got.FinalConfidence)
			}
			if got.FinalConfidence > got.RawConfidenceBeforeCaps {
				t.Errorf("final %v exceeds raw %v", got.FinalConfidence, got.RawConfidenceBeforeCaps)
			}
			if got.Bonuses == nil || got.Penalties == nil || got.CapsApplied == nil {
				t.Error("adjustment maps and caps must be non-nil")
			}
		})
	}
}

func TestComposeConfidenceEmptyDecisions(t *testing.T) {
	cfg := policy.Default()

	got := policy.ComposeConfidence(cfg, 0.7, nil, evidence.Summary{}, 0.9)

	if got.CriterionAverageConfidence != cfg.NeutralConfidence {
		t.Errorf("CriterionAverageConfidence = %v, want neutral %v", got.CriterionAverageConfidence, cfg.NeutralConfidence)
	}
	if got.EvidenceScore != 0 {
		t.Errorf("EvidenceScore = %v, want 0 for empty summary", got.EvidenceScore)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults validate", func(t *testing.T) {
		var c policy.Config
		if err := c.Finalize(); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if c.ModelWeight != 0.35 || c.ResubmissionCap != "Pass" {
			t.Errorf("defaults not applied: %+v", c)
		}
	})

	t.Run("bad weights rejected", func(t *testing.T) {
		c := policy.Config{ModelWeight: 0.5, CriterionWeight: 0.5, EvidenceWeight: 0.5, ExtractionWeight: 0.5}
		if err := c.Finalize(); err == nil {
			t.Error("Finalize() accepted weights summing to 2")
		}
	})

	t.Run("threshold ordering rejected", func(t *testing.T) {
		c := policy.Default()
		c.LowExtractionThreshold = 0.9
		if err := c.Finalize(); err == nil {
			t.Error("Finalize() accepted low threshold above mid threshold")
		}
	})

	t.Run("merge keeps base for zero overlay fields", func(t *testing.T) {
		base := policy.Default()
		overlay := policy.Config{WordSaturation: 500, ResubmissionCap: "Merit"}
		base.Merge(&overlay)

		if base.WordSaturation != 500 {
			t.Errorf("WordSaturation = %v, want overlay value 500", base.WordSaturation)
		}
		if base.ResubmissionCap != "Merit" {
			t.Errorf("ResubmissionCap = %s, want Merit", base.ResubmissionCap)
		}
		if base.CitationSaturation != 6 {
			t.Errorf("CitationSaturation = %v, want base default kept", base.CitationSaturation)
		}
	})
}
