// Package policy implements the deterministic grading policies: grade-band
// capping and the multi-factor confidence decomposition. Both engines are
// pure functions over a Config whose knobs are tunable through the standard
// configuration layers.
package policy

import "fmt"

// Config holds the tunable constants for both policy engines. All values
// have documented defaults applied by Finalize; the four weights must sum
// to 1.
type Config struct {
	// Weighted base confidence: fixed-weight linear combination inputs.
	ModelWeight      float64 `toml:"model_weight"`
	CriterionWeight  float64 `toml:"criterion_weight"`
	EvidenceWeight   float64 `toml:"evidence_weight"`
	ExtractionWeight float64 `toml:"extraction_weight"`

	// Per-criterion confidence proxies used when the grader reports no
	// explicit criterion confidence.
	UnclearProxyConfidence float64 `toml:"unclear_proxy_confidence"`
	DecidedProxyConfidence float64 `toml:"decided_proxy_confidence"`
	NeutralConfidence      float64 `toml:"neutral_confidence"`

	// Evidence score saturation pivots: the citation count and cited word
	// count at which each term reaches half strength.
	CitationSaturation float64 `toml:"citation_saturation"`
	WordSaturation     float64 `toml:"word_saturation"`

	// Named adjustments.
	AllCitedBonus             float64 `toml:"all_cited_bonus"`
	MissingEvidencePenalty    float64 `toml:"missing_evidence_penalty"`
	MissingEvidencePenaltyCap float64 `toml:"missing_evidence_penalty_cap"`
	LowExtractionPenalty      float64 `toml:"low_extraction_penalty"`

	// Extraction-tied ceilings on final confidence.
	LowExtractionThreshold float64 `toml:"low_extraction_threshold"`
	LowExtractionCeiling   float64 `toml:"low_extraction_ceiling"`
	MidExtractionThreshold float64 `toml:"mid_extraction_threshold"`
	MidExtractionCeiling   float64 `toml:"mid_extraction_ceiling"`

	// Highest grade a submission can receive once a resubmission-required
	// signal is present.
	ResubmissionCap string `toml:"resubmission_cap"`
}

// Default returns a finalized Config carrying all default values.
func Default() Config {
	var c Config
	// finalize on a zero value cannot fail
	_ = c.Finalize()
	return c
}

// Finalize applies defaults and validates the configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	mergeFloat(&c.ModelWeight, overlay.ModelWeight)
	mergeFloat(&c.CriterionWeight, overlay.CriterionWeight)
	mergeFloat(&c.EvidenceWeight, overlay.EvidenceWeight)
	mergeFloat(&c.ExtractionWeight, overlay.ExtractionWeight)
	mergeFloat(&c.UnclearProxyConfidence, overlay.UnclearProxyConfidence)
	mergeFloat(&c.DecidedProxyConfidence, overlay.DecidedProxyConfidence)
	mergeFloat(&c.NeutralConfidence, overlay.NeutralConfidence)
	mergeFloat(&c.CitationSaturation, overlay.CitationSaturation)
	mergeFloat(&c.WordSaturation, overlay.WordSaturation)
	mergeFloat(&c.AllCitedBonus, overlay.AllCitedBonus)
	mergeFloat(&c.MissingEvidencePenalty, overlay.MissingEvidencePenalty)
	mergeFloat(&c.MissingEvidencePenaltyCap, overlay.MissingEvidencePenaltyCap)
	mergeFloat(&c.LowExtractionPenalty, overlay.LowExtractionPenalty)
	mergeFloat(&c.LowExtractionThreshold, overlay.LowExtractionThreshold)
	mergeFloat(&c.LowExtractionCeiling, overlay.LowExtractionCeiling)
	mergeFloat(&c.MidExtractionThreshold, overlay.MidExtractionThreshold)
	mergeFloat(&c.MidExtractionCeiling, overlay.MidExtractionCeiling)
	if overlay.ResubmissionCap != "" {
		c.ResubmissionCap = overlay.ResubmissionCap
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func (c *Config) loadDefaults() {
	if c.ModelWeight == 0 && c.CriterionWeight == 0 && c.EvidenceWeight == 0 && c.ExtractionWeight == 0 {
		c.ModelWeight = 0.35
		c.CriterionWeight = 0.25
		c.EvidenceWeight = 0.20
		c.ExtractionWeight = 0.20
	}
	if c.UnclearProxyConfidence == 0 {
		c.UnclearProxyConfidence = 0.35
	}
	if c.DecidedProxyConfidence == 0 {
		c.DecidedProxyConfidence = 0.85
	}
	if c.NeutralConfidence == 0 {
		c.NeutralConfidence = 0.5
	}
	if c.CitationSaturation == 0 {
		c.CitationSaturation = 6
	}
	if c.WordSaturation == 0 {
		c.WordSaturation = 300
	}
	if c.AllCitedBonus == 0 {
		c.AllCitedBonus = 0.05
	}
	if c.MissingEvidencePenalty == 0 {
		c.MissingEvidencePenalty = 0.03
	}
	if c.MissingEvidencePenaltyCap == 0 {
		c.MissingEvidencePenaltyCap = 0.15
	}
	if c.LowExtractionPenalty == 0 {
		c.LowExtractionPenalty = 0.10
	}
	if c.LowExtractionThreshold == 0 {
		c.LowExtractionThreshold = 0.5
	}
	if c.LowExtractionCeiling == 0 {
		c.LowExtractionCeiling = 0.60
	}
	if c.MidExtractionThreshold == 0 {
		c.MidExtractionThreshold = 0.75
	}
	if c.MidExtractionCeiling == 0 {
		c.MidExtractionCeiling = 0.85
	}
	if c.ResubmissionCap == "" {
		c.ResubmissionCap = string(GradePass)
	}
}

func (c *Config) validate() error {
	sum := c.ModelWeight + c.CriterionWeight + c.EvidenceWeight + c.ExtractionWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("confidence weights must sum to 1, got %.3f", sum)
	}
	for name, v := range map[string]float64{
		"unclear_proxy_confidence": c.UnclearProxyConfidence,
		"decided_proxy_confidence": c.DecidedProxyConfidence,
		"neutral_confidence":       c.NeutralConfidence,
		"low_extraction_ceiling":   c.LowExtractionCeiling,
		"mid_extraction_ceiling":   c.MidExtractionCeiling,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %.3f", name, v)
		}
	}
	if c.CitationSaturation <= 0 || c.WordSaturation <= 0 {
		return fmt.Errorf("saturation pivots must be positive")
	}
	if c.LowExtractionThreshold > c.MidExtractionThreshold {
		return fmt.Errorf("low_extraction_threshold cannot exceed mid_extraction_threshold")
	}
	return nil
}
