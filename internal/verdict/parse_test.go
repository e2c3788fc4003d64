package verdict_test

import (
	"strings"
	"testing"

	"github.com/mwhitfield/assay/internal/verdict"
)

const sampleDocument = `{
	"criterionChecks": [
		{"code": "P1", "decision": "ACHIEVED", "rationale": "meets the brief", "evidence": [
			{"page": 2, "quotedText": "the design includes", "wordCount": 3}
		]},
		{"code": "p2", "decision": "NOT_ACHIEVED", "rationale": "no testing evidence", "evidence": []},
		{"code": "M1", "decision": "UNCLEAR", "rationale": "partially addressed", "confidence": 0.4, "evidence": [
			{"page": 5, "quotedText": "some discussion of", "wordCount": 3}
		]}
	],
	"confidenceSignals": {"extractionConfidence": 0.9, "gradingConfidence": 0.8},
	"overallGrade": "Merit",
	"feedbackText": "Good work overall.",
	"resubmissionRequired": false
}`

func TestParse(t *testing.T) {
	doc, warnings, err := verdict.Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(doc.CriterionChecks) != 3 {
		t.Fatalf("CriterionChecks = %d, want 3", len(doc.CriterionChecks))
	}
	if doc.CriterionChecks[1].Code != "P2" {
		t.Errorf("lowercase code not normalized: got %s", doc.CriterionChecks[1].Code)
	}
	if doc.OverallGrade != "Merit" {
		t.Errorf("OverallGrade = %s, want Merit", doc.OverallGrade)
	}
	if c := doc.CriterionChecks[2].Confidence; c == nil || *c != 0.4 {
		t.Errorf("M1 confidence = %v, want 0.4", c)
	}
}

func TestParseFencedDocument(t *testing.T) {
	fenced := "```json\n" + sampleDocument + "\n```"

	doc, _, err := verdict.Parse([]byte(fenced))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.CriterionChecks) != 3 {
		t.Errorf("CriterionChecks = %d, want 3", len(doc.CriterionChecks))
	}
}

func TestParseDropsStructuralDefects(t *testing.T) {
	tests := []struct {
		name       string
		document   string
		wantChecks int
		wantReason string
	}{
		{
			name: "malformed code",
			document: `{"criterionChecks": [
				{"code": "X9", "decision": "ACHIEVED"},
				{"code": "P1", "decision": "ACHIEVED"}
			], "feedbackText": "f"}`,
			wantChecks: 1,
			wantReason: "malformed criterion code",
		},
		{
			name: "duplicate code",
			document: `{"criterionChecks": [
				{"code": "P1", "decision": "ACHIEVED"},
				{"code": "P1", "decision": "NOT_ACHIEVED"}
			], "feedbackText": "f"}`,
			wantChecks: 1,
			wantReason: "duplicate criterion code",
		},
		{
			name: "unknown decision",
			document: `{"criterionChecks": [
				{"code": "P1", "decision": "MAYBE"}
			], "feedbackText": "f"}`,
			wantChecks: 0,
			wantReason: "unknown decision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, warnings, err := verdict.Parse([]byte(tt.document))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(doc.CriterionChecks) != tt.wantChecks {
				t.Errorf("CriterionChecks = %d, want %d", len(doc.CriterionChecks), tt.wantChecks)
			}
			if len(warnings) != 1 {
				t.Fatalf("warnings = %v, want exactly one", warnings)
			}
			if !strings.Contains(warnings[0].Reason, tt.wantReason) {
				t.Errorf("warning reason = %q, want containing %q", warnings[0].Reason, tt.wantReason)
			}
		})
	}

	t.Run("first duplicate wins", func(t *testing.T) {
		doc, _, err := verdict.Parse([]byte(`{"criterionChecks": [
			{"code": "P1", "decision": "ACHIEVED"},
			{"code": "P1", "decision": "NOT_ACHIEVED"}
		], "feedbackText": "f"}`))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if doc.CriterionChecks[0].Decision != verdict.DecisionAchieved {
			t.Errorf("decision = %s, want first occurrence kept", doc.CriterionChecks[0].Decision)
		}
	})
}

func TestParseCitationValidation(t *testing.T) {
	doc, warnings, err := verdict.Parse([]byte(`{"criterionChecks": [
		{"code": "P1", "decision": "ACHIEVED", "evidence": [
			{"page": 0, "quotedText": "bad page", "wordCount": 2},
			{"page": 3, "quotedText": "kept", "wordCount": -5}
		]}
	], "feedbackText": "f"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	ev := doc.CriterionChecks[0].Evidence
	if len(ev) != 1 {
		t.Fatalf("evidence = %d citations, want 1 (invalid page dropped)", len(ev))
	}
	if ev[0].WordCount != 0 {
		t.Errorf("negative word count = %d, want clamped to 0", ev[0].WordCount)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one for the dropped citation", warnings)
	}
}

func TestParseClampsSignals(t *testing.T) {
	doc, _, err := verdict.Parse([]byte(`{
		"criterionChecks": [],
		"confidenceSignals": {"extractionConfidence": 1.7, "gradingConfidence": -0.2},
		"feedbackText": "f"
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.ConfidenceSignals.ExtractionConfidence != 1 {
		t.Errorf("extraction = %v, want clamped to 1", doc.ConfidenceSignals.ExtractionConfidence)
	}
	if doc.ConfidenceSignals.GradingConfidence != 0 {
		t.Errorf("grading = %v, want clamped to 0", doc.ConfidenceSignals.GradingConfidence)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    verdict.CriterionCode
		wantErr bool
	}{
		{"P1", "P1", false},
		{"m12", "M12", false},
		{" D3 ", "D3", false},
		{"P123", "", true},
		{"Q1", "", true},
		{"P", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := verdict.ParseCode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCode(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompareCodes(t *testing.T) {
	if verdict.CompareCodes("P2", "P10") >= 0 {
		t.Error("P2 should sort before P10 (numeric index order)")
	}
	if verdict.CompareCodes("M1", "P9") <= 0 {
		t.Error("M1 should sort after P9 (band order)")
	}
	if verdict.CompareCodes("D1", "M2") <= 0 {
		t.Error("D1 should sort after M2 (band order)")
	}
}
