package audit_test

import (
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/audit"
	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/overrides"
	"github.com/mwhitfield/assay/internal/policy"
	"github.com/mwhitfield/assay/internal/runs"
	"github.com/mwhitfield/assay/internal/verdict"
)

func composeRun(t *testing.T, doc *verdict.Document) *runs.AssessmentRun {
	t.Helper()
	return runs.Compose(policy.Default(), uuid.New(), uuid.New(), doc, nil, time.Now())
}

func baseDocument() *verdict.Document {
	return &verdict.Document{
		CriterionChecks: []verdict.CriterionDecision{
			{Code: "P1", Decision: verdict.DecisionAchieved, Evidence: []verdict.Citation{
				{Page: 2, QuotedText: "design rationale", WordCount: 2},
			}},
			{Code: "M1", Decision: verdict.DecisionAchieved},
		},
		ConfidenceSignals: verdict.ConfidenceSignals{ExtractionConfidence: 0.9, GradingConfidence: 0.8},
		OverallGrade:      "Merit",
		FeedbackText:      "Solid submission.",
	}
}

func TestDiffIdenticalRuns(t *testing.T) {
	cfg := notes.Default()
	older := composeRun(t, baseDocument())
	newer := composeRun(t, baseDocument())

	report := audit.Diff(older, newer, cfg, notes.Context{})

	if report.Changed {
		t.Errorf("Changed = true, deltas = %v; want no drift", report.Deltas)
	}
	if report.Deltas == nil {
		t.Error("Deltas is nil, want empty slice")
	}
}

func TestDiffGradeChanged(t *testing.T) {
	cfg := notes.Default()
	older := composeRun(t, baseDocument())

	regraded := baseDocument()
	regraded.CriterionChecks[1].Decision = verdict.DecisionNotAchieved
	newer := composeRun(t, regraded)

	report := audit.Diff(older, newer, cfg, notes.Context{})

	if !report.Changed {
		t.Fatal("Changed = false, want grade drift reported")
	}
	if !slices.Contains(report.Deltas, "Grade changed: Merit -> Pass") {
		t.Errorf("Deltas = %v, want grade delta with both grades", report.Deltas)
	}
}

func TestDiffFeedbackTrimmed(t *testing.T) {
	cfg := notes.Default()
	older := composeRun(t, baseDocument())

	padded := baseDocument()
	padded.FeedbackText = "  Solid submission.\n"
	samePadded := composeRun(t, padded)

	report := audit.Diff(older, samePadded, cfg, notes.Context{})
	if report.Changed {
		t.Errorf("whitespace-only feedback difference reported as drift: %v", report.Deltas)
	}

	reworded := baseDocument()
	reworded.FeedbackText = "Needs more depth in task two."
	newer := composeRun(t, reworded)

	report = audit.Diff(older, newer, cfg, notes.Context{})
	if !slices.Contains(report.Deltas, "Feedback text changed") {
		t.Errorf("Deltas = %v, want feedback delta", report.Deltas)
	}
}

func TestDiffNotesChanged(t *testing.T) {
	cfg := notes.Default()
	older := composeRun(t, baseDocument())

	moved := baseDocument()
	moved.CriterionChecks[0].Evidence[0].Page = 7
	newer := composeRun(t, moved)

	report := audit.Diff(older, newer, cfg, notes.Context{})

	if !slices.Contains(report.Deltas, "Page notes changed") {
		t.Errorf("Deltas = %v, want page-note delta", report.Deltas)
	}
}

func TestDiffSeesOverrides(t *testing.T) {
	cfg := notes.Default()
	older := composeRun(t, baseDocument())
	newer := composeRun(t, baseDocument())

	// an override that changes a decision but not its evidence leaves
	// grade and notes untouched from the differ's point of view
	newer.Overrides = []overrides.CriterionOverride{
		{Code: "M1", FinalDecision: verdict.DecisionNotAchieved, ModelDecision: verdict.DecisionAchieved},
	}

	report := audit.Diff(older, newer, cfg, notes.Context{})
	if report.Changed {
		t.Errorf("evidence-free override reported as drift: %v", report.Deltas)
	}
}
