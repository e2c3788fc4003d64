// Package audit compares two grading runs of the same submission and
// reports which user-visible fields drifted. It is read-only display
// support: neither run is ever mutated.
package audit

import (
	"fmt"
	"strings"

	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/runs"
)

// Report lists the human-readable differences between two runs.
type Report struct {
	Changed bool     `json:"changed"`
	Deltas  []string `json:"deltas"`
}

// Diff compares overall grade (string equality), feedback text (trimmed
// equality), and the regenerated page-note projections of both runs
// (structural equality, so benign encoding or key-order differences never
// register as drift). Overrides active on each run participate through the
// effective decisions.
func Diff(older, newer *runs.AssessmentRun, cfg notes.Config, ctx notes.Context) Report {
	report := Report{Deltas: make([]string, 0, 3)}

	if older.OverallGrade != newer.OverallGrade {
		report.Deltas = append(report.Deltas, fmt.Sprintf(
			"Grade changed: %s -> %s", older.OverallGrade, newer.OverallGrade,
		))
	}

	if strings.TrimSpace(older.FeedbackText) != strings.TrimSpace(newer.FeedbackText) {
		report.Deltas = append(report.Deltas, "Feedback text changed")
	}

	olderNotes := notes.Project(cfg, older.EffectiveDecisions(), ctx)
	newerNotes := notes.Project(cfg, newer.EffectiveDecisions(), ctx)
	if !notes.Equal(olderNotes, newerNotes) {
		report.Deltas = append(report.Deltas, "Page notes changed")
	}

	report.Changed = len(report.Deltas) > 0
	return report
}
