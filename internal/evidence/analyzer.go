// Package evidence derives per-criterion and aggregate evidence-coverage
// statistics from the citations attached to a grading verdict. The analyzer
// is a total function: absent evidence degrades to zero-valued rows, never
// errors.
package evidence

import (
	"slices"

	"github.com/mwhitfield/assay/internal/verdict"
)

// Row summarizes citation coverage for a single criterion.
// PageDistribution holds the sorted unique page numbers the criterion cites.
type Row struct {
	Code             verdict.CriterionCode `json:"code"`
	CitationCount    int                   `json:"citationCount"`
	TotalWordsCited  int                   `json:"totalWordsCited"`
	PageDistribution []int                 `json:"pageDistribution"`
}

// Summary aggregates citation coverage across all criteria in a run.
// CriteriaWithoutEvidence feeds both the confidence engine and
// audit-pressure scoring.
type Summary struct {
	CriteriaCount           int `json:"criteriaCount"`
	TotalCitations          int `json:"totalCitations"`
	TotalWordsCited         int `json:"totalWordsCited"`
	CriteriaWithoutEvidence int `json:"criteriaWithoutEvidence"`
}

// Density pairs the per-criterion rows with their aggregate summary.
type Density struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

// Analyze produces one row per criterion in decision order, including
// zero-citation criteria, plus the aggregate summary.
func Analyze(decisions []verdict.CriterionDecision) Density {
	d := Density{Rows: make([]Row, 0, len(decisions))}

	for _, dec := range decisions {
		row := Row{
			Code:             dec.Code,
			CitationCount:    len(dec.Evidence),
			PageDistribution: make([]int, 0, len(dec.Evidence)),
		}

		for _, cit := range dec.Evidence {
			row.TotalWordsCited += cit.WordCount
			row.PageDistribution = append(row.PageDistribution, cit.Page)
		}

		slices.Sort(row.PageDistribution)
		row.PageDistribution = slices.Compact(row.PageDistribution)

		d.Rows = append(d.Rows, row)
		d.Summary.TotalCitations += row.CitationCount
		d.Summary.TotalWordsCited += row.TotalWordsCited
		if row.CitationCount == 0 {
			d.Summary.CriteriaWithoutEvidence++
		}
	}

	d.Summary.CriteriaCount = len(d.Rows)
	return d
}
