package notes

import (
	"fmt"
	"slices"

	"github.com/mwhitfield/assay/internal/verdict"
)

// Project emits one note line per citation, attributed to the citation's
// page and tagged with the owning criterion's code. Notes are grouped first
// by logical section (context order, general section last), then by page in
// ascending order; criteria within a page keep decision-set insertion order.
// Output is bounded by cfg and fully deterministic: identical inputs yield
// identical output.
func Project(cfg Config, decisions []verdict.CriterionDecision, ctx Context) []PageNote {
	sections := make([]Section, 0, len(ctx.Sections)+1)
	sections = append(sections, ctx.Sections...)
	sections = append(sections, Section{ID: GeneralSectionID, Label: GeneralSectionLabel})

	claimed := make(map[verdict.CriterionCode]int)
	for i, s := range sections[:len(sections)-1] {
		for _, code := range s.Codes {
			if _, ok := claimed[code]; !ok {
				claimed[code] = i
			}
		}
	}
	general := len(sections) - 1
	sectionFor := func(code verdict.CriterionCode) int {
		if i, ok := claimed[code]; ok {
			return i
		}
		return general
	}

	out := make([]PageNote, 0)

	for si, section := range sections {
		pages := make(map[int]*PageNote)
		var pageOrder []int

		for _, d := range decisions {
			if sectionFor(d.Code) != si {
				continue
			}
			for _, cit := range d.Evidence {
				note, ok := pages[cit.Page]
				if !ok {
					note = &PageNote{
						Page:          cit.Page,
						SectionID:     section.ID,
						SectionLabel:  section.Label,
						CriterionCode: d.Code,
						Items:         make([]NoteItem, 0, 1),
					}
					pages[cit.Page] = note
					pageOrder = append(pageOrder, cit.Page)
					continue
				}
				if note.CriterionCode != d.Code {
					// mixed criteria on this page; drop the single-code tag
					note.CriterionCode = ""
				}
			}
		}

		// second pass appends items so insertion order of criteria within a
		// page follows the decision set, with the per-page cap applied in
		// citation order
		for _, d := range decisions {
			if sectionFor(d.Code) != si {
				continue
			}
			for _, cit := range d.Evidence {
				note := pages[cit.Page]
				if len(note.Items) >= cfg.MaxNotesPerPage {
					continue
				}
				note.Items = append(note.Items, NoteItem{
					Text: fmt.Sprintf("[%s] %s", d.Code, cit.QuotedText),
				})
			}
		}

		slices.Sort(pageOrder)
		for _, p := range pageOrder {
			if len(out) >= cfg.MaxPages {
				return out
			}
			out = append(out, *pages[p])
		}
	}

	return out
}

// Equal reports structural equality of two projections. Used by the rerun
// differ so benign encoding differences never register as drift.
func Equal(a, b []PageNote) bool {
	return slices.EqualFunc(a, b, func(x, y PageNote) bool {
		return x.Page == y.Page &&
			x.SectionID == y.SectionID &&
			x.SectionLabel == y.SectionLabel &&
			x.CriterionCode == y.CriterionCode &&
			slices.Equal(x.Items, y.Items)
	})
}
