// Package notes projects citation evidence into page-grouped annotation
// notes consumable by a PDF-marking renderer. Projection is a pure function
// of the effective decisions and the caller-supplied section context; output
// is derived, never a source of truth.
package notes

import (
	"fmt"

	"github.com/mwhitfield/assay/internal/verdict"
)

// NoteItem is a single rendered note line.
type NoteItem struct {
	Text string `json:"text"`
}

// PageNote groups the note lines for one page within one logical section.
// CriterionCode is set only when every item on the page belongs to a single
// criterion.
type PageNote struct {
	Page          int                   `json:"page"`
	SectionID     string                `json:"sectionId"`
	SectionLabel  string                `json:"sectionLabel"`
	CriterionCode verdict.CriterionCode `json:"criterionCode,omitempty"`
	Items         []NoteItem            `json:"items"`
}

// Section is a logical task/part grouping supplied by the caller, mapping
// criterion codes to a labelled section.
type Section struct {
	ID    string                  `json:"id"`
	Label string                  `json:"label"`
	Codes []verdict.CriterionCode `json:"codes"`
}

// Context carries the caller's task/part labelling. Criteria not claimed by
// any section fall into a trailing general section.
type Context struct {
	Sections []Section `json:"sections"`
}

// Fallback section identity for criteria no section claims.
const (
	GeneralSectionID    = "general"
	GeneralSectionLabel = "General"
)

// Config bounds projector output size. Citations beyond MaxNotesPerPage for
// a page, and pages beyond MaxPages overall, are dropped deterministically
// (keep first N in citation order), never merged.
type Config struct {
	MaxNotesPerPage int `toml:"max_notes_per_page"`
	MaxPages        int `toml:"max_pages"`
}

// Default returns a finalized Config carrying all default values.
func Default() Config {
	var c Config
	_ = c.Finalize()
	return c
}

// Finalize applies defaults and validates the configuration.
func (c *Config) Finalize() error {
	if c.MaxNotesPerPage == 0 {
		c.MaxNotesPerPage = 8
	}
	if c.MaxPages == 0 {
		c.MaxPages = 40
	}
	if c.MaxNotesPerPage < 1 || c.MaxPages < 1 {
		return fmt.Errorf("note caps must be positive")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxNotesPerPage != 0 {
		c.MaxNotesPerPage = overlay.MaxNotesPerPage
	}
	if overlay.MaxPages != 0 {
		c.MaxPages = overlay.MaxPages
	}
}
