// Package models defines the records exchanged between the export engine,
// the content source, and the catalog.
package models

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Notebook is the catalog row for one notebook.
type Notebook struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// Validate checks the required fields of the row.
func (n Notebook) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required),
		validation.Field(&n.Name, validation.Required),
		validation.Field(&n.Slug, validation.Required),
	)
}

// Section is the catalog row for one section. NotebookID must already exist.
type Section struct {
	ID         string `json:"id"`
	NotebookID string `json:"notebook_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Created    string `json:"created"`
	Modified   string `json:"modified"`
}

// Validate checks the required fields of the row.
func (s Section) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.NotebookID, validation.Required),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Slug, validation.Required),
	)
}

// Page is the catalog row for one exported page.
//
// ContentHash covers the rendered body only: front matter and the injected
// title heading are excluded so metadata edits never look like content edits.
type Page struct {
	ID          string `json:"id"`
	SectionID   string `json:"section_id"`
	NotebookID  string `json:"notebook_id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Created     string `json:"created"`
	Modified    string `json:"modified"`
	MDPath      string `json:"md_path"`
	MergedPath  string `json:"merged_path"`
	JSONLPath   string `json:"jsonl_path"`
	ContentHash string `json:"content_hash"`
	WordCount   int    `json:"word_count"`
	PageOrder   int    `json:"page_order"`
}

// Validate checks the required fields and value ranges of the row.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.SectionID, validation.Required),
		validation.Field(&p.NotebookID, validation.Required),
		validation.Field(&p.MDPath, validation.Required),
		validation.Field(&p.ContentHash, validation.Match(sha256Hex)),
		validation.Field(&p.WordCount, validation.Min(0)),
		validation.Field(&p.PageOrder, validation.Min(0)),
	)
}

// Asset is one binary resource extracted from a page. RelPath is relative to
// the notebook output root (assets/<page_id>/<name>).
type Asset struct {
	PageID    string `json:"page_id,omitempty"`
	RelPath   string `json:"rel_path"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Validate checks the required fields of the row.
func (a Asset) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.RelPath, validation.Required),
		validation.Field(&a.SizeBytes, validation.Min(0)),
		validation.Field(&a.SHA256, validation.Match(sha256Hex)),
	)
}

// PageState is the read-only projection of a Page row used for change detection.
type PageState struct {
	ID          string
	Modified    string
	ContentHash string
}
