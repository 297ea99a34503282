// Package artifact writes per-page Markdown artifacts and the listings
// derived from them.
package artifact

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/slug"
	"github.com/starford/noteport/internal/storage"
)

// Layout under a notebook export root.
const (
	PagesDir      = "pages"
	IndexFile     = "index.json"
	SectionCorpus = "section.jsonl"
)

// idPrefixLen is how much of a page id goes into its file name.
const idPrefixLen = 8

// PagePath returns the artifact path for a page, relative to the export root.
func PagePath(title, pageID string) string {
	id := pageID
	if r := []rune(id); len(r) > idPrefixLen {
		id = string(r[:idPrefixLen])
	}
	return path.Join(PagesDir, slug.Make(title)+"-"+id+".md")
}

// NotebookCorpusPath returns <notebook-slug>-pages.jsonl.
func NotebookCorpusPath(notebookSlug string) string {
	return notebookSlug + "-pages.jsonl"
}

// SectionCorpusPath returns <section-slug>/section.jsonl.
func SectionCorpusPath(sectionSlug string) string {
	return path.Join(sectionSlug, SectionCorpus)
}

// Writer persists artifacts through a storage provider rooted at one
// notebook's export directory.
type Writer struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(store storage.Provider, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, logger: logger}
}

// Store returns the underlying provider.
func (w *Writer) Store() storage.Provider { return w.store }

// WritePage writes front matter, the title heading and body to rel.
func (w *Writer) WritePage(rel string, fields frontmatter.Fields, body string) error {
	if err := w.store.Write(rel, frontmatter.Render(fields, body)); err != nil {
		return fmt.Errorf("artifact: write page %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether an artifact is present at rel.
func (w *Writer) Exists(rel string) bool {
	return w.store.Exists(rel)
}

// Abs returns the absolute path for rel, or rel itself if it cannot be
// resolved.
func (w *Writer) Abs(rel string) string {
	abs, err := w.store.Abs(rel)
	if err != nil {
		return rel
	}
	return abs
}
