package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/slug"
)

// Record ties an index entry to the artifact it was built from.
type Record struct {
	Entry   models.IndexEntry
	RelPath string
}

// Aggregates lists what Aggregate wrote, relative to the export root.
type Aggregates struct {
	Index          string
	NotebookCorpus string
	SectionCorpora []string
}

// WriteIndex writes the full ordered listing as an indented JSON array.
func (w *Writer) WriteIndex(entries []models.IndexEntry) error {
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode index: %w", err)
	}
	if err := w.store.Write(IndexFile, data); err != nil {
		return fmt.Errorf("artifact: write index: %w", err)
	}
	return nil
}

// Aggregate writes index.json, one section.jsonl per section that has
// records and the whole-notebook corpus. Section corpus paths are recorded
// on each page row through cat.
func (w *Writer) Aggregate(notebookSlug string, recs []Record, cat catalog.Catalog) (Aggregates, error) {
	if cat == nil {
		cat = catalog.Null{}
	}
	entries := make([]models.IndexEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, r.Entry)
	}
	if err := w.WriteIndex(entries); err != nil {
		return Aggregates{}, err
	}
	out := Aggregates{Index: IndexFile}

	var order []string
	bySection := map[string][]Record{}
	for _, r := range recs {
		key := r.Entry.SectionID
		if _, ok := bySection[key]; !ok {
			order = append(order, key)
		}
		bySection[key] = append(bySection[key], r)
	}
	for _, key := range order {
		group := bySection[key]
		name := group[0].Entry.Section
		if name == "" {
			name = key
		}
		rel := SectionCorpusPath(slug.Make(name))
		if err := w.writeCorpus(rel, group); err != nil {
			return out, err
		}
		out.SectionCorpora = append(out.SectionCorpora, rel)
		abs := w.Abs(rel)
		for _, r := range group {
			if err := cat.SetJSONLPath(r.Entry.PageID, abs); err != nil {
				return out, fmt.Errorf("artifact: record corpus path: %w", err)
			}
		}
	}

	rel := NotebookCorpusPath(notebookSlug)
	if err := w.writeCorpus(rel, recs); err != nil {
		return out, err
	}
	out.NotebookCorpus = rel
	return out, nil
}

// writeCorpus emits one JSON object per line. Content is the artifact as it
// exists on disk now, not as it was rendered.
func (w *Writer) writeCorpus(rel string, recs []Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		content, err := w.store.Read(r.RelPath)
		if err != nil {
			w.logger.Warn("artifact: corpus read failed",
				slog.String("path", r.RelPath), slog.String("error", err.Error()))
			content = nil
		}
		rec := models.CorpusRecord{
			ID:       r.Entry.PageID,
			Title:    r.Entry.Title,
			Notebook: r.Entry.Notebook,
			Section:  r.Entry.Section,
			Created:  r.Entry.Created,
			Modified: r.Entry.Modified,
			Content:  string(content),
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("artifact: encode corpus record: %w", err)
		}
	}
	if err := w.store.Write(rel, buf.Bytes()); err != nil {
		return fmt.Errorf("artifact: write %s: %w", rel, err)
	}
	return nil
}
