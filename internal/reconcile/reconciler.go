// Package reconcile rebuilds the catalog and index.json from artifacts
// already on disk, without contacting the content source.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/convert"
	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/slug"
	"github.com/starford/noteport/internal/storage"
)

// Defaults for fields missing from an artifact.
const (
	UnknownNotebook = "Unknown"
	UnknownSection  = "Unknown Section"
	UntitledPage    = "Untitled Page"
)

// Options identify the notebook whose root is being reconciled.
type Options struct {
	NotebookID   string
	NotebookName string
}

// Report counts what a reconciliation pass saw.
type Report struct {
	Pages  int `json:"pages"`
	Assets int `json:"assets"`
	// Defaulted counts artifacts with at least one field filled by default.
	Defaulted int `json:"defaulted"`
	// Stale counts artifacts whose recorded content_hash no longer matches
	// their body.
	Stale  int `json:"stale"`
	Failed int `json:"failed"`
}

// Reconciler scans one notebook export root.
type Reconciler struct {
	store  storage.Provider
	writer *artifact.Writer
	cat    catalog.Catalog
	logger *slog.Logger
}

// New creates a Reconciler. A nil catalog only rewrites index.json.
func New(store storage.Provider, cat catalog.Catalog, logger *slog.Logger) *Reconciler {
	if cat == nil {
		cat = catalog.Null{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:  store,
		writer: artifact.NewWriter(store, logger),
		cat:    cat,
		logger: logger,
	}
}

// SectionID derives the synthetic id used when an artifact names a section
// but not its id. It is stable across runs.
func SectionID(name string) string {
	return "section-" + checksum.Short(name, 16)
}

// NotebookID derives a stable id from a notebook name.
func NotebookID(name string) string {
	return "notebook-" + checksum.Short(name, 16)
}

func pageIDFromPath(rel string) string {
	return "page-" + checksum.Short(rel, 16)
}

type scanned struct {
	rel      string
	fields   frontmatter.Fields
	body     string
	hash     string
	words    int
	defaults bool
}

// Run parses every artifact under pages/, replaces the matching catalog rows
// and asset rows, writes index.json and commits. Unreadable files are
// logged and skipped; catalog errors abort and discard the pass's writes.
func (r *Reconciler) Run(ctx context.Context, opts Options) (Report, error) {
	rep, err := r.run(ctx, opts)
	if err != nil {
		if rbErr := r.cat.Rollback(); rbErr != nil {
			r.logger.Warn("reconcile: rollback failed", slog.String("error", rbErr.Error()))
		}
	}
	return rep, err
}

func (r *Reconciler) run(ctx context.Context, opts Options) (Report, error) {
	var rep Report
	files, err := r.store.List(artifact.PagesDir)
	if err != nil {
		return rep, fmt.Errorf("reconcile: list artifacts: %w", err)
	}

	var pages []scanned
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		data, err := r.store.Read(f.Path)
		if err != nil {
			r.logger.Warn("reconcile: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			rep.Failed++
			continue
		}
		s := r.scan(f.Path, data)
		if s.defaults {
			rep.Defaulted++
		}
		pages = append(pages, s)
	}

	nbName := opts.NotebookName
	if nbName == "" && len(pages) > 0 {
		nbName = pages[0].fields.Notebook
	}
	if nbName == "" {
		nbName = UnknownNotebook
	}
	nb, err := r.notebook(opts.NotebookID, nbName)
	if err != nil {
		return rep, err
	}
	if err := r.cat.UpsertNotebook(nb); err != nil {
		return rep, fmt.Errorf("reconcile: upsert notebook: %w", err)
	}
	nbID := nb.ID

	seenSection := map[string]bool{}
	order := map[string]int{}
	entries := make([]models.IndexEntry, 0, len(pages))
	for _, p := range pages {
		f := p.fields
		if !seenSection[f.SectionID] {
			err := r.cat.UpsertSection(models.Section{
				ID: f.SectionID, NotebookID: nbID, Name: f.Section, Slug: slug.Make(f.Section),
			})
			if err != nil {
				return rep, fmt.Errorf("reconcile: upsert section %s: %w", f.SectionID, err)
			}
			seenSection[f.SectionID] = true
		}

		if f.ContentHash != "" && f.ContentHash != p.hash {
			rep.Stale++
			r.logger.Info("reconcile: artifact edited since export",
				slog.String("path", p.rel), slog.String("page_id", f.PageID))
		}

		abs := r.writer.Abs(p.rel)
		err := r.cat.UpsertPage(models.Page{
			ID:          f.PageID,
			SectionID:   f.SectionID,
			NotebookID:  nbID,
			Title:       f.Title,
			Slug:        slug.Make(f.Title),
			Created:     f.Created,
			Modified:    f.Modified,
			MDPath:      abs,
			ContentHash: p.hash,
			WordCount:   p.words,
			PageOrder:   order[f.SectionID],
		})
		if err != nil {
			return rep, fmt.Errorf("reconcile: upsert page %s: %w", f.PageID, err)
		}
		order[f.SectionID]++

		assets, err := r.assets(f.PageID)
		if err != nil {
			r.logger.Warn("reconcile: asset scan failed", slog.String("page_id", f.PageID), slog.String("error", err.Error()))
		}
		if err := r.cat.UpsertAssets(f.PageID, assets); err != nil {
			return rep, fmt.Errorf("reconcile: upsert assets %s: %w", f.PageID, err)
		}
		rep.Assets += len(assets)

		entries = append(entries, models.IndexEntry{
			Notebook:  f.Notebook,
			Section:   f.Section,
			SectionID: f.SectionID,
			Title:     f.Title,
			PageID:    f.PageID,
			Created:   f.Created,
			Modified:  f.Modified,
			Path:      abs,
			WebURL:    f.WebURL,
			ClientURL: f.ClientURL,
		})
	}
	rep.Pages = len(entries)

	if err := r.writer.WriteIndex(entries); err != nil {
		return rep, err
	}
	if err := r.cat.Commit(); err != nil {
		return rep, fmt.Errorf("reconcile: commit catalog: %w", err)
	}
	r.logger.Info("reconcile: done",
		slog.Int("pages", rep.Pages), slog.Int("assets", rep.Assets),
		slog.Int("defaulted", rep.Defaulted), slog.Int("stale", rep.Stale), slog.Int("failed", rep.Failed))
	return rep, nil
}

// notebook picks the row the pass records pages under. A notebook already
// catalogued under the same slug is reused so an index-only pass keeps the
// ids a live export assigned. Without one, id falls back to NotebookID(name).
func (r *Reconciler) notebook(id, name string) (models.Notebook, error) {
	nb := models.Notebook{ID: id, Name: name, Slug: slug.Make(name)}
	found, err := r.cat.FindNotebook(nb.Slug)
	if err != nil {
		return nb, fmt.Errorf("reconcile: find notebook: %w", err)
	}
	if found != nil && (id == "" || found.ID == id) {
		return *found, nil
	}
	if nb.ID == "" {
		nb.ID = NotebookID(name)
	}
	return nb, nil
}

// scan parses one artifact and fills defaults. The hash and word count are
// computed over the body exactly as the export path computes them.
func (r *Reconciler) scan(rel string, data []byte) scanned {
	doc := frontmatter.Parse(data)
	f := doc.Fields
	s := scanned{rel: rel, body: doc.Body}
	if !doc.HasFrontMatter {
		r.logger.Warn("reconcile: no front matter, using defaults", slog.String("path", rel))
	}

	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
			s.defaults = true
		}
	}
	fill(&f.Notebook, UnknownNotebook)
	fill(&f.Section, UnknownSection)
	fill(&f.Title, strings.TrimSpace(strings.TrimPrefix(doc.Heading, "# ")))
	fill(&f.Title, UntitledPage)
	fill(&f.SectionID, SectionID(f.Section))
	fill(&f.PageID, pageIDFromPath(rel))

	s.fields = f
	s.hash = checksum.Text(doc.Body)
	s.words = checksum.WordCount(doc.Body)
	return s
}

// assets lists the files under assets/<pageID>/ as catalog records.
func (r *Reconciler) assets(pageID string) ([]models.Asset, error) {
	if pageID == ".." || strings.ContainsAny(pageID, `/\`) {
		return nil, nil
	}
	files, err := r.store.Walk(path.Join(convert.AssetsDir, pageID))
	if err != nil {
		return nil, err
	}
	out := make([]models.Asset, 0, len(files))
	for _, f := range files {
		data, err := r.store.Read(f.Path)
		if err != nil {
			return out, err
		}
		out = append(out, models.Asset{
			PageID:    pageID,
			RelPath:   f.Path,
			MimeType:  convert.DetectMediaType(path.Base(f.Path), data),
			SizeBytes: f.Size,
			SHA256:    f.Checksum,
		})
	}
	return out, nil
}
