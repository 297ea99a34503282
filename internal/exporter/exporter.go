// Package exporter drives an incremental notebook export: it walks sections
// and pages, asks the change detector what to do with each page, writes
// artifacts and keeps the catalog in step.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/convert"
	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/merge"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/slug"
)

// Defaults for missing remote names.
const (
	DefaultSectionName = "Untitled Section"
	DefaultPageTitle   = "Untitled Page"
)

// Source is the remote content the exporter reads.
type Source interface {
	ListSections(ctx context.Context, notebookID string) ([]models.SectionDescriptor, error)
	ListPages(ctx context.Context, sectionID string) ([]models.PageDescriptor, error)
	GetPageHTML(ctx context.Context, pageID string) (string, error)
}

// Converter renders page HTML as Markdown, writing any assets it extracts.
type Converter interface {
	Convert(ctx context.Context, pageID, rawHTML string) (convert.Result, error)
}

// Deps are the collaborators of an Exporter.
type Deps struct {
	Source    Source
	Converter Converter
	Writer    *artifact.Writer
	// Compiler is required only when Options.Merge is set.
	Compiler *merge.Compiler
	// Catalog defaults to catalog.Null.
	Catalog catalog.Catalog
	Logger  *slog.Logger
}

// Options select what a run exports.
type Options struct {
	Notebook models.NotebookDescriptor
	// Since is the lower time bound for never-seen pages; nil disables it.
	Since   *time.Time
	Merge   bool
	Formats []string
}

// Exporter runs exports for one notebook root.
type Exporter struct {
	source   Source
	conv     Converter
	writer   *artifact.Writer
	compiler *merge.Compiler
	cat      catalog.Catalog
	logger   *slog.Logger
}

// New creates an Exporter.
func New(d Deps) *Exporter {
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Null{}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		source:   d.Source,
		conv:     d.Converter,
		writer:   d.Writer,
		compiler: d.Compiler,
		cat:      cat,
		logger:   logger,
	}
}

// pageRun is the per-page result handed back to the section loop.
type pageRun struct {
	outcome Outcome
	record  *artifact.Record
}

// Run exports the notebook in opts. Source and catalog errors abort the run
// and nothing is committed; per-page render failures are logged, counted
// and skipped. The catalog is committed once, after all artifacts and
// aggregates are written.
func (e *Exporter) Run(ctx context.Context, opts Options) (Result, error) {
	nb := opts.Notebook
	if nb.Name == "" {
		nb.Name = DefaultNotebookName
	}
	nbSlug := slug.Make(nb.Name)
	res := Result{NotebookID: nb.ID, Root: e.writer.Abs("")}

	err := e.cat.UpsertNotebook(models.Notebook{
		ID: nb.ID, Name: nb.Name, Slug: nbSlug, Created: nb.Created, Modified: nb.Modified,
	})
	if err != nil {
		return res, fmt.Errorf("exporter: upsert notebook: %w", err)
	}

	sections, err := e.source.ListSections(ctx, nb.ID)
	if err != nil {
		return res, fmt.Errorf("exporter: list sections: %w", err)
	}

	var records []artifact.Record
	for _, sec := range sections {
		if sec.ID == "" {
			continue
		}
		if sec.Name == "" {
			sec.Name = DefaultSectionName
		}
		err := e.cat.UpsertSection(models.Section{
			ID: sec.ID, NotebookID: nb.ID, Name: sec.Name, Slug: slug.Make(sec.Name),
			Created: sec.Created, Modified: sec.Modified,
		})
		if err != nil {
			return res, fmt.Errorf("exporter: upsert section %s: %w", sec.ID, err)
		}

		pages, err := e.source.ListPages(ctx, sec.ID)
		if err != nil {
			return res, fmt.Errorf("exporter: list pages of %s: %w", sec.ID, err)
		}
		e.logger.Info("exporter: section",
			slog.String("section", sec.Name), slog.Int("pages", len(pages)))

		order := 0
		for _, pd := range pages {
			if pd.ID == "" {
				continue
			}
			pr, err := e.page(ctx, nb, sec, pd, order, opts.Since)
			if err != nil {
				return res, err
			}
			order++
			res = res.Count(pr.outcome)
			if pr.record != nil {
				records = append(records, *pr.record)
			}
		}
	}

	agg, err := e.writer.Aggregate(nbSlug, records, e.cat)
	if err != nil {
		return res, err
	}
	res.Aggregates = agg
	res.Pages = len(records)

	if opts.Merge {
		parts := make([]merge.Part, 0, len(records))
		for _, r := range records {
			parts = append(parts, merge.Part{PageID: r.Entry.PageID, Title: r.Entry.Title, RelPath: r.RelPath})
		}
		out, err := e.compiler.Compile(ctx, nb.Name, nbSlug, parts, opts.Formats, e.cat)
		if err != nil {
			return res, err
		}
		res.Compiled = &out
	}

	if err := e.cat.Commit(); err != nil {
		return res, fmt.Errorf("exporter: commit catalog: %w", err)
	}
	e.logger.Info("catalog: run summary", res.LogAttrs()...)
	return res, nil
}

// page handles one page. The returned error is fatal for the run.
func (e *Exporter) page(ctx context.Context, nb models.NotebookDescriptor, sec models.SectionDescriptor, pd models.PageDescriptor, order int, since *time.Time) (pageRun, error) {
	title := pd.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultPageTitle
	}
	rel := artifact.PagePath(title, pd.ID)
	abs := e.writer.Abs(rel)

	prior, err := e.cat.GetPageState(pd.ID)
	if err != nil {
		return pageRun{}, fmt.Errorf("exporter: page state %s: %w", pd.ID, err)
	}
	exists := e.writer.Exists(rel)
	decision := Decide(pd.Modified, prior, exists, since)

	record := &artifact.Record{
		RelPath: rel,
		Entry: models.IndexEntry{
			Notebook:  nb.Name,
			Section:   sec.Name,
			SectionID: sec.ID,
			Title:     title,
			PageID:    pd.ID,
			Created:   pd.Created,
			Modified:  pd.Modified,
			Path:      abs,
			WebURL:    pd.WebURL,
			ClientURL: pd.ClientURL,
		},
	}
	log := e.logger.With(slog.String("page_id", pd.ID), slog.String("decision", decision.String()))

	switch decision {
	case SkipOutOfWindow:
		return pageRun{outcome: OutOfWindow}, nil
	case SkipUnchanged:
		return pageRun{outcome: Skipped, record: record}, nil
	}

	// The record stays in the listings only while an artifact exists.
	failed := func(stage string, err error) pageRun {
		log.Warn("exporter: page failed", slog.String("stage", stage), slog.String("error", err.Error()))
		if e.writer.Exists(rel) {
			return pageRun{outcome: Failed, record: record}
		}
		return pageRun{outcome: Failed}
	}

	html, err := e.source.GetPageHTML(ctx, pd.ID)
	if err != nil {
		return pageRun{}, fmt.Errorf("exporter: fetch page %s: %w", pd.ID, err)
	}
	conv, err := e.conv.Convert(ctx, pd.ID, html)
	if err != nil {
		return failed("convert", err), nil
	}

	hash := checksum.Text(conv.Markdown)
	fields := frontmatter.Fields{
		Notebook:    nb.Name,
		Section:     sec.Name,
		SectionID:   sec.ID,
		Title:       title,
		PageID:      pd.ID,
		Created:     pd.Created,
		Modified:    pd.Modified,
		WebURL:      pd.WebURL,
		ClientURL:   pd.ClientURL,
		ContentHash: hash,
	}
	if err := e.writer.WritePage(rel, fields, conv.Markdown); err != nil {
		return failed("write", err), nil
	}

	err = e.cat.UpsertPage(models.Page{
		ID:          pd.ID,
		SectionID:   sec.ID,
		NotebookID:  nb.ID,
		Title:       title,
		Slug:        slug.Make(title),
		Created:     pd.Created,
		Modified:    pd.Modified,
		MDPath:      abs,
		ContentHash: hash,
		WordCount:   checksum.WordCount(conv.Markdown),
		PageOrder:   order,
	})
	if err != nil {
		return pageRun{}, fmt.Errorf("exporter: upsert page %s: %w", pd.ID, err)
	}
	if err := e.cat.UpsertAssets(pd.ID, conv.Assets); err != nil {
		return pageRun{}, fmt.Errorf("exporter: upsert assets %s: %w", pd.ID, err)
	}

	outcome := Classify(decision, prior, hash)
	log.Debug("exporter: page written", slog.String("outcome", outcome.String()), slog.String("path", rel))
	return pageRun{outcome: outcome, record: record}, nil
}
