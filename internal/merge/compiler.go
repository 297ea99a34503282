// Package merge compiles a notebook's page bodies into one document and
// optionally converts it to other formats.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/storage"
)

// DocConverter converts compiled Markdown into another document format.
type DocConverter interface {
	Convert(ctx context.Context, markdown []byte, format, outPath string) error
}

// Part is one page contributing to the compiled document.
type Part struct {
	PageID  string
	Title   string
	RelPath string
}

// Output lists the files Compile produced, relative to the export root.
type Output struct {
	Markdown string
	Formats  []string
}

// Compiler writes <notebook-slug>-compiled.md and its conversions.
type Compiler struct {
	store  storage.Provider
	conv   DocConverter
	logger *slog.Logger
}

// NewCompiler creates a Compiler. conv may be nil when no secondary format
// is ever requested.
func NewCompiler(store storage.Provider, conv DocConverter, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{store: store, conv: conv, logger: logger}
}

// CompiledPath returns the compiled Markdown path for a notebook slug.
func CompiledPath(notebookSlug, ext string) string {
	return notebookSlug + "-compiled." + ext
}

// Compile concatenates the bodies of parts in order under a notebook heading.
// Bodies are read back from the artifacts, without front matter. A failed
// conversion to any of formats is logged and skipped.
func (c *Compiler) Compile(ctx context.Context, notebookName, notebookSlug string, parts []Part, formats []string, cat catalog.Catalog) (Output, error) {
	if cat == nil {
		cat = catalog.Null{}
	}
	pieces := make([]string, 0, 2*len(parts))
	var included []Part
	for _, p := range parts {
		data, err := c.store.Read(p.RelPath)
		if err != nil {
			c.logger.Warn("merge: artifact unreadable, skipped",
				slog.String("page_id", p.PageID), slog.String("error", err.Error()))
			continue
		}
		doc := frontmatter.Parse(data)
		pieces = append(pieces, "\n\n"+frontmatter.Heading(p.Title)+"\n\n", doc.Body)
		included = append(included, p)
	}
	compiled := []byte("# Notebook: " + notebookName + "\n\n" + strings.Join(pieces, "\n"))

	rel := CompiledPath(notebookSlug, "md")
	if err := c.store.Write(rel, compiled); err != nil {
		return Output{}, fmt.Errorf("merge: write compiled: %w", err)
	}
	out := Output{Markdown: rel}

	abs, err := c.store.Abs(rel)
	if err != nil {
		return out, err
	}
	for _, p := range included {
		if err := cat.SetMergedPath(p.PageID, abs); err != nil {
			return out, fmt.Errorf("merge: record merged path: %w", err)
		}
	}

	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" || format == "md" || format == "markdown" {
			continue
		}
		if c.conv == nil {
			c.logger.Warn("merge: no converter configured", slog.String("format", format))
			continue
		}
		target := CompiledPath(notebookSlug, format)
		targetAbs, err := c.store.Abs(target)
		if err != nil {
			return out, err
		}
		if err := c.conv.Convert(ctx, compiled, format, targetAbs); err != nil {
			c.logger.Warn("merge: conversion failed",
				slog.String("format", format), slog.String("error", err.Error()))
			continue
		}
		out.Formats = append(out.Formats, target)
	}
	return out, nil
}
