// Package pageservice serves exported pages: catalog rows joined with the
// artifacts and assets they point at.
package pageservice

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/noteport/internal/apperr"
	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/storage"
)

// Catalog is the read side of the catalog store.
type Catalog interface {
	ListNotebooks() ([]models.Notebook, error)
	ListPages(notebookID string, limit, offset int) ([]models.Page, int, error)
	GetPage(id string) (*models.Page, error)
	PageAssets(pageID string) ([]models.Asset, error)
	SearchPages(query string, limit int) ([]models.Page, error)
}

// PageDetail is the full representation of an exported page.
type PageDetail struct {
	models.Page
	Assets []models.Asset `json:"assets"`
	// Content is the artifact as stored, front matter included.
	Content string `json:"content"`
	// Body is the rendered page body without front matter or title heading.
	Body     string `json:"body"`
	Checksum string `json:"checksum"`
	Present  bool   `json:"artifact_present"`
}

// Service coordinates catalog lookups and artifact reads.
type Service struct {
	store storage.Provider
	cat   Catalog
}

// NewService creates a page service. store must be rooted at the output
// directory that holds every notebook export root.
func NewService(store storage.Provider, cat Catalog) *Service {
	return &Service{store: store, cat: cat}
}

// ListNotebooks returns every catalogued notebook.
func (s *Service) ListNotebooks(_ context.Context) ([]models.Notebook, error) {
	nbs, err := s.cat.ListNotebooks()
	return nonNilSlice(nbs), err
}

// ListPages returns a page of catalog rows and the total count.
func (s *Service) ListPages(_ context.Context, notebookID string, limit, offset int) ([]models.Page, int, error) {
	pages, total, err := s.cat.ListPages(notebookID, limit, offset)
	return nonNilSlice(pages), total, err
}

// Search matches pages by title.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Page, error) {
	pages, err := s.cat.SearchPages(query, limit)
	return nonNilSlice(pages), err
}

// GetPage returns the catalog row, its assets and the artifact content. A
// row whose artifact is gone is still returned with Present unset.
func (s *Service) GetPage(_ context.Context, id string) (*PageDetail, error) {
	p, err := s.cat.GetPage(id)
	if err != nil {
		return nil, err
	}
	assets, err := s.cat.PageAssets(id)
	if err != nil {
		return nil, err
	}
	d := &PageDetail{Page: *p, Assets: nonNilSlice(assets)}

	data, err := s.readArtifact(p.MDPath)
	switch {
	case err == nil:
		doc := frontmatter.Parse(data)
		d.Content = string(data)
		d.Body = doc.Body
		d.Checksum = checksum.Sum(data)
		d.Present = true
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, err
	}
	return d, nil
}

// ReadArtifact returns the raw artifact of a page.
func (s *Service) ReadArtifact(_ context.Context, id string) ([]byte, error) {
	p, err := s.cat.GetPage(id)
	if err != nil {
		return nil, err
	}
	return s.readArtifact(p.MDPath)
}

// AssetFile resolves name, either a bare file name or an assets/<page_id>/
// relative path, to a catalogued asset of the page and its absolute file.
func (s *Service) AssetFile(_ context.Context, pageID, name string) (string, models.Asset, error) {
	p, err := s.cat.GetPage(pageID)
	if err != nil {
		return "", models.Asset{}, err
	}
	assets, err := s.cat.PageAssets(pageID)
	if err != nil {
		return "", models.Asset{}, err
	}
	name = strings.TrimPrefix(name, "/")
	for _, a := range assets {
		if a.RelPath != name && path.Base(a.RelPath) != name {
			continue
		}
		// Artifacts live in <root>/pages/, asset paths are relative to <root>.
		root := filepath.Dir(filepath.Dir(p.MDPath))
		rel, err := s.relative(filepath.Join(root, filepath.FromSlash(a.RelPath)))
		if err != nil || !s.store.Exists(rel) {
			return "", models.Asset{}, apperr.ErrNotFound
		}
		abs, err := s.store.Abs(rel)
		return abs, a, err
	}
	return "", models.Asset{}, apperr.ErrNotFound
}

// readArtifact reads an absolute catalog path through the store so that
// rows pointing outside the output directory are refused.
func (s *Service) readArtifact(abs string) ([]byte, error) {
	rel, err := s.relative(abs)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(rel)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	return data, err
}

func (s *Service) relative(abs string) (string, error) {
	rel, err := filepath.Rel(s.store.Root(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.ErrNotFound
	}
	return filepath.ToSlash(rel), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
