// Package testutil provides shared test helpers for setting up export roots
// and catalogs.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/frontmatter"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/slug"
	"github.com/starford/noteport/internal/storage"
)

// TestCatalog creates a temporary SQLite catalog that is automatically closed.
func TestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })
	return cat
}

// TestExportRoot creates a temporary output directory with a storage.Provider.
func TestExportRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Page describes one page to seed. Assets maps a file name to its content.
type Page struct {
	NotebookID string
	Notebook   string
	SectionID  string
	Section    string
	ID         string
	Title      string
	Modified   string
	Body       string
	Order      int
	Assets     map[string]string
}

// SeedPage writes the artifact and assets of p under <out>/<notebook slug>/
// and commits matching catalog rows. It returns the catalogued page.
func SeedPage(t *testing.T, cat *catalog.Store, out storage.Provider, p Page) models.Page {
	t.Helper()
	nbSlug := slug.Make(p.Notebook)
	rel := filepath.ToSlash(filepath.Join(nbSlug, artifact.PagePath(p.Title, p.ID)))
	fields := frontmatter.Fields{
		Notebook:    p.Notebook,
		Section:     p.Section,
		SectionID:   p.SectionID,
		Title:       p.Title,
		PageID:      p.ID,
		Modified:    p.Modified,
		ContentHash: checksum.Text(p.Body),
	}
	if err := out.Write(rel, frontmatter.Render(fields, p.Body)); err != nil {
		t.Fatal(err)
	}
	abs, err := out.Abs(rel)
	if err != nil {
		t.Fatal(err)
	}

	if err := cat.UpsertNotebook(models.Notebook{ID: p.NotebookID, Name: p.Notebook, Slug: nbSlug}); err != nil {
		t.Fatal(err)
	}
	if err := cat.UpsertSection(models.Section{
		ID: p.SectionID, NotebookID: p.NotebookID, Name: p.Section, Slug: slug.Make(p.Section),
	}); err != nil {
		t.Fatal(err)
	}
	page := models.Page{
		ID:          p.ID,
		SectionID:   p.SectionID,
		NotebookID:  p.NotebookID,
		Title:       p.Title,
		Slug:        slug.Make(p.Title),
		Modified:    p.Modified,
		MDPath:      abs,
		ContentHash: checksum.Text(p.Body),
		WordCount:   checksum.WordCount(p.Body),
		PageOrder:   p.Order,
	}
	if err := cat.UpsertPage(page); err != nil {
		t.Fatal(err)
	}

	var assets []models.Asset
	for name, content := range p.Assets {
		assetRel := "assets/" + p.ID + "/" + name
		if err := out.Write(nbSlug+"/"+assetRel, []byte(content)); err != nil {
			t.Fatal(err)
		}
		assets = append(assets, models.Asset{
			PageID:    p.ID,
			RelPath:   assetRel,
			MimeType:  "image/png",
			SizeBytes: int64(len(content)),
			SHA256:    checksum.Sum([]byte(content)),
		})
	}
	if err := cat.UpsertAssets(p.ID, assets); err != nil {
		t.Fatal(err)
	}
	if err := cat.Commit(); err != nil {
		t.Fatal(err)
	}
	return page
}
