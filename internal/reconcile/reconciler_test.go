package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/convert"
	"github.com/starford/noteport/internal/exporter"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/storage"
)

type stubSource struct {
	html map[string]string
}

func (s stubSource) ListSections(context.Context, string) ([]models.SectionDescriptor, error) {
	return []models.SectionDescriptor{{ID: "s1", Name: "Ideas"}}, nil
}

func (s stubSource) ListPages(context.Context, string) ([]models.PageDescriptor, error) {
	return []models.PageDescriptor{
		{ID: "page-one-0001", Title: "One", Modified: "2024-01-01T00:00:00Z", WebURL: "https://web/1"},
		{ID: "page-two-0002", Title: "Two: the sequel", Modified: "2024-01-02T00:00:00Z"},
	}, nil
}

func (s stubSource) GetPageHTML(_ context.Context, id string) (string, error) {
	return s.html[id], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openCatalog(t *testing.T, path string) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

func TestRoundTripMatchesLiveExport(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	live := openCatalog(t, filepath.Join(dir, "live.sqlite"))

	src := stubSource{html: map[string]string{
		"page-one-0001": "<h2>Agenda</h2><ul><li>alpha</li><li>beta</li></ul>",
		"page-two-0002": "<p>line one<br>line two \\ with backslash</p>",
	}}
	x := exporter.New(exporter.Deps{
		Source:    src,
		Converter: convert.New(nil, store, quietLogger()),
		Writer:    artifact.NewWriter(store, quietLogger()),
		Catalog:   live,
		Logger:    quietLogger(),
	})
	nb := models.NotebookDescriptor{ID: "nb1", Name: "Work Notes"}
	if _, err := x.Run(context.Background(), exporter.Options{Notebook: nb}); err != nil {
		t.Fatalf("export: %v", err)
	}

	rebuilt := openCatalog(t, filepath.Join(dir, "rebuilt.sqlite"))
	rep, err := New(store, rebuilt, quietLogger()).Run(context.Background(), Options{NotebookID: "nb1", NotebookName: "Work Notes"})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.Pages != 2 || rep.Defaulted != 0 || rep.Stale != 0 {
		t.Errorf("report = %+v", rep)
	}

	for _, id := range []string{"page-one-0001", "page-two-0002"} {
		want, err := live.GetPage(id)
		if err != nil {
			t.Fatalf("live GetPage: %v", err)
		}
		got, err := rebuilt.GetPage(id)
		if err != nil {
			t.Fatalf("rebuilt GetPage: %v", err)
		}
		if got.ContentHash != want.ContentHash || got.WordCount != want.WordCount {
			t.Errorf("%s: hash/words %s/%d, live %s/%d", id, got.ContentHash, got.WordCount, want.ContentHash, want.WordCount)
		}
		if got.SectionID != "s1" || got.Title != want.Title || got.Modified != want.Modified || got.MDPath != want.MDPath {
			t.Errorf("%s: row %+v, live %+v", id, got, want)
		}
	}
}

func TestDefaultsAreStable(t *testing.T) {
	store := newStore(t)
	if err := store.Write("pages/loose.md", []byte("# Heading\n\nsome loose words\n")); err != nil {
		t.Fatal(err)
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	r := New(store, cat, quietLogger())

	rep, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Defaulted != 1 {
		t.Errorf("report = %+v", rep)
	}
	id := pageIDFromPath("pages/loose.md")
	first, err := cat.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if first.SectionID != SectionID(UnknownSection) || first.Title != UntitledPage || first.NotebookID != NotebookID(UnknownNotebook) {
		t.Errorf("row = %+v", first)
	}
	if first.ContentHash != checksum.Text("# Heading\n\nsome loose words\n") || first.WordCount != 5 {
		t.Errorf("hash/words = %s/%d", first.ContentHash, first.WordCount)
	}

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, _ := cat.GetPage(id)
	if *second != *first {
		t.Errorf("second pass differs: %+v vs %+v", second, first)
	}
}

func TestMalformedFrontMatterLines(t *testing.T) {
	store := newStore(t)
	doc := "---\nformat_version: 1\nthis line is junk\npage_id: p9\nsection: Misc\n: no key\n---\n\n# T\n\nbody\n"
	if err := store.Write("pages/t-p9.md", []byte(doc)); err != nil {
		t.Fatal(err)
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	if _, err := New(store, cat, quietLogger()).Run(context.Background(), Options{NotebookID: "nb"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	p, err := cat.GetPage("p9")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if p.SectionID != SectionID("Misc") || p.Title != "T" {
		t.Errorf("row = %+v", p)
	}
}

func TestAssetsRediscoveredAndReplaced(t *testing.T) {
	store := newStore(t)
	art := "---\nformat_version: 1\npage_id: p1\nsection_id: s1\nsection: S\ntitle: Pic\n---\n\n# Pic\n\n![x](../assets/p1/a.png)\n"
	for path, data := range map[string]string{
		"pages/pic-p1.md":   art,
		"assets/p1/a.png":   "png",
		"assets/p1/b.txt":   "notes",
		"assets/orphan/c.x": "ignored",
	} {
		if err := store.Write(path, []byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	r := New(store, cat, quietLogger())

	rep, err := r.Run(context.Background(), Options{NotebookID: "nb"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Assets != 2 {
		t.Errorf("report = %+v", rep)
	}
	assets, err := cat.PageAssets("p1")
	if err != nil {
		t.Fatalf("PageAssets: %v", err)
	}
	if len(assets) != 2 || assets[0].RelPath != "assets/p1/a.png" || assets[0].MimeType != "image/png" ||
		assets[0].SizeBytes != 3 || assets[0].SHA256 != checksum.Sum([]byte("png")) {
		t.Errorf("assets = %+v", assets)
	}

	if err := store.Delete("assets/p1/b.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), Options{NotebookID: "nb"}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	assets, _ = cat.PageAssets("p1")
	if len(assets) != 1 {
		t.Errorf("assets after delete = %+v", assets)
	}
}

func TestStaleHashAndIndex(t *testing.T) {
	store := newStore(t)
	art := "---\nformat_version: 1\npage_id: p1\nsection_id: s1\nsection: S\ntitle: Edited\ncontent_hash: " +
		checksum.Text("original\n") + "\n---\n\n# Edited\n\nchanged by hand\n"
	if err := store.Write("pages/edited-p1.md", []byte(art)); err != nil {
		t.Fatal(err)
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))

	rep, err := New(store, cat, quietLogger()).Run(context.Background(), Options{NotebookID: "nb", NotebookName: "NB"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Stale != 1 {
		t.Errorf("report = %+v", rep)
	}
	st, _ := cat.GetPageState("p1")
	if st.ContentHash != checksum.Text("changed by hand\n") {
		t.Errorf("hash = %s", st.ContentHash)
	}

	data, err := store.Read(artifact.IndexFile)
	if err != nil {
		t.Fatal(err)
	}
	var entries []models.IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].PageID != "p1" || entries[0].Path != filepath.Join(store.Root(), "pages", "edited-p1.md") {
		t.Errorf("entries = %+v", entries)
	}
}

func TestEmptyRoot(t *testing.T) {
	store := newStore(t)
	rep, err := New(store, nil, quietLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Pages != 0 {
		t.Errorf("report = %+v", rep)
	}
	data, _ := store.Read(artifact.IndexFile)
	if string(data) != "[]" {
		t.Errorf("index = %q", data)
	}
}

func TestWatchReconcilesOnChange(t *testing.T) {
	store := newStore(t)
	if err := store.Write("pages/a-p1.md", []byte("---\npage_id: p1\n---\n\n# A\n\nfirst\n")); err != nil {
		t.Fatal(err)
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	r := New(store, cat, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	passes := make(chan Report, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, r, Options{NotebookID: "nb"}, func(rep Report, err error) {
			if err == nil {
				passes <- rep
			}
		})
	}()

	waitFor := func(want int) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case rep := <-passes:
				if rep.Pages == want {
					return
				}
			case <-deadline:
				t.Fatalf("no pass with %d pages", want)
			}
		}
	}
	waitFor(1)

	if err := store.Write("pages/b-p2.md", []byte("---\npage_id: p2\n---\n\n# B\n\nsecond\n")); err != nil {
		t.Fatal(err)
	}
	waitFor(2)

	if st, _ := cat.GetPageState("p2"); st == nil {
		t.Error("p2 not in catalog after watch pass")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Watch did not stop")
	}
}

func TestIndexOnlyKeepsLiveNotebook(t *testing.T) {
	store := newStore(t)
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	src := stubSource{html: map[string]string{
		"page-one-0001": "<p>first</p>",
		"page-two-0002": "<p>second</p>",
	}}
	x := exporter.New(exporter.Deps{
		Source:    src,
		Converter: convert.New(nil, store, quietLogger()),
		Writer:    artifact.NewWriter(store, quietLogger()),
		Catalog:   cat,
		Logger:    quietLogger(),
	})
	nb := models.NotebookDescriptor{ID: "nb-live", Name: "Work Notes"}
	if _, err := x.Run(context.Background(), exporter.Options{Notebook: nb}); err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, err := New(store, cat, quietLogger()).Run(context.Background(), Options{NotebookName: "Work Notes"}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	nbs, err := cat.ListNotebooks()
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if len(nbs) != 1 || nbs[0].ID != "nb-live" {
		t.Errorf("notebooks = %+v", nbs)
	}
	for _, id := range []string{"page-one-0001", "page-two-0002"} {
		p, err := cat.GetPage(id)
		if err != nil {
			t.Fatalf("GetPage: %v", err)
		}
		if p.NotebookID != "nb-live" {
			t.Errorf("%s moved to notebook %q", id, p.NotebookID)
		}
	}
}

func TestExtensionlessAssetTypeIsSniffed(t *testing.T) {
	store := newStore(t)
	art := "---\nformat_version: 1\npage_id: p1\nsection_id: s1\nsection: S\ntitle: Pic\n---\n\n# Pic\n"
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	for path, data := range map[string]string{"pages/pic-p1.md": art, "assets/p1/$value": png} {
		if err := store.Write(path, []byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))
	if _, err := New(store, cat, quietLogger()).Run(context.Background(), Options{NotebookID: "nb"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assets, err := cat.PageAssets("p1")
	if err != nil {
		t.Fatalf("PageAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].MimeType != "image/png" {
		t.Errorf("assets = %+v", assets)
	}
}

type failingAssets struct {
	*catalog.Store
}

func (failingAssets) UpsertAssets(string, []models.Asset) error {
	return errors.New("disk full")
}

func TestFailedPassRollsBack(t *testing.T) {
	store := newStore(t)
	art := "---\nformat_version: 1\npage_id: p1\nsection_id: s1\nsection: S\ntitle: T\n---\n\n# T\n\nbody\n"
	if err := store.Write("pages/t-p1.md", []byte(art)); err != nil {
		t.Fatal(err)
	}
	cat := openCatalog(t, filepath.Join(t.TempDir(), "c.sqlite"))

	if _, err := New(store, failingAssets{cat}, quietLogger()).Run(context.Background(), Options{NotebookID: "nb"}); err == nil {
		t.Fatal("expected error")
	}
	st, err := cat.GetPageState("p1")
	if err != nil {
		t.Fatalf("GetPageState: %v", err)
	}
	if st != nil {
		t.Errorf("partial pass left page row: %+v", st)
	}
	if err := cat.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if nbs, _ := cat.ListNotebooks(); len(nbs) != 0 {
		t.Errorf("notebooks after rollback = %+v", nbs)
	}
}
