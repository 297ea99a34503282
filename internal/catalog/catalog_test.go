package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/noteport/internal/apperr"
	"github.com/starford/noteport/internal/models"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func hash(c string) string { return strings.Repeat(c, 64) }

func seed(t *testing.T, s *Store) models.Page {
	t.Helper()
	if err := s.UpsertNotebook(models.Notebook{ID: "n1", Name: "NB", Slug: "nb"}); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}
	if err := s.UpsertSection(models.Section{ID: "s1", NotebookID: "n1", Name: "Sec", Slug: "sec"}); err != nil {
		t.Fatalf("UpsertSection: %v", err)
	}
	p := models.Page{
		ID:          "p1",
		SectionID:   "s1",
		NotebookID:  "n1",
		Title:       "Title",
		Slug:        "title",
		Modified:    "t1",
		MDPath:      "p1.md",
		ContentHash: hash("a"),
		WordCount:   10,
	}
	if err := s.UpsertPage(p); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	return p
}

func TestSchemaCreation(t *testing.T) {
	s, _ := testStore(t)
	for _, table := range []string{"notebooks", "sections", "pages", "assets"} {
		var count int
		if err := s.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertPage_Idempotent(t *testing.T) {
	s, _ := testStore(t)
	p := seed(t, s)
	if err := s.UpsertPage(p); err != nil {
		t.Fatalf("second UpsertPage: %v", err)
	}
	p.Title = "Title2"
	if err := s.UpsertPage(p); err != nil {
		t.Fatalf("third UpsertPage: %v", err)
	}

	st, err := s.GetPageState("p1")
	if err != nil {
		t.Fatalf("GetPageState: %v", err)
	}
	if st == nil || st.Modified != "t1" || st.ContentHash != hash("a") {
		t.Errorf("state = %+v", st)
	}
}

func TestUpsertPage_OverwritesChangedFields(t *testing.T) {
	s, _ := testStore(t)
	p := seed(t, s)
	p.Modified = "t2"
	p.ContentHash = hash("b")
	p.JSONLPath = ""
	if err := s.UpsertPage(p); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	got, err := s.GetPage("p1")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if got.Modified != "t2" || got.ContentHash != hash("b") || got.Title != "Title" || got.WordCount != 10 {
		t.Errorf("page = %+v", got)
	}
}

func TestGetPageState_Absent(t *testing.T) {
	s, _ := testStore(t)
	st, err := s.GetPageState("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil state, got %+v", st)
	}
}

func TestUpsertAssets_ReplacesWholesale(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	first := []models.Asset{
		{RelPath: "assets/p1/a.png", MimeType: "image/png", SizeBytes: 1, SHA256: hash("1")},
		{RelPath: "assets/p1/b.png", MimeType: "image/png", SizeBytes: 2, SHA256: hash("2")},
	}
	if err := s.UpsertAssets("p1", first); err != nil {
		t.Fatalf("UpsertAssets: %v", err)
	}
	second := []models.Asset{
		{RelPath: "assets/p1/c.pdf", MimeType: "application/pdf", SizeBytes: 3, SHA256: hash("3")},
		{RelPath: ""},
	}
	if err := s.UpsertAssets("p1", second); err != nil {
		t.Fatalf("UpsertAssets: %v", err)
	}
	got, err := s.PageAssets("p1")
	if err != nil {
		t.Fatalf("PageAssets: %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "assets/p1/c.pdf" || got[0].PageID != "p1" {
		t.Errorf("assets = %+v", got)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s, _ := testStore(t)
	if err := s.UpsertNotebook(models.Notebook{ID: "n1", Name: "NB", Slug: "nb"}); err != nil {
		t.Fatal(err)
	}
	err := s.UpsertPage(models.Page{ID: "p1", SectionID: "nope", NotebookID: "n1", MDPath: "x.md"})
	if err == nil {
		t.Fatal("page with unknown section should be rejected")
	}
}

func TestValidationAtBoundary(t *testing.T) {
	s, _ := testStore(t)
	err := s.UpsertPage(models.Page{ID: "p1"})
	if !errors.Is(err, apperr.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
	err = s.UpsertAssets("", nil)
	if !errors.Is(err, apperr.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestCommitIsDurable(t *testing.T) {
	s, path := testStore(t)
	seed(t, s)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	st, err := reopened.GetPageState("p1")
	if err != nil || st == nil {
		t.Fatalf("committed page missing: %v %+v", err, st)
	}
}

func TestCloseWithoutCommitDiscards(t *testing.T) {
	s, path := testStore(t)
	seed(t, s)
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	st, err := reopened.GetPageState("p1")
	if err != nil {
		t.Fatalf("GetPageState: %v", err)
	}
	if st != nil {
		t.Errorf("uncommitted page survived close: %+v", st)
	}
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	s, _ := testStore(t)
	s.Close()
	err := s.UpsertNotebook(models.Notebook{ID: "n1", Name: "NB", Slug: "nb"})
	if !errors.Is(err, apperr.ErrCatalogClosed) {
		t.Errorf("err = %v, want ErrCatalogClosed", err)
	}
}

func TestSetAggregatePaths(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	if err := s.SetJSONLPath("p1", "/out/sec/section.jsonl"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMergedPath("p1", "/out/nb-compiled.md"); err != nil {
		t.Fatal(err)
	}
	p, _ := s.GetPage("p1")
	if p.JSONLPath != "/out/sec/section.jsonl" || p.MergedPath != "/out/nb-compiled.md" {
		t.Errorf("page = %+v", p)
	}
}

func TestQueries(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	p2 := models.Page{ID: "p2", SectionID: "s1", NotebookID: "n1", Title: "Other", Slug: "other", MDPath: "p2.md", PageOrder: 1}
	if err := s.UpsertPage(p2); err != nil {
		t.Fatal(err)
	}

	nbs, err := s.ListNotebooks()
	if err != nil || len(nbs) != 1 {
		t.Fatalf("ListNotebooks = %v, %v", nbs, err)
	}

	pages, total, err := s.ListPages("n1", 10, 0)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if total != 2 || len(pages) != 2 || pages[0].ID != "p1" {
		t.Errorf("pages = %+v total = %d", pages, total)
	}

	hits, err := s.SearchPages("oth", 10)
	if err != nil || len(hits) != 1 || hits[0].ID != "p2" {
		t.Errorf("search = %+v, %v", hits, err)
	}

	if _, err := s.GetPage("zzz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetPage missing err = %v", err)
	}
}

func TestNullCatalog(t *testing.T) {
	var c Catalog = Null{}
	if err := c.UpsertPage(models.Page{}); err != nil {
		t.Errorf("Null.UpsertPage: %v", err)
	}
	st, err := c.GetPageState("p1")
	if st != nil || err != nil {
		t.Errorf("Null.GetPageState = %+v, %v", st, err)
	}
}

func TestRollbackDiscardsPendingWrites(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	changed := models.Page{ID: "p1", SectionID: "s1", NotebookID: "n1", Title: "Title", Slug: "title", Modified: "t2", MDPath: "p1.md"}
	if err := s.UpsertPage(changed); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	st, err := s.GetPageState("p1")
	if err != nil || st == nil {
		t.Fatalf("GetPageState = %+v, %v", st, err)
	}
	if st.Modified != "t1" || st.ContentHash != hash("a") {
		t.Errorf("state after rollback = %+v", st)
	}
	if err := s.Rollback(); err != nil {
		t.Errorf("second Rollback: %v", err)
	}
}

func TestFindNotebook(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	nb, err := s.FindNotebook("nb")
	if err != nil || nb == nil || nb.ID != "n1" {
		t.Fatalf("FindNotebook = %+v, %v", nb, err)
	}
	nb, err = s.FindNotebook("other")
	if err != nil || nb != nil {
		t.Errorf("FindNotebook(other) = %+v, %v", nb, err)
	}
}

func TestListPagesGroupsBySection(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	if err := s.UpsertSection(models.Section{ID: "s2", NotebookID: "n1", Name: "Later", Slug: "later"}); err != nil {
		t.Fatal(err)
	}
	rows := []models.Page{
		{ID: "p2", SectionID: "s2", NotebookID: "n1", Title: "A", Slug: "a", MDPath: "p2.md", PageOrder: 0},
		{ID: "p3", SectionID: "s1", NotebookID: "n1", Title: "B", Slug: "b", MDPath: "p3.md", PageOrder: 1},
		{ID: "p4", SectionID: "s2", NotebookID: "n1", Title: "C", Slug: "c", MDPath: "p4.md", PageOrder: 1},
	}
	for _, p := range rows {
		if err := s.UpsertPage(p); err != nil {
			t.Fatal(err)
		}
	}
	pages, _, err := s.ListPages("n1", 10, 0)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	var got []string
	for _, p := range pages {
		got = append(got, p.ID)
	}
	if strings.Join(got, ",") != "p1,p3,p2,p4" {
		t.Errorf("order = %v", got)
	}
}
