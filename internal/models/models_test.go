package models

import (
	"strings"
	"testing"
)

func validPage() Page {
	return Page{
		ID:          "p1",
		SectionID:   "s1",
		NotebookID:  "n1",
		Title:       "Title",
		MDPath:      "/out/nb/pages/title-p1.md",
		ContentHash: strings.Repeat("a", 64),
		WordCount:   3,
	}
}

func TestPageValidate_OK(t *testing.T) {
	if err := validPage().Validate(); err != nil {
		t.Fatalf("valid page rejected: %v", err)
	}
}

func TestPageValidate_EmptyHashAllowed(t *testing.T) {
	p := validPage()
	p.ContentHash = ""
	if err := p.Validate(); err != nil {
		t.Fatalf("empty hash should be allowed: %v", err)
	}
}

func TestPageValidate_Failures(t *testing.T) {
	cases := map[string]func(*Page){
		"missing id":      func(p *Page) { p.ID = "" },
		"missing section": func(p *Page) { p.SectionID = "" },
		"missing path":    func(p *Page) { p.MDPath = "" },
		"bad hash":        func(p *Page) { p.ContentHash = "xyz" },
		"negative words":  func(p *Page) { p.WordCount = -1 },
	}
	for name, mutate := range cases {
		p := validPage()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAssetValidate(t *testing.T) {
	a := Asset{RelPath: "assets/p1/img.png", SizeBytes: 10, SHA256: strings.Repeat("0", 64)}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid asset rejected: %v", err)
	}
	a.RelPath = ""
	if err := a.Validate(); err == nil {
		t.Error("asset without rel_path should fail")
	}
}

func TestSectionAndNotebookValidate(t *testing.T) {
	if err := (Notebook{ID: "n1", Name: "NB", Slug: "nb"}).Validate(); err != nil {
		t.Errorf("notebook: %v", err)
	}
	if err := (Section{ID: "s1", Name: "Sec", Slug: "sec"}).Validate(); err == nil {
		t.Error("section without notebook id should fail")
	}
}
