package exporter

import (
	"testing"
	"time"

	"github.com/starford/noteport/internal/models"
)

func TestDecide(t *testing.T) {
	const mod = "2024-01-01T00:00:00Z"
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	hashed := &models.PageState{ID: "p", Modified: mod, ContentHash: "h"}
	unhashed := &models.PageState{ID: "p", Modified: mod}
	older := &models.PageState{ID: "p", Modified: "2023-01-01T00:00:00Z", ContentHash: "h"}

	cases := []struct {
		name     string
		modified string
		prior    *models.PageState
		exists   bool
		since    *time.Time
		want     Decision
	}{
		{"new page", mod, nil, false, nil, Render},
		{"unchanged with artifact", mod, hashed, true, nil, SkipUnchanged},
		{"unchanged missing artifact", mod, hashed, false, nil, Repair},
		{"unchanged empty hash", mod, unhashed, true, nil, Repair},
		{"modified changed", mod, older, true, nil, Render},
		{"older than bound, unseen", mod, nil, false, &since, SkipOutOfWindow},
		{"older than bound, seen", mod, hashed, true, &since, SkipUnchanged},
		{"older than bound, seen, changed", mod, older, true, &since, Render},
		{"exactly at bound", "2024-06-01T00:00:00Z", nil, false, &since, Render},
		{"newer than bound", "2024-07-01T00:00:00Z", nil, false, &since, Render},
		{"empty modified", "", &models.PageState{ID: "p", ContentHash: "h"}, true, nil, Render},
		{"garbage modified", "soon", &models.PageState{ID: "p", Modified: "soon", ContentHash: "h"}, true, nil, Render},
		{"garbage modified ignores bound", "soon", nil, false, &since, Render},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.modified, tc.prior, tc.exists, tc.since); got != tc.want {
				t.Errorf("Decide = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	prior := &models.PageState{ID: "p", ContentHash: "h1"}
	cases := []struct {
		d     Decision
		prior *models.PageState
		hash  string
		want  Outcome
	}{
		{Render, nil, "h1", Created},
		{Render, prior, "h2", Updated},
		{Render, prior, "h1", Rerendered},
		{Render, &models.PageState{ID: "p"}, "h1", Updated},
		{Repair, prior, "h2", Repaired},
		{Repair, prior, "h1", Repaired},
	}
	for _, tc := range cases {
		if got := Classify(tc.d, tc.prior, tc.hash); got != tc.want {
			t.Errorf("Classify(%s, %+v, %s) = %s, want %s", tc.d, tc.prior, tc.hash, got, tc.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2024-01-01T00:00:00Z", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T02:00:00+02:00", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T00:00:00.1234567Z", true, time.Date(2024, 1, 1, 0, 0, 0, 123456700, time.UTC)},
		{"2024-01-01T00:00:00", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"Jan 1", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := ParseTimestamp(tc.in)
		if ok != tc.ok || !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveNotebook(t *testing.T) {
	nbs := []models.NotebookDescriptor{
		{ID: "a", Name: "Work Notes"},
		{ID: "b", Name: "Personal"},
		{ID: "c", Name: "Work Archive"},
	}
	if nb, err := ResolveNotebook(nbs, "b", "", nil); err != nil || nb.ID != "b" {
		t.Errorf("by id = %+v, %v", nb, err)
	}
	if _, err := ResolveNotebook(nbs, "zzz", "", nil); err == nil {
		t.Error("unknown id resolved")
	}
	if nb, err := ResolveNotebook(nbs, "", "WORK", nil); err != nil || nb.ID != "a" {
		t.Errorf("by name = %+v, %v", nb, err)
	}
	if _, err := ResolveNotebook(nbs, "", "garden", nil); err == nil {
		t.Error("unmatched name resolved")
	}
	if _, err := ResolveNotebook(nbs, "", "", nil); err == nil {
		t.Error("ambiguous choice resolved")
	}
	nb, err := ResolveNotebook([]models.NotebookDescriptor{{ID: "only"}}, "", "", nil)
	if err != nil || nb.ID != "only" || nb.Name != DefaultNotebookName {
		t.Errorf("single = %+v, %v", nb, err)
	}
}
