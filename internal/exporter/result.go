package exporter

import (
	"log/slog"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/merge"
)

// Result summarises one export run.
type Result struct {
	NotebookID string
	Root       string
	Created    int
	Updated    int
	// Rerendered counts pages fetched and rendered again whose body hash
	// did not change, such as a metadata-only edit.
	Rerendered int
	Repaired   int
	// Skipped counts skip-unchanged pages. They are neither fetched nor
	// rendered.
	Skipped     int
	OutOfWindow int
	Failed      int
	// Pages is the number of entries in index.json.
	Pages      int
	Aggregates artifact.Aggregates
	Compiled   *merge.Output
}

// Count returns r with the counter for o incremented.
func (r Result) Count(o Outcome) Result {
	switch o {
	case Created:
		r.Created++
	case Updated:
		r.Updated++
	case Rerendered:
		r.Rerendered++
	case Repaired:
		r.Repaired++
	case Skipped:
		r.Skipped++
	case OutOfWindow:
		r.OutOfWindow++
	case Failed:
		r.Failed++
	}
	return r
}

// LogAttrs returns the counters as log attributes.
func (r Result) LogAttrs() []any {
	return []any{
		slog.String("notebook_id", r.NotebookID),
		slog.Int("created", r.Created),
		slog.Int("updated", r.Updated),
		slog.Int("rerendered", r.Rerendered),
		slog.Int("repaired", r.Repaired),
		slog.Int("skipped", r.Skipped),
		slog.Int("out_of_window", r.OutOfWindow),
		slog.Int("failed", r.Failed),
		slog.Int("pages", r.Pages),
	}
}
