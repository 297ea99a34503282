package exporter

import (
	"strings"
	"time"

	"github.com/starford/noteport/internal/models"
)

// Decision is what the change detector wants done with a page.
type Decision int

const (
	// Render fetches, converts and writes the page.
	Render Decision = iota
	// SkipOutOfWindow drops a never-seen page older than the lower bound.
	SkipOutOfWindow
	// SkipUnchanged keeps the existing artifact and catalog row.
	SkipUnchanged
	// Repair re-renders an unchanged page whose artifact or hash is missing.
	Repair
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case SkipOutOfWindow:
		return "skip-out-of-window"
	case SkipUnchanged:
		return "skip-unchanged"
	case Repair:
		return "repair"
	default:
		return "unknown"
	}
}

// Outcome classifies a page after the run has dealt with it.
type Outcome int

const (
	Created Outcome = iota
	Updated
	Rerendered
	Repaired
	Skipped
	OutOfWindow
	Failed
)

func (o Outcome) String() string {
	return [...]string{"created", "updated", "rerendered", "repaired", "skipped", "out_of_window", "failed"}[o]
}

// Decide evaluates the change table for one page. modified is the remote
// timestamp, prior the catalog state (nil when the page was never seen),
// exists whether the artifact is on disk and since the optional lower bound.
//
// An unparsable or empty modified value never skips: the page renders.
func Decide(modified string, prior *models.PageState, exists bool, since *time.Time) Decision {
	ts, known := ParseTimestamp(modified)
	if since != nil && prior == nil && known && ts.Before(*since) {
		return SkipOutOfWindow
	}
	if prior != nil && known && prior.Modified == modified {
		if prior.ContentHash != "" && exists {
			return SkipUnchanged
		}
		return Repair
	}
	return Render
}

// Classify turns a render decision and the freshly computed hash into an
// outcome.
func Classify(d Decision, prior *models.PageState, hash string) Outcome {
	switch {
	case d == Repair:
		return Repaired
	case prior == nil:
		return Created
	case prior.ContentHash != hash:
		return Updated
	default:
		return Rerendered
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
