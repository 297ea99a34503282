package exporter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/noteport/internal/models"
)

// DefaultNotebookName is used when the source reports an empty name.
const DefaultNotebookName = "Untitled Notebook"

// ResolveNotebook picks the notebook to export: by exact id, else by
// case-insensitive name substring (first match wins), else the only one.
func ResolveNotebook(notebooks []models.NotebookDescriptor, id, name string, logger *slog.Logger) (models.NotebookDescriptor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nb, err := resolve(notebooks, id, name, logger)
	if err != nil {
		return nb, err
	}
	if strings.TrimSpace(nb.Name) == "" {
		nb.Name = DefaultNotebookName
	}
	return nb, nil
}

func resolve(notebooks []models.NotebookDescriptor, id, name string, logger *slog.Logger) (models.NotebookDescriptor, error) {
	if id != "" {
		for _, n := range notebooks {
			if n.ID == id {
				return n, nil
			}
		}
		return models.NotebookDescriptor{}, fmt.Errorf("exporter: notebook with id %s not found", id)
	}
	if name != "" {
		needle := strings.ToLower(name)
		var matches []models.NotebookDescriptor
		for _, n := range notebooks {
			if strings.Contains(strings.ToLower(n.Name), needle) {
				matches = append(matches, n)
			}
		}
		if len(matches) == 0 {
			return models.NotebookDescriptor{}, fmt.Errorf("exporter: no notebook name contains %q; available: %s", name, names(notebooks))
		}
		if len(matches) > 1 {
			for _, m := range matches {
				logger.Warn("exporter: multiple notebooks matched, picking the first",
					slog.String("name", m.Name), slog.String("id", m.ID))
			}
		}
		return matches[0], nil
	}
	if len(notebooks) == 1 {
		return notebooks[0], nil
	}
	return models.NotebookDescriptor{}, fmt.Errorf("exporter: specify a notebook name or id; available: %s", names(notebooks))
}

func names(notebooks []models.NotebookDescriptor) string {
	out := make([]string, 0, len(notebooks))
	for _, n := range notebooks {
		out = append(out, n.Name)
	}
	return strings.Join(out, ", ")
}
