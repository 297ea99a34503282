package internal

import (
	"log/slog"

	"github.com/starford/noteport/internal/merge"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	source  Source
	docConv merge.DocConverter
	logger  *slog.Logger
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithSource replaces the Graph client built from graph.* settings.
func WithSource(src Source) Option {
	return func(a *application) {
		a.source = src
	}
}

// WithDocConverter replaces the pandoc converter used for merged formats.
func WithDocConverter(conv merge.DocConverter) Option {
	return func(a *application) {
		a.docConv = conv
	}
}

// WithLogger replaces the JSON logger built from app.log_level.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}
