package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/noteport/internal"
	pkgconfig "github.com/starford/noteport/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the config file and applies flag and env overrides. The
// default config file is optional; an explicit one must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")

	var err error
	if cmd.IsSet("config") {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("token") {
		cfg.Graph.Token = cmd.String("token")
	}
	if cmd.IsSet("output") {
		cfg.Export.Output = cmd.String("output")
	}
	if cmd.IsSet("db") {
		cfg.Catalog.Path = cmd.String("db")
	}
	if cmd.IsSet("no-catalog") {
		cfg.Catalog.Enabled = !cmd.Bool("no-catalog")
	}
	if cmd.IsSet("notebook") {
		cfg.Export.Notebook = cmd.String("notebook")
	}
	if cmd.IsSet("notebook-id") {
		cfg.Export.NotebookID = cmd.String("notebook-id")
	}
	if cmd.IsSet("merge") {
		cfg.Export.Merge = cmd.Bool("merge")
	}
	if cmd.IsSet("formats") {
		cfg.Export.Formats = cmd.StringSlice("formats")
	}
	if cmd.IsSet("pandoc") {
		cfg.Export.Pandoc = cmd.String("pandoc")
	}
	if cmd.IsSet("since") {
		cfg.Sync.Since = cmd.String("since")
	}
	if cmd.IsSet("index-only") {
		cfg.Sync.IndexOnly = cmd.Bool("index-only")
	}
	if cmd.IsSet("watch") {
		cfg.Sync.Watch = cmd.String("watch")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: defaultConfigPath,
			Value:       defaultConfigPath,
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory holding one export root per notebook",
			Sources: cli.EnvVars("OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "Catalog database path (default <output>/catalog.sqlite)",
			Sources: cli.EnvVars("DB_PATH"),
		},
	}
	return append(flags, extra...)
}

func listNotebooks(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	nbs, err := internal.ListNotebooks(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("list notebooks: %w", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODIFIED")
	for _, nb := range nbs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", nb.ID, nb.Name, nb.Modified)
	}
	return tw.Flush()
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Export(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	switch {
	case res.Live != nil:
		r := res.Live
		fmt.Printf("%s: %d created, %d updated, %d rerendered, %d skipped, %d repaired, %d out of window, %d failed\n",
			res.Root, r.Created, r.Updated, r.Rerendered, r.Skipped, r.Repaired, r.OutOfWindow, r.Failed)
	case res.Reconciled != nil:
		r := res.Reconciled
		fmt.Printf("%s: %d pages and %d assets reconciled, %d defaulted, %d stale, %d failed\n",
			res.Root, r.Pages, r.Assets, r.Defaulted, r.Stale, r.Failed)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	exportFlags := commonFlags(
		&cli.StringFlag{Name: "token", Usage: "Graph access token", Sources: cli.EnvVars("GRAPH_TOKEN")},
		&cli.StringFlag{Name: "notebook", Aliases: []string{"n"}, Usage: "Notebook name (case-insensitive substring)"},
		&cli.StringFlag{Name: "notebook-id", Usage: "Exact notebook id"},
		&cli.StringFlag{Name: "since", Usage: "Skip never-exported pages modified before this ISO-8601 time"},
		&cli.BoolFlag{Name: "merge", Usage: "Also compile the notebook into one document"},
		&cli.StringSliceFlag{Name: "formats", Usage: "Merged output formats passed to pandoc"},
		&cli.StringFlag{Name: "pandoc", Usage: "pandoc executable"},
		&cli.BoolFlag{Name: "index-only", Usage: "Rebuild the catalog from existing artifacts without fetching"},
		&cli.BoolFlag{Name: "no-catalog", Usage: "Render every page and record nothing"},
	)

	cmd := &cli.Command{
		Name:    "noteport",
		Usage:   "Incremental OneNote notebook exporter with a SQLite catalog",
		Version: internal.Version,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List notebooks visible to the account",
				Flags:  commonFlags(&cli.StringFlag{Name: "token", Usage: "Graph access token", Sources: cli.EnvVars("GRAPH_TOKEN")}),
				Action: listNotebooks,
			},
			{
				Name:   "export",
				Usage:  "Export one notebook to Markdown, skipping unchanged pages",
				Flags:  exportFlags,
				Action: export,
			},
			{
				Name:  "serve",
				Usage: "Serve the catalog browse API",
				Flags: commonFlags(
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port"},
					&cli.StringFlag{Name: "watch", Usage: "Notebook export root to keep reconciled"},
					&cli.StringFlag{Name: "notebook", Aliases: []string{"n"}, Usage: "Notebook name for watched artifacts without one"},
				),
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the export to MCP clients over stdio",
				Flags:  commonFlags(),
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
