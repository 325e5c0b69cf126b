package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/skald/internal"
	"github.com/starford/skald/internal/journal"
	pkgconfig "github.com/starford/skald/pkg/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "skald",
		Usage: "Development journal with an always-fresh query index over sessions, plans, and patterns",
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			rebuildCommand(),
			querySessionsCommand(),
			queryPlansCommand(),
			queryPatternsCommand(),
			searchCommand(),
			createSessionCommand(),
			createPlanCommand(),
			createPatternCommand(),
			updateSessionCommand(),
			updatePlanCommand(),
			appendCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand: config location plus the two
// overrides that make one-shot invocations convenient, and the output switch.
func globalFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("SKALD_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "journal",
			Usage:   "Journal root directory (overrides config)",
			Sources: cli.EnvVars("SKALD_JOURNAL_PATH"),
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Index backend: json or sqlite (overrides config)",
			Sources: cli.EnvVars("SKALD_INDEX_BACKEND"),
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Emit machine-readable JSON instead of text",
		},
	}
	return append(flags, extra...)
}

// loadConfig reads the config file (missing file keeps defaults) and applies
// command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("journal"); root != "" {
		cfg.Journal.Path = root
	}
	if backend := cmd.String("backend"); backend != "" {
		cfg.Index.Backend = backend
		cfg.Index.Path = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openJournal builds the service stack for one-shot commands. The returned
// close function must be called before exit.
func openJournal(cmd *cli.Command) (*journal.Service, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(cfg)
	return internal.NewJournal(cfg, logger)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with live index rebuilds",
		Flags: globalFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.Run(ctx, internal.WithConfig(cfg))
		},
	}
}

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild-index",
		Usage: "Force a full index rebuild from the document tree",
		Flags: globalFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			stats, err := svc.Rebuild(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(stats)
			}
			fmt.Printf("indexed %d documents (%d sessions, %d plans, %d patterns) in %s\n",
				stats.Scanned-len(stats.Errors), stats.Sessions, stats.Plans, stats.Patterns, stats.Duration)
			for _, e := range stats.Errors {
				fmt.Printf("  skipped %s: %s\n", e.Path, e.Message)
			}
			return nil
		},
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printItems writes a query result either as `{count, items}` JSON or one
// line per item via row.
func printItems[T any](asJSON bool, items []T, row func(T) string) error {
	if asJSON {
		return printJSON(map[string]any{"count": len(items), "items": items})
	}
	if len(items) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, it := range items {
		fmt.Println(row(it))
	}
	return nil
}

// intFlag parses an integer-valued string flag; empty means zero.
func intFlag(cmd *cli.Command, name string) (int, error) {
	raw := cmd.String(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("flag --%s: %q is not an integer", name, raw)
	}
	return n, nil
}

// splitList turns a comma-separated flag value into a trimmed slice.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
