package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/skald/internal"
	"github.com/starford/skald/internal/mcpserver"
	"github.com/starford/skald/internal/models"
	"github.com/starford/skald/internal/query"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Flags: globalFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := internal.NewLogger(cfg)
			svc, closeIndex, err := internal.NewJournal(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()
			return mcpserver.New(svc).ServeStdio()
		},
	}
}

func querySessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "query-sessions",
		Usage: "List indexed sessions, newest first",
		Flags: globalFlags(
			&cli.StringFlag{Name: "date", Usage: "Exact date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "after", Usage: "Inclusive lower date bound"},
			&cli.StringFlag{Name: "before", Usage: "Inclusive upper date bound"},
			&cli.StringFlag{Name: "last-days", Usage: "Only sessions from the last N days"},
			&cli.StringFlag{Name: "topic", Usage: "Topic substring filter"},
			&cli.StringFlag{Name: "plan", Usage: "Linked plan identifier"},
			&cli.StringFlag{Name: "limit", Usage: "Max results"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lastDays, err := intFlag(cmd, "last-days")
			if err != nil {
				return err
			}
			limit, err := intFlag(cmd, "limit")
			if err != nil {
				return err
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			items, err := svc.Sessions(ctx, query.SessionFilter{
				Date:     cmd.String("date"),
				After:    cmd.String("after"),
				Before:   cmd.String("before"),
				LastDays: lastDays,
				Topic:    cmd.String("topic"),
				Plan:     cmd.String("plan"),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			return printItems(cmd.Bool("json"), items, func(s models.SessionRecord) string {
				line := fmt.Sprintf("%s  %-12s topics=[%s]", s.Date, s.Status, strings.Join(s.Topics, ", "))
				if s.Plan != "" {
					line += "  plan=" + s.Plan
				}
				return line + "  (" + s.Path + ")"
			})
		},
	}
}

func queryPlansCommand() *cli.Command {
	return &cli.Command{
		Name:  "query-plans",
		Usage: "List indexed plans, most recently updated first",
		Flags: globalFlags(
			&cli.StringFlag{Name: "status", Usage: "Status filter"},
			&cli.StringFlag{Name: "author", Usage: "Exact author match"},
			&cli.StringFlag{Name: "topic", Usage: "Topic substring filter"},
			&cli.StringFlag{Name: "updated-after", Usage: "Inclusive lower bound on the updated date"},
			&cli.StringFlag{Name: "updated-before", Usage: "Inclusive upper bound on the updated date"},
			&cli.StringFlag{Name: "limit", Usage: "Max results"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			limit, err := intFlag(cmd, "limit")
			if err != nil {
				return err
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			items, err := svc.Plans(ctx, query.PlanFilter{
				Status:        cmd.String("status"),
				Author:        cmd.String("author"),
				Topic:         cmd.String("topic"),
				UpdatedAfter:  cmd.String("updated-after"),
				UpdatedBefore: cmd.String("updated-before"),
				Limit:         limit,
			})
			if err != nil {
				return err
			}
			return printItems(cmd.Bool("json"), items, func(p models.PlanRecord) string {
				return fmt.Sprintf("%-24s %-12s %-16s updated=%s  topics=[%s]",
					p.ID, p.Status, p.Author, p.Updated, strings.Join(p.Topics, ", "))
			})
		},
	}
}

func queryPatternsCommand() *cli.Command {
	return &cli.Command{
		Name:  "query-patterns",
		Usage: "List indexed patterns by title",
		Flags: globalFlags(
			&cli.StringFlag{Name: "title", Usage: "Title substring filter"},
			&cli.StringFlag{Name: "keyword", Usage: "Trigger-keyword substring filter"},
			&cli.StringFlag{Name: "limit", Usage: "Max results"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			limit, err := intFlag(cmd, "limit")
			if err != nil {
				return err
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			items, err := svc.Patterns(ctx, query.PatternFilter{
				Title:   cmd.String("title"),
				Keyword: cmd.String("keyword"),
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			return printItems(cmd.Bool("json"), items, func(p models.PatternRecord) string {
				return fmt.Sprintf("%-40s keywords=[%s]  (%s)", p.Title, strings.Join(p.Keywords, ", "), p.Path)
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Substring search across document bodies",
		ArgsUsage: "<text>",
		Flags: globalFlags(
			&cli.StringFlag{Name: "scope", Usage: "Limit to one kind: sessions, plans, or patterns"},
			&cli.StringFlag{Name: "limit", Usage: "Max results"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := cmd.Args().First()
			if text == "" {
				return fmt.Errorf("search: text argument is required")
			}
			limit, err := intFlag(cmd, "limit")
			if err != nil {
				return err
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			results, err := svc.Search(ctx, text, query.Scope(cmd.String("scope")), limit)
			if err != nil {
				return err
			}
			return printItems(cmd.Bool("json"), results, func(r models.SearchResult) string {
				snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
				return fmt.Sprintf("[%s] %s  %s: %s", r.Kind, r.Path, r.Label, snippet)
			})
		},
	}
}
