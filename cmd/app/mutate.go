package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/skald/internal/apperr"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/journal"
)

func createSessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-session",
		Usage: "Create a session document for a date (default today)",
		Flags: globalFlags(
			&cli.StringFlag{Name: "date", Usage: "Session date (YYYY-MM-DD, default today)"},
			&cli.StringFlag{Name: "status", Usage: "Initial status (default in-progress)"},
			&cli.StringFlag{Name: "topics", Usage: "Comma-separated topics", Required: true},
			&cli.StringFlag{Name: "plan", Usage: "Linked plan identifier"},
			&cli.StringFlag{Name: "files", Usage: "Comma-separated touched files"},
			&cli.StringFlag{Name: "summary", Usage: "Initial Summary section content"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.CreateSession(ctx, journal.CreateSessionParams{
				Date:    cmd.String("date"),
				Status:  cmd.String("status"),
				Topics:  splitList(cmd.String("topics")),
				Plan:    cmd.String("plan"),
				Files:   splitList(cmd.String("files")),
				Summary: cmd.String("summary"),
			})
			return reportMutation(cmd, path, err)
		},
	}
}

func createPlanCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-plan",
		Usage: "Create a plan document",
		Flags: globalFlags(
			&cli.StringFlag{Name: "id", Usage: "Plan identifier (becomes the filename)", Required: true},
			&cli.StringFlag{Name: "author", Usage: "Plan author", Required: true},
			&cli.StringFlag{Name: "status", Usage: "Initial status (default planned)"},
			&cli.StringFlag{Name: "topics", Usage: "Comma-separated topics"},
			&cli.StringFlag{Name: "goal", Usage: "Initial Goal section content"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.CreatePlan(ctx, journal.CreatePlanParams{
				ID:     cmd.String("id"),
				Author: cmd.String("author"),
				Status: cmd.String("status"),
				Topics: splitList(cmd.String("topics")),
				Goal:   cmd.String("goal"),
			})
			return reportMutation(cmd, path, err)
		},
	}
}

func createPatternCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-pattern",
		Usage: "Record a reusable lesson as a pattern document",
		Flags: globalFlags(
			&cli.StringFlag{Name: "title", Usage: "Pattern title", Required: true},
			&cli.StringFlag{Name: "keywords", Usage: "Comma-separated trigger keywords", Required: true},
			&cli.StringFlag{Name: "lesson", Usage: "Initial Lesson section content"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.CreatePattern(ctx, journal.CreatePatternParams{
				Title:    cmd.String("title"),
				Keywords: splitList(cmd.String("keywords")),
				Lesson:   cmd.String("lesson"),
			})
			return reportMutation(cmd, path, err)
		},
	}
}

func updateSessionCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-session",
		Usage:     "Update session metadata; list fields are append-if-absent",
		ArgsUsage: "<date>",
		Flags: globalFlags(
			&cli.StringFlag{Name: "status", Usage: "New status"},
			&cli.StringFlag{Name: "plan", Usage: "Linked plan identifier"},
			&cli.StringFlag{Name: "add-topics", Usage: "Comma-separated topics to add"},
			&cli.StringFlag{Name: "add-files", Usage: "Comma-separated touched files to add"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			date := cmd.Args().First()
			if date == "" {
				return fmt.Errorf("update-session: date argument is required")
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.UpdateSession(ctx, date, journal.SessionMutation{
				Status:    cmd.String("status"),
				Plan:      cmd.String("plan"),
				AddTopics: splitList(cmd.String("add-topics")),
				AddFiles:  splitList(cmd.String("add-files")),
			})
			return reportMutation(cmd, path, err)
		},
	}
}

func updatePlanCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-plan",
		Usage:     "Update plan metadata; bumps the updated date",
		ArgsUsage: "<id>",
		Flags: globalFlags(
			&cli.StringFlag{Name: "status", Usage: "New status"},
			&cli.StringFlag{Name: "author", Usage: "New author"},
			&cli.StringFlag{Name: "add-topics", Usage: "Comma-separated topics to add"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("update-plan: id argument is required")
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.UpdatePlan(ctx, id, journal.PlanMutation{
				Status:    cmd.String("status"),
				Author:    cmd.String("author"),
				AddTopics: splitList(cmd.String("add-topics")),
			})
			return reportMutation(cmd, path, err)
		},
	}
}

func appendCommand() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Usage:     "Insert a titled section into a document body",
		ArgsUsage: "<kind> <target>",
		Flags: globalFlags(
			&cli.StringFlag{Name: "heading", Usage: "Title of the new section", Required: true},
			&cli.StringFlag{Name: "content", Usage: "Section content"},
			&cli.StringFlag{Name: "anchor", Usage: "Exact heading text to anchor the insertion at"},
			&cli.StringFlag{Name: "placement", Usage: "before or after the anchor heading (default after)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind := cmd.Args().Get(0)
			target := cmd.Args().Get(1)
			if kind == "" || target == "" {
				return fmt.Errorf("append: kind and target arguments are required")
			}
			anchor := document.Anchor{Heading: cmd.String("anchor")}
			switch cmd.String("placement") {
			case "", "after":
			case "before":
				anchor.Place = document.PlaceBefore
			default:
				return fmt.Errorf("append: placement must be before or after")
			}
			svc, closeIndex, err := openJournal(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeIndex() }()

			path, err := svc.AppendSection(ctx, document.Kind(kind), target,
				cmd.String("heading"), cmd.String("content"), anchor)
			return reportMutation(cmd, path, err)
		},
	}
}

// reportMutation prints the outcome of a mutation. A duplicate create is an
// informational outcome, not a failure: the document is already there and the
// command exits zero.
func reportMutation(cmd *cli.Command, path string, err error) error {
	if errors.Is(err, apperr.ErrAlreadyExists) {
		fmt.Printf("already exists: %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(map[string]string{"path": path})
	}
	fmt.Println(path)
	return nil
}
