package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bucket/internal"
	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/controller"
	pkgconfig "github.com/starford/bucket/pkg/config"
)

// loadConfig reads the --config file. The server needs it to exist; client
// commands fall back to defaults when it is missing.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if required {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// notesAction wraps a scripted controller operation: it loads the list,
// runs fn and prints the synchronized visible notes.
func notesAction(fn func(ctx context.Context, cmd *cli.Command, ctrl *controller.Controller) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))

		ctrl := internal.OpenController(cfg, logger)
		if err := ctrl.Initialize(ctx); err != nil {
			return classify(err)
		}
		if err := fn(ctx, cmd, ctrl); err != nil {
			return classify(err)
		}
		return printNotes(os.Stdout, ctrl.Snapshot())
	}
}

func classify(err error) error {
	return fmt.Errorf("%s: %w", apperr.Kind(err), err)
}

func printNotes(w io.Writer, st controller.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range st.Visible {
		fmt.Fprintf(tw, "%s\t%s\n", n.ID, n.Text)
	}
	return tw.Flush()
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.NArg() != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage notes from scripts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print notes, optionally filtered",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Case-insensitive substring filter",
					},
				},
				Action: notesAction(func(_ context.Context, cmd *cli.Command, ctrl *controller.Controller) error {
					ctrl.SetQuery(cmd.String("query"))
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Create a note",
				ArgsUsage: "TEXT",
				Action: notesAction(func(ctx context.Context, cmd *cli.Command, ctrl *controller.Controller) error {
					if err := requireArgs(cmd, 1, "notes add TEXT"); err != nil {
						return err
					}
					return ctrl.Create(ctx, cmd.Args().First())
				}),
			},
			{
				Name:      "edit",
				Usage:     "Replace the text of a note",
				ArgsUsage: "ID TEXT",
				Action: notesAction(func(ctx context.Context, cmd *cli.Command, ctrl *controller.Controller) error {
					if err := requireArgs(cmd, 2, "notes edit ID TEXT"); err != nil {
						return err
					}
					id := cmd.Args().Get(0)
					if err := ctrl.BeginEdit(id); err != nil {
						return err
					}
					ctrl.SetDraft(cmd.Args().Get(1))
					return ctrl.CommitEdit(ctx, id)
				}),
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a note",
				ArgsUsage: "ID",
				Action: notesAction(func(ctx context.Context, cmd *cli.Command, ctrl *controller.Controller) error {
					if err := requireArgs(cmd, 1, "notes rm ID"); err != nil {
						return err
					}
					return ctrl.Remove(ctx, cmd.Args().First())
				}),
			},
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "bucket",
		Usage:  "Note collection client and store",
		Action: runTUI,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Run the interactive terminal client (default)",
				Action: runTUI,
			},
			{
				Name:   "serve",
				Usage:  "Run the note store server (HTTP API, SQLite, SSE)",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve note tools over MCP stdio",
				Action: runMCP,
			},
			notesCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
