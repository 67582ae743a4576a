package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bucket/internal/controller"
	"github.com/starford/bucket/internal/mcpserver"
	"github.com/starford/bucket/internal/models"
	"github.com/starford/bucket/internal/sidebar"
	"github.com/starford/bucket/internal/sse"
	"github.com/starford/bucket/internal/storeclient"
	"github.com/starford/bucket/internal/tui"
)

func newStoreClient(cfg *Config) *storeclient.Client {
	return storeclient.New(cfg.Remote.BaseURL,
		storeclient.WithToken(cfg.Remote.Token),
		storeclient.WithTimeout(cfg.Remote.Timeout),
	)
}

// OpenController returns a controller backed by the remote store configured
// in cfg.Remote.
func OpenController(cfg *Config, logger *slog.Logger, opts ...controller.Option) *controller.Controller {
	return openController(newStoreClient(cfg), logger, opts...)
}

func openController(client *storeclient.Client, logger *slog.Logger, opts ...controller.Option) *controller.Controller {
	opts = append([]controller.Option{controller.WithLogger(logger)}, opts...)
	return controller.New(client, opts...)
}

// followChanges re-fetches the collection each time the store announces
// notes.changed, until ctx ends. Event payloads are never applied locally.
// A store without an event feed only disables this; it is not an error.
func followChanges(ctx context.Context, client *storeclient.Client, ctrl *controller.Controller, logger *slog.Logger) error {
	err := client.Follow(ctx, func(ev storeclient.Event) {
		if ev.Type != sse.TypeNotesChanged {
			return
		}
		// The controller logs failures.
		_ = ctrl.Synchronize(ctx)
	}, func(err error) {
		logger.Debug("event stream dropped", slog.String("error", err.Error()))
	})
	if err != nil {
		logger.Info("store has no event feed, live updates off", slog.String("error", err.Error()))
	}
	return nil
}

// RunTUI starts the interactive terminal client.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		var closeLog func() error
		logger, closeLog, err = fileLogger(cfg.App.LogFile, cfg.App.LogLevel)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	sections := sidebar.Default()
	if path := cfg.UI.SidebarFile; path != "" {
		loaded, err := sidebar.Load(path)
		if err != nil {
			logger.Warn("sidebar file not loaded, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))
		} else {
			sections = loaded
		}
	}

	client := newStoreClient(cfg)
	ctrl := openController(client, logger)

	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	model := tui.New(ctrl,
		tui.WithContext(runCtx),
		tui.WithDarkMode(cfg.UI.DarkMode),
		tui.WithSections(sections),
		tui.WithBreakpoint(cfg.UI.SidebarBreakpoint),
	)
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(runCtx),
	)

	if path := cfg.UI.SidebarFile; path != "" {
		g.Go(func() error {
			err := sidebar.Watch(runCtx, path, logger, func(s []models.Section) {
				p.Send(tui.SectionsMsg{Sections: s})
			})
			if err != nil {
				logger.Warn("sidebar watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		return followChanges(runCtx, client, ctrl, logger)
	})

	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && runCtx.Err() == nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// RunMCP serves the note tools over MCP stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	ctrl := OpenController(cfg, logger)
	if err := ctrl.Initialize(ctx); err != nil {
		logger.Warn("initial fetch failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("remote", cfg.Remote.BaseURL))
	return mcpserver.New(ctrl).ServeStdio()
}

// fileLogger writes JSON logs to path, or discards them when path is empty.
func fileLogger(path string, level slog.Level) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: level}
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, opts)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f.Close, nil
}
