package sidebar

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bucket/internal/models"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the sidebar file whenever it changes and passes the new
// sections to onChange until ctx is cancelled. The parent directory is
// watched so that editors which save by rename are picked up. A file that
// fails to parse is logged and ignored; the previous sections stay in effect.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func([]models.Section)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("sidebar watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("sidebar watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			sections, loadErr := Load(abs)
			if loadErr != nil {
				logger.Warn("sidebar watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			logger.Debug("sidebar watcher: reloaded", slog.Int("sections", len(sections)))
			onChange(sections)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("sidebar watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
