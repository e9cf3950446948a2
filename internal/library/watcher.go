package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"podstudio/internal/logging"
)

// scanConcurrency bounds parallel probes during the startup scan.
const scanConcurrency = 4

// Watcher keeps the global library in sync with its drop folder: audio files
// copied in while the daemon runs are registered as shared assets without an
// API call.
type Watcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewWatcher builds a drop-folder watcher over the registry.
func NewWatcher(registry *Registry, logger *slog.Logger) *Watcher {
	return &Watcher{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "library-watcher"),
	}
}

// Scan registers every unregistered audio file already present in the global
// library directory. Individual failures are logged and skipped.
func (w *Watcher) Scan(ctx context.Context) error {
	dir := w.registry.cfg.GlobalLibraryDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(scanConcurrency)
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isAudioFile(path) {
			return nil
		}
		group.Go(func() error {
			if _, err := w.registry.RegisterGlobalFile(groupCtx, path); err != nil {
				logging.WarnBestEffort(w.logger, "library file not registered", "asset stays invisible",
					logging.String("path", path), logging.Error(err))
			}
			return nil
		})
		return nil
	})
	if waitErr := group.Wait(); err == nil {
		err = waitErr
	}
	return err
}

// Run watches the global library directory until ctx is cancelled. It scans
// once up front so files dropped while the daemon was down are picked up too.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Scan(ctx); err != nil {
		return err
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer notifier.Close()
	if err := notifier.Add(w.registry.cfg.GlobalLibraryDir()); err != nil {
		return err
	}
	w.logger.Info("watching library drop folder",
		logging.Args(logging.String("path", w.registry.cfg.GlobalLibraryDir()))...)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isAudioFile(event.Name) {
				continue
			}
			if _, err := w.registry.RegisterGlobalFile(ctx, event.Name); err != nil {
				logging.WarnBestEffort(w.logger, "dropped file not registered", "asset stays invisible",
					logging.String("path", event.Name), logging.Error(err))
			}
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logging.WarnBestEffort(w.logger, "library watch error", "drop folder events may be lost",
				logging.Error(err))
		}
	}
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".ogg", ".wav", ".flac":
		return true
	default:
		return false
	}
}
