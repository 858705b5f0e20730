// Package inbox imports quote files dropped into a watched directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

const (
	// Pattern selects the files the watcher imports.
	Pattern = "*.json"

	// SuffixImported is appended to a file once its quotes are in the collection.
	SuffixImported = ".imported"

	// SuffixRejected is appended to a file whose contents are not a quote array.
	SuffixRejected = ".rejected"

	defaultSettle = 100 * time.Millisecond
)

// Importer is the subset of the quote service the watcher drives.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (int, error)
}

// Config contains the watcher's settings.
type Config struct {
	Dir      string
	Importer Importer

	// Settle is how long a file must stay quiet before it is imported.
	// Editors and copy tools write in bursts.
	Settle time.Duration

	Logger *slog.Logger
}

// Watcher imports every *.json file created or written in Dir.
type Watcher struct {
	dir      string
	importer Importer
	settle   time.Duration
	logger   *slog.Logger

	rename func(oldpath, newpath string) error
	remove func(path string) error

	// done holds the modification time of imported files that could be
	// neither renamed nor removed. Only Run touches it.
	done map[string]time.Time
}

// New creates a watcher. It does not touch the filesystem until Run.
func New(cfg Config) *Watcher {
	if cfg.Importer == nil {
		panic("inbox: Importer is required")
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = defaultSettle
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:      cfg.Dir,
		importer: cfg.Importer,
		settle:   settle,
		logger:   logger.With(slog.String("component", "inbox"), slog.String("dir", cfg.Dir)),
		rename:   os.Rename,
		remove:   os.Remove,
		done:     make(map[string]time.Time),
	}
}

// Run imports files already waiting in the directory, then watches it until
// ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating inbox %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.InfoContext(ctx, "inbox watcher started")

	pending := make(map[string]time.Time)

	existing, err := filepath.Glob(filepath.Join(w.dir, Pattern))
	if err != nil {
		return fmt.Errorf("listing inbox: %w", err)
	}

	for _, path := range existing {
		pending[path] = time.Time{}
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "inbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if w.wants(event) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.ErrorContext(ctx, "fsnotify error", slog.Any("error", err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}

				delete(pending, path)
				w.importFile(ctx, path)
			}
		}
	}
}

func (w *Watcher) wants(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	matched, _ := filepath.Match(Pattern, filepath.Base(event.Name))

	return matched
}

// importFile feeds path to the importer and renames it by outcome. Files that
// failed for any other reason stay in place and are retried on the next write.
// An imported file is never fed twice: when the rename fails it is removed,
// and when that fails too it is skipped until its contents change.
func (w *Watcher) importFile(ctx context.Context, path string) {
	logger := w.logger.With(slog.String("file", filepath.Base(path)))

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "inbox file unreadable", slog.Any("error", err))
		}
		delete(w.done, path)
		return
	}

	if mod, ok := w.done[path]; ok {
		if mod.Equal(info.ModTime()) {
			logger.DebugContext(ctx, "inbox file already imported")
			return
		}
		delete(w.done, path)
	}

	f, err := os.Open(path)
	if err != nil {
		logger.WarnContext(ctx, "inbox file unreadable", slog.Any("error", err))
		return
	}

	n, err := w.importer.Import(ctx, f)
	f.Close()

	switch {
	case err == nil:
		logger.InfoContext(ctx, "inbox file imported", slog.Int("quotes", n))
		if !w.moveAside(ctx, logger, path, SuffixImported) {
			w.retire(ctx, logger, path, info.ModTime())
		}

	case domain.IsFormat(err):
		logger.WarnContext(ctx, "inbox file rejected", slog.Any("error", err))
		w.moveAside(ctx, logger, path, SuffixRejected)

	default:
		logger.ErrorContext(ctx, "inbox import failed", slog.Any("error", err))
	}
}

func (w *Watcher) moveAside(ctx context.Context, logger *slog.Logger, path, suffix string) bool {
	if err := w.rename(path, path+suffix); err != nil {
		logger.ErrorContext(ctx, "renaming inbox file", slog.Any("error", err))
		return false
	}

	return true
}

// retire gets an imported file that could not be renamed out of the way.
func (w *Watcher) retire(ctx context.Context, logger *slog.Logger, path string, mod time.Time) {
	err := w.remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		logger.WarnContext(ctx, "imported inbox file removed")
		return
	}

	logger.ErrorContext(ctx, "removing imported inbox file", slog.Any("error", err))
	w.done[path] = mod
}
