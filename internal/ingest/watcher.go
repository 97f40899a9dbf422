package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
)

// DefaultSettle is how long a file must go without writes before the watcher
// ingests it.
const DefaultSettle = 2 * time.Second

// Ingester is the watcher's view of Service.
type Ingester interface {
	Ingest(ctx context.Context, req Request) (*catalog.Item, error)
}

// Watcher ingests files dropped into a directory once they stop changing.
type Watcher struct {
	dir    string
	owner  string
	settle time.Duration
	ingest Ingester
	logger *slog.Logger

	onReady func()
}

// NewWatcher constructs a drop-folder watcher. A non-positive settle uses
// DefaultSettle.
func NewWatcher(dir, owner string, settle time.Duration, ingest Ingester, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:    dir,
		owner:  owner,
		settle: settle,
		ingest: ingest,
		logger: logging.NewComponentLogger(logger, "watcher"),
	}
}

// Run watches until ctx is cancelled. Files already present when Run starts
// are left alone.
func (w *Watcher) Run(ctx context.Context) error {
	if strings.TrimSpace(w.dir) == "" {
		return errors.New("watch directory not configured")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("ensure watch directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info("watching drop folder",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	if w.onReady != nil {
		w.onReady()
	}

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	ingested := make(map[string]struct{})
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := timers[path]; ok {
			t.Reset(w.settle)
			return
		}
		timers[path] = time.AfterFunc(w.settle, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("drop folder watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
			return nil
		case evt, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if skipName(evt.Name) {
				continue
			}
			switch {
			case evt.Has(fsnotify.Create), evt.Has(fsnotify.Write):
				if _, done := ingested[evt.Name]; done {
					continue
				}
				schedule(evt.Name)
			case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
				if t, ok := timers[evt.Name]; ok {
					t.Stop()
					delete(timers, evt.Name)
				}
				delete(ingested, evt.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watcher_error"),
				logging.String(logging.FieldErrorHint, "check inotify limits and watch directory permissions"),
			)
		case path := <-ready:
			delete(timers, path)
			w.handle(ctx, path, ingested)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string, ingested map[string]struct{}) {
	if _, done := ingested[path]; done {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	item, err := w.ingest.Ingest(ctx, Request{Path: path, Owner: w.owner})
	if err != nil {
		w.logger.Warn("drop folder file skipped",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "watch_ingest_skipped"),
			logging.String(logging.FieldErrorHint, "only non-empty audio, video and image files are ingested"),
		)
		return
	}
	ingested[path] = struct{}{}
	w.logger.Debug("drop folder file ingested",
		logging.String("path", path),
		logging.String(logging.FieldItemID, item.ID),
	)
}

// skipName ignores dotfiles and common partial-download suffixes.
func skipName(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suffix := range []string{".part", ".partial", ".tmp", ".crdownload"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			return true
		}
	}
	return false
}
