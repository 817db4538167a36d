package modelfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a model file whenever it changes on disk and hands each
// successfully parsed model to onLoad. A file that fails to parse is logged
// and skipped, so the previous model stays active.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*domain.Model)
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWatcher watches the directory containing path. Watching the directory
// rather than the file survives editors that replace files via rename.
func NewWatcher(path string, onLoad func(*domain.Model), logger *slog.Logger, metrics *observability.Metrics) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		watcher: fw,
		onLoad:  onLoad,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("model watcher started", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("model watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	m, err := Load(w.path)
	if err != nil {
		w.metrics.ModelReloads.WithLabelValues("error").Inc()
		w.logger.Error("model reload failed, keeping previous model", "path", w.path, "error", err)
		return
	}

	w.metrics.ModelReloads.WithLabelValues("success").Inc()
	w.logger.Info("model reloaded", "path", w.path, "model", m.Name, "presets", m.Presets.Len())
	w.onLoad(m)
}
