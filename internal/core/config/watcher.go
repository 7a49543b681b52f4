package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands every
// valid, actually-different revision to apply.
type Watcher struct {
	path   string
	apply  func(*Config)
	logger *slog.Logger

	debounce time.Duration

	mu      sync.Mutex
	pending *time.Timer
	digest  []byte

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher prepares a watcher for path. A nil logger uses slog.Default().
func NewWatcher(path string, logger *slog.Logger, apply func(*Config)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		apply:    apply,
		logger:   logger,
		debounce: reloadDebounce,
		digest:   fileDigest(path),
		stop:     make(chan struct{}),
	}
}

// Start subscribes to the file's directory, so editors that save by renaming
// a temp file over the original are still seen, and returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.logger.Info("watching config file", "path", w.path)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		defer w.cancelPending()
		w.loop(ctx, fsw)
	}()
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.schedule()
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

func (w *Watcher) reload() {
	sum := fileDigest(w.path)
	if sum == nil {
		return
	}
	w.mu.Lock()
	unchanged := bytes.Equal(sum, w.digest)
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("config file touched without content change", "path", w.path)
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload rejected", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.digest = sum
	w.mu.Unlock()

	w.logger.Info("config file changed", "path", w.path)
	if w.apply != nil {
		w.apply(cfg)
	}
}

func fileDigest(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	sum := sha256.Sum256(data)
	return sum[:]
}
