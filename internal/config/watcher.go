package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler receives the freshly loaded configuration after the config
// file changes on disk.
type ReloadHandler func(cfg Config)

// Watcher reloads the configuration when its file is written. Only
// runtime-tunable settings (the diagnostics-enabled flag, thresholds) are
// expected to be applied by handlers; subprocess launch options require a
// session restart.
type Watcher struct {
	mu sync.Mutex

	path    string
	watcher *fsnotify.Watcher
	handler ReloadHandler
	log     *slog.Logger

	debounce time.Duration
	pending  *time.Timer

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher watches the config file at path and invokes handler with the
// reloaded configuration after each write.
func NewWatcher(path string, handler ReloadHandler, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	w := &Watcher{
		path:     absPath,
		watcher:  fsw,
		handler:  handler,
		log:      log,
		debounce: 200 * time.Millisecond,
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

// reload re-reads the config file and delivers it to the handler.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "error", err)
		return
	}

	w.log.Debug("config reloaded", "path", w.path)
	w.handler(cfg)
}

// Close stops the watcher. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
