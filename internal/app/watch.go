package app

import (
	"os"
	"sync"
	"time"

	"cutout/internal/config"
)

// ConfigWatcher polls a config file and reloads it when its modification
// time moves forward.
type ConfigWatcher struct {
	path     string
	interval time.Duration

	mu       sync.Mutex
	baseline time.Time
	stopCh   chan struct{}
	onChange func(*config.Config, error)
}

// NewConfigWatcher creates a watcher for the config file at path. The
// current modification time becomes the baseline; a missing file has a
// zero baseline and is picked up once it appears.
func NewConfigWatcher(path string, interval time.Duration) *ConfigWatcher {
	w := &ConfigWatcher{path: path, interval: interval}
	if info, err := os.Stat(path); err == nil {
		w.baseline = info.ModTime()
	}
	return w
}

// OnChange sets the callback invoked with the reloaded config, or with the
// load error. It runs on the watcher goroutine.
func (w *ConfigWatcher) OnChange(fn func(*config.Config, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins polling in a background goroutine.
func (w *ConfigWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.watchLoop(w.stopCh)
}

// Stop stops the watcher goroutine. It may be called more than once.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *ConfigWatcher) watchLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check stats the file once and reloads it if it changed since the last
// check. It reports whether a reload happened. Concurrent checks report a
// change once.
func (w *ConfigWatcher) Check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	if !info.ModTime().After(w.baseline) {
		w.mu.Unlock()
		return false
	}
	w.baseline = info.ModTime()
	fn := w.onChange
	w.mu.Unlock()

	cfg, err := config.Load(w.path)
	if fn != nil {
		fn(cfg, err)
	}
	return true
}

// WatchConfig reloads the state whenever the config file at path changes.
// Load errors are logged and emitted as EventError; the old config stays.
func (s *State) WatchConfig(path string, interval time.Duration) *ConfigWatcher {
	w := NewConfigWatcher(path, interval)
	w.OnChange(func(cfg *config.Config, err error) {
		if err == nil {
			err = s.ApplyConfig(cfg)
		}
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("config reload failed")
			s.Emit(EventError, err)
			return
		}
		s.log.WithField("path", path).Info("config reloaded")
	})
	w.Start()
	return w
}
