package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the YAML file.
const (
	EnvFeedSource = "FEED_SOURCE"
	EnvHTTPAddr   = "HTTP_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
)

// Loader owns the service config file. The current config is swapped as a
// whole on reload; readers never see a half-applied file.
type Loader struct {
	path     string
	current  atomic.Pointer[ServiceConfig]
	mu       sync.Mutex // guards onChange and serializes reloads
	onChange []func(Change)
	watcher  *fsnotify.Watcher
}

// Change is delivered to OnChange callbacks after a reload that altered the
// config.
type Change struct {
	Prev *ServiceConfig
	Next *ServiceConfig
}

// FeedChanged reports whether the reload touched the feed section.
func (c Change) FeedChanged() bool {
	return c.Prev.Feed != c.Next.Feed
}

// NewLoader reads and validates the config at path. A missing file is not an
// error: defaults plus environment overrides are used instead.
func NewLoader(path string) (*Loader, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	l := &Loader{path: path}
	l.current.Store(cfg)
	return l, nil
}

// Config returns the config currently in effect.
func (l *Loader) Config() *ServiceConfig {
	return l.current.Load()
}

// OnChange registers fn to run after every reload that changes the config.
func (l *Loader) OnChange(fn func(Change)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload re-reads the file. An unreadable or invalid file leaves the current
// config in place and is returned as an error. Callbacks run only when the
// new config differs from the old one; editors often write a file twice.
func (l *Loader) Reload() (*ServiceConfig, error) {
	next, err := readFile(l.path)
	if err != nil {
		return nil, err
	}
	if err := Validate(next); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.current.Swap(next)
	if reflect.DeepEqual(prev, next) {
		return next, nil
	}
	ch := Change{Prev: prev, Next: next}
	for _, fn := range l.onChange {
		fn(ch)
	}
	return next, nil
}

func readFile(path string) (*ServiceConfig, error) {
	var cfg ServiceConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *ServiceConfig) {
	if v := os.Getenv(EnvFeedSource); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// ApplyDefaults fills zero values with the service defaults.
func ApplyDefaults(cfg *ServiceConfig) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":3000"
	}
	if cfg.HTTP.ReadTimeoutMs == 0 {
		cfg.HTTP.ReadTimeoutMs = 10000
	}
	if cfg.HTTP.WriteTimeoutMs == 0 {
		cfg.HTTP.WriteTimeoutMs = 30000
	}
	if cfg.HTTP.IdleTimeoutMs == 0 {
		cfg.HTTP.IdleTimeoutMs = 60000
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = DefaultFeedSource
	}
	if cfg.Feed.Compression == "" {
		cfg.Feed.Compression = CompressionAuto
	}
	if cfg.Feed.HeaderTimeoutMs == 0 {
		cfg.Feed.HeaderTimeoutMs = 30000
	}
	if cfg.Ingest.QueueDepth == 0 {
		cfg.Ingest.QueueDepth = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
