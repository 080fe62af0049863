package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	path := writeConfig(t, "version: v1\nfeed:\n  source: file:///tmp/activities.csv\n")

	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	cfg := l.Config()
	if cfg.HTTP.Addr != ":3000" {
		t.Errorf("http.addr default: got %q", cfg.HTTP.Addr)
	}
	if cfg.Feed.Compression != config.CompressionAuto {
		t.Errorf("feed.compression default: got %q", cfg.Feed.Compression)
	}
	if cfg.Ingest.QueueDepth != 1 {
		t.Errorf("ingest.queue_depth default: got %d", cfg.Ingest.QueueDepth)
	}
	if cfg.Feed.Source != "file:///tmp/activities.csv" {
		t.Errorf("feed.source: got %q", cfg.Feed.Source)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	l, err := config.NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if got := l.Config().Feed.Source; got != config.DefaultFeedSource {
		t.Errorf("feed.source: got %q, want default", got)
	}
	if err := config.Validate(l.Config()); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvFeedSource, "s3://bucket/activities.csv")
	t.Setenv(config.EnvHTTPAddr, ":9999")
	path := writeConfig(t, "version: v1\nhttp:\n  addr: \":8080\"\n")

	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	cfg := l.Config()
	if cfg.Feed.Source != "s3://bucket/activities.csv" {
		t.Errorf("feed.source: got %q", cfg.Feed.Source)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("http.addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoader_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, "version: v1\nfeed:\n  source: a.csv\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	var changes []config.Change
	l.OnChange(func(c config.Change) { changes = append(changes, c) })

	if err := os.WriteFile(path, []byte("version: v1\nfeed:\n  source: b.csv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("callbacks: got %d, want 1", len(changes))
	}
	if changes[0].Prev.Feed.Source != "a.csv" || changes[0].Next.Feed.Source != "b.csv" {
		t.Errorf("change: prev %q next %q", changes[0].Prev.Feed.Source, changes[0].Next.Feed.Source)
	}
	if !changes[0].FeedChanged() {
		t.Error("source change should count as a feed change")
	}
	if l.Config().Feed.Source != "b.csv" {
		t.Errorf("current config not swapped")
	}

	// Same bytes again: nothing to report.
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("unchanged reload should not notify, got %d callbacks", len(changes))
	}
}

func TestLoader_ReloadOutsideFeed(t *testing.T) {
	path := writeConfig(t, "version: v1\nfeed:\n  source: a.csv\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	var got config.Change
	l.OnChange(func(c config.Change) { got = c })

	if err := os.WriteFile(path, []byte("version: v1\nfeed:\n  source: a.csv\nlog:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got.Next == nil || got.Next.Log.Level != "debug" {
		t.Fatalf("expected a change with the new log level, got %+v", got)
	}
	if got.FeedChanged() {
		t.Error("log level change should not count as a feed change")
	}
}

func TestLoader_InvalidReloadKeepsCurrent(t *testing.T) {
	path := writeConfig(t, "version: v1\nfeed:\n  source: a.csv\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	called := false
	l.OnChange(func(config.Change) { called = true })

	if err := os.WriteFile(path, []byte("version: v1\nfeed:\n  source: b.csv\n  compression: zstd\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err == nil {
		t.Fatal("expected validation error")
	}
	if called {
		t.Error("invalid config must not reach callbacks")
	}
	if l.Config().Feed.Source != "a.csv" {
		t.Errorf("current config replaced by invalid one: %q", l.Config().Feed.Source)
	}
}

func TestLoader_RejectsInvalidInitialConfig(t *testing.T) {
	path := writeConfig(t, "version: v1\nlog:\n  level: chatty\n")
	if _, err := config.NewLoader(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoader_BadYAML(t *testing.T) {
	path := writeConfig(t, "version: [unterminated\n")
	if _, err := config.NewLoader(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := &config.ServiceConfig{Version: "v1"}
	config.ApplyDefaults(cfg)
	cfg.Feed.Compression = "gzip"
	cfg.Log.Level = "loud"
	cfg.Feed.RefreshIntervalSec = -1

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"feed.compression", "log.level", "feed.refresh_interval_sec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}

	if err := config.Validate(&config.ServiceConfig{}); err == nil {
		t.Error("missing version should fail")
	}
}
