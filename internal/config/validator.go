package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Known enum values (compression, log level)
//   - Non-negative timeouts and intervals
func Validate(cfg *ServiceConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if strings.TrimSpace(cfg.Feed.Source) == "" {
		errs = append(errs, "feed.source is required")
	}
	switch cfg.Feed.Compression {
	case CompressionAuto, CompressionNone, CompressionSnappy:
	default:
		errs = append(errs, fmt.Sprintf("feed.compression: unknown mode %q (want auto, none or snappy)", cfg.Feed.Compression))
	}
	if cfg.Feed.HeaderTimeoutMs < 0 {
		errs = append(errs, "feed.header_timeout_ms must not be negative")
	}
	if cfg.Feed.RefreshIntervalSec < 0 {
		errs = append(errs, "feed.refresh_interval_sec must not be negative")
	}
	if cfg.Ingest.QueueDepth < 0 {
		errs = append(errs, "ingest.queue_depth must not be negative")
	}
	if cfg.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}
	if cfg.HTTP.ReadTimeoutMs < 0 || cfg.HTTP.WriteTimeoutMs < 0 || cfg.HTTP.IdleTimeoutMs < 0 {
		errs = append(errs, "http timeouts must not be negative")
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLevel maps a config level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
	}
	return lvl, nil
}
