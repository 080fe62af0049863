package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gyaneshwarpardhi/activityfeed/internal/api"
	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
	"github.com/gyaneshwarpardhi/activityfeed/internal/feed"
	"github.com/gyaneshwarpardhi/activityfeed/internal/ingest"
	"github.com/gyaneshwarpardhi/activityfeed/internal/store"
)

func main() {
	cfgPath := flag.String("config", "configs/service.yaml", "Path to service YAML config")
	flag.Parse()

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "err", err)
	}

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	level := new(slog.LevelVar)
	if lvl, err := config.ParseLevel(cfg.Log.Level); err == nil {
		level.Set(lvl)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Feed, store, ingestion ───────────────────────────────────────────────
	src, err := feed.New(ctx, cfg.Feed)
	if err != nil {
		slog.Error("failed to build feed source", "err", err)
		os.Exit(1)
	}
	st := store.New()
	pipeline := ingest.NewPipeline(src, st, logger)
	sched := ingest.NewScheduler(ctx, pipeline, cfg.Ingest.QueueDepth, logger)

	// A failed startup load is not fatal: queries answer from the empty
	// dataset and /readyz stays 503 until a later load publishes.
	if rep, err := sched.TriggerWait(ctx, ingest.TriggerStartup); err != nil {
		slog.Warn("initial load failed, serving empty dataset", "err", err)
	} else {
		slog.Info("initial load complete", "records", rep.Accepted, "rejected", rep.Rejected, "version", rep.Version)
	}

	refresh := newRefresher(sched)
	refresh.start(cfg.Feed.RefreshIntervalSec)
	defer refresh.stop()

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// The loader only reports configs that validated and actually changed.
	loader.OnChange(func(ch config.Change) {
		if lvl, err := config.ParseLevel(ch.Next.Log.Level); err == nil {
			level.Set(lvl)
		}
		if !ch.FeedChanged() {
			return
		}
		newSrc, err := feed.New(ctx, ch.Next.Feed)
		if err != nil {
			slog.Warn("hot-reload skipped: feed source invalid", "err", err)
			return
		}
		pipeline.SetSource(newSrc)
		refresh.start(ch.Next.Feed.RefreshIntervalSec)
		slog.Info("feed source hot-reloaded", "source", newSrc.Name())

		if _, err := sched.Trigger(ingest.TriggerConfig); err != nil {
			slog.Warn("reload after config change not queued", "err", err)
		}
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.New(st, sched, cfg.HTTP, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutMs) * time.Millisecond,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTP.Addr, "source", src.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	refresh.stop()
	cancel() // abort any in-flight load
	sched.Shutdown()
	slog.Info("goodbye")
}

// refresher owns the periodic reload ticker so a config change can restart it
// with a new interval.
type refresher struct {
	mu     sync.Mutex
	sched  *ingest.Scheduler
	cancel func()
}

func newRefresher(sched *ingest.Scheduler) *refresher {
	return &refresher{sched: sched}
}

func (r *refresher) start(intervalSec int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if intervalSec <= 0 {
		return
	}
	r.cancel = r.sched.Every(time.Duration(intervalSec) * time.Second)
	slog.Info("periodic refresh enabled", "interval_sec", intervalSec)
}

func (r *refresher) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
