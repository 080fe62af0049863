package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/activityfeed/internal/metrics"
)

// Load triggers, recorded on each Report.
const (
	TriggerStartup  = "startup"
	TriggerOperator = "operator"
	TriggerRefresh  = "refresh"
	TriggerConfig   = "config"
)

// Scheduler serializes load requests. A single worker runs loads one after
// another; up to queueDepth further requests may wait behind it and anything
// beyond that is rejected with ErrBusy.
type Scheduler struct {
	pipeline *Pipeline
	pool     *workerPool[*loadJob]
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once
	last     atomic.Pointer[Report]
	running  atomic.Bool
	logger   *slog.Logger
}

type loadResult struct {
	report *Report
	err    error
}

type loadJob struct {
	id      string
	trigger string
	done    chan loadResult // nil for fire-and-forget
}

// NewScheduler starts the load worker. Cancelling ctx (or calling Shutdown)
// aborts an in-flight load.
func NewScheduler(ctx context.Context, p *Pipeline, queueDepth int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		pipeline: p,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		logger:   logger,
	}
	s.pool = newWorkerPool[*loadJob](ctx, 1, queueDepth, s.runJob)
	return s
}

func (s *Scheduler) runJob(ctx context.Context, j *loadJob) {
	s.running.Store(true)
	defer s.running.Store(false)

	s.last.Store(&Report{
		LoadID:    j.id,
		Trigger:   j.trigger,
		Source:    s.pipeline.Source().Name(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	})
	rep, err := s.pipeline.Run(ctx, j.id)
	rep.Trigger = j.trigger
	s.last.Store(rep)
	if j.done != nil {
		j.done <- loadResult{report: rep, err: err}
	}
}

func (s *Scheduler) submit(trigger string, done chan loadResult) (string, error) {
	select {
	case <-s.stopped:
		return "", ErrStopped
	default:
	}
	id := uuid.New().String()
	if !s.pool.Submit(&loadJob{id: id, trigger: trigger, done: done}) {
		metrics.LoadsRejected.Inc()
		return "", ErrBusy
	}
	s.logger.Debug("load queued", "load_id", id, "trigger", trigger)
	return id, nil
}

// Trigger queues a load and returns its id without waiting for it.
func (s *Scheduler) Trigger(trigger string) (string, error) {
	return s.submit(trigger, nil)
}

// TriggerWait queues a load and blocks until it finishes. The returned error
// is the load's TransportError, ErrBusy, or ctx.Err().
func (s *Scheduler) TriggerWait(ctx context.Context, trigger string) (*Report, error) {
	done := make(chan loadResult, 1)
	if _, err := s.submit(trigger, done); err != nil {
		return nil, err
	}
	select {
	case res := <-done:
		return res.report, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopped:
		return nil, ErrStopped
	}
}

// Every triggers a refresh load on each tick until stop is called.
func (s *Scheduler) Every(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if _, err := s.Trigger(TriggerRefresh); err != nil {
					if errors.Is(err, ErrStopped) {
						return
					}
					s.logger.Debug("refresh skipped", "err", err)
				}
			case <-done:
				return
			case <-s.stopped:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Last returns the most recent load report, or nil before the first load.
func (s *Scheduler) Last() *Report {
	return s.last.Load()
}

// Running reports whether a load is executing right now.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Pending returns how many loads are queued behind the running one.
func (s *Scheduler) Pending() int {
	return s.pool.QueueLen()
}

// Capacity returns how many loads may wait behind the running one.
func (s *Scheduler) Capacity() int {
	return s.pool.QueueCap()
}

// Shutdown cancels any in-flight load and waits for the worker to exit.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.cancel()
		s.pool.Drain()
	})
}
