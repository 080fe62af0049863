// Package ingest loads the activity feed into the dataset store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
	"github.com/gyaneshwarpardhi/activityfeed/internal/feed"
	"github.com/gyaneshwarpardhi/activityfeed/internal/metrics"
	"github.com/gyaneshwarpardhi/activityfeed/internal/store"
)

// Pipeline runs load cycles: stream the feed, parse every row, stage the
// admitted records and publish them in one swap.
type Pipeline struct {
	runMu  sync.Mutex // one load at a time
	srcMu  sync.RWMutex
	src    feed.Source
	store  *store.Store
	logger *slog.Logger
	parse  func(activity.RawRow) (activity.Record, bool, error)
}

// NewPipeline creates a Pipeline publishing into st.
func NewPipeline(src feed.Source, st *store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{src: src, store: st, logger: logger, parse: activity.ParseRowMeta}
}

// SetSource switches the feed used by subsequent loads.
func (p *Pipeline) SetSource(src feed.Source) {
	p.srcMu.Lock()
	defer p.srcMu.Unlock()
	p.src = src
}

// Source returns the feed the next load will read.
func (p *Pipeline) Source() feed.Source {
	p.srcMu.RLock()
	defer p.srcMu.RUnlock()
	return p.src
}

// Run performs one complete load. Bad rows are logged and skipped; only a
// transport failure (or ctx cancellation) aborts the load, in which case the
// staged records are dropped and the current dataset stays published.
func (p *Pipeline) Run(ctx context.Context, loadID string) (*Report, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	src := p.Source()
	rep := &Report{
		LoadID:    loadID,
		Source:    src.Name(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	log := p.logger.With("load_id", loadID, "source", src.Name())
	log.Info("load started")

	staging, err := p.stage(ctx, src, rep, log)
	if err != nil {
		return p.fail(rep, log, err)
	}

	ds := store.NewDataset(staging, src.Name())
	prev := p.store.Publish(ds)

	rep.Status = StatusPublished
	rep.Version = ds.Version
	p.finish(rep)
	metrics.LoadsTotal.WithLabelValues(StatusPublished).Inc()
	metrics.DatasetRecords.Set(float64(ds.Len()))
	metrics.LastSuccessfulLoad.Set(float64(ds.LoadedAt.Unix()))
	log.Info("dataset published",
		"records", ds.Len(),
		"previous_records", prev.Len(),
		"rejected", rep.Rejected,
		"metadata_degraded", rep.MetadataDegraded,
		"version", ds.Version,
		"fingerprint", fmt.Sprintf("%016x", ds.Fingerprint),
		"unchanged", prev.Fingerprint == ds.Fingerprint && prev.Len() == ds.Len(),
		"duration_ms", rep.DurationMs,
	)
	return rep, nil
}

func (p *Pipeline) stage(ctx context.Context, src feed.Source, rep *Report, log *slog.Logger) ([]activity.Record, error) {
	body, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows := feed.NewRowReader(body)
	staging := make([]activity.Record, 0, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rep.Rows++
		metrics.RowsRead.Inc()

		rec, metaOK, err := p.convert(row)
		if err != nil {
			rep.Rejected++
			reason := "unknown"
			var re *activity.RejectError
			if errors.As(err, &re) {
				reason = re.Reason
			}
			metrics.RowsRejected.WithLabelValues(reason).Inc()
			log.Warn("row rejected", "line", rows.Line(), "reason", reason, "row", row, "err", err)
			continue
		}
		if !metaOK {
			rep.MetadataDegraded++
			metrics.MetadataDegraded.Inc()
		}
		staging = append(staging, rec)
	}
	rep.Blank = rows.Blank()
	rep.Accepted = len(staging)
	return staging, nil
}

// convert parses one row. A panic inside the parser rejects that row only.
func (p *Pipeline) convert(row activity.RawRow) (rec activity.Record, metaOK bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, metaOK = activity.Record{}, false
			err = &activity.RejectError{
				Reason: activity.ReasonPanic,
				Row:    row,
				Err:    fmt.Errorf("parser panic: %v", r),
			}
		}
	}()
	return p.parse(row)
}

func (p *Pipeline) fail(rep *Report, log *slog.Logger, err error) (*Report, error) {
	terr := &TransportError{LoadID: rep.LoadID, Source: rep.Source, Err: err}
	rep.Status = StatusFailed
	rep.Error = terr.Error()
	p.finish(rep)
	metrics.LoadsTotal.WithLabelValues(StatusFailed).Inc()
	log.Error("load failed, keeping current dataset",
		"rows_read", rep.Rows,
		"current_records", p.store.Current().Len(),
		"err", err,
	)
	return rep, terr
}

func (p *Pipeline) finish(rep *Report) {
	rep.FinishedAt = time.Now().UTC()
	d := rep.FinishedAt.Sub(rep.StartedAt)
	rep.DurationMs = d.Milliseconds()
	metrics.LoadDuration.Observe(d.Seconds())
}
