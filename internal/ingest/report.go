package ingest

import (
	"errors"
	"fmt"
	"time"
)

// Load statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

var (
	// ErrTransport matches every TransportError.
	ErrTransport = errors.New("feed transport failure")
	// ErrBusy is returned when a load is running and the pending queue is full.
	ErrBusy = errors.New("a load is already in progress")
	// ErrStopped is returned by triggers after the scheduler shut down.
	ErrStopped = errors.New("load scheduler stopped")
)

// TransportError aborts a load: the feed could not be opened or the stream
// broke before it was fully read. The previously published dataset is kept.
type TransportError struct {
	LoadID string
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.LoadID, e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Report summarises one load attempt.
type Report struct {
	LoadID           string    `json:"load_id"`
	Trigger          string    `json:"trigger"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	Rows             int       `json:"rows"`
	Accepted         int       `json:"accepted"`
	Rejected         int       `json:"rejected"`
	Blank            int       `json:"blank"`
	MetadataDegraded int       `json:"metadata_degraded"`
	Version          string    `json:"version,omitempty"`
	Error            string    `json:"error,omitempty"`
}
