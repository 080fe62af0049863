// Package store holds the process-wide activity dataset.
package store

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

// Dataset is an immutable snapshot of the activity log. Neither the struct
// nor its Records slice may be modified after NewDataset returns.
type Dataset struct {
	Records     []activity.Record
	Version     string // ULID, empty for the initial dataset
	Source      string
	LoadedAt    time.Time
	Fingerprint uint64
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Empty reports whether the dataset holds no records.
func (d *Dataset) Empty() bool { return len(d.Records) == 0 }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newVersion(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewDataset wraps records in a versioned snapshot. The slice is owned by the
// dataset from here on.
func NewDataset(records []activity.Record, source string) *Dataset {
	now := time.Now().UTC()
	return &Dataset{
		Records:     records,
		Version:     newVersion(now),
		Source:      source,
		LoadedAt:    now,
		Fingerprint: Fingerprint(records),
	}
}

// Store keeps a single reference to the current dataset. Publish swaps the
// reference atomically; readers never lock and never see a partial dataset.
type Store struct {
	current atomic.Pointer[Dataset]
}

// New returns a Store holding an empty dataset.
func New() *Store {
	s := &Store{}
	s.current.Store(&Dataset{Records: []activity.Record{}})
	return s
}

// Publish replaces the current dataset and returns the one it superseded.
func (s *Store) Publish(ds *Dataset) *Dataset {
	return s.current.Swap(ds)
}

// Current returns the dataset visible at the moment of the call.
func (s *Store) Current() *Dataset {
	return s.current.Load()
}

// Loaded reports whether any dataset has been published yet.
func (s *Store) Loaded() bool {
	return s.current.Load().Version != ""
}
