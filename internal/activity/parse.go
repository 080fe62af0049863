package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// MinFields is the narrowest row that can carry a record: user id,
// timestamp, action and at least one metadata fragment.
const MinFields = 4

// MetadataSeparator is the delimiter the feed's metadata column was split on.
const MetadataSeparator = ","

// ErrRowRejected matches every RejectError.
var ErrRowRejected = errors.New("row rejected")

// Reject reasons, also used as metric labels.
const (
	ReasonTooFewFields = "too_few_fields"
	ReasonUserID       = "user_id"
	ReasonTimestamp    = "timestamp"
	ReasonAction       = "action"
	ReasonPanic        = "panic"
)

// RejectError describes a row that could not be turned into a Record.
type RejectError struct {
	Reason string
	Row    RawRow
	Err    error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("row rejected: %s: %v", e.Reason, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

func (e *RejectError) Is(target error) bool { return target == ErrRowRejected }

// ParseRow converts one feed row into a Record. The returned error is always
// a *RejectError; callers are expected to log it and move on.
func ParseRow(row RawRow) (Record, error) {
	rec, _, err := ParseRowMeta(row)
	return rec, err
}

// ParseRowMeta is ParseRow that also reports whether the metadata fragments
// decoded. A row with undecodable metadata is still admitted, with an empty
// metadata object.
func ParseRowMeta(row RawRow) (Record, bool, error) {
	if len(row) < MinFields {
		return Record{}, false, &RejectError{
			Reason: ReasonTooFewFields,
			Row:    row,
			Err:    fmt.Errorf("expected at least %d fields, got %d", MinFields, len(row)),
		}
	}

	userID, err := ParseUserID(row[0])
	if err != nil {
		return Record{}, false, &RejectError{Reason: ReasonUserID, Row: row, Err: err}
	}
	ts, err := ParseTimestamp(row[1])
	if err != nil {
		return Record{}, false, &RejectError{Reason: ReasonTimestamp, Row: row, Err: err}
	}

	if strings.TrimSpace(row[2]) == "" {
		return Record{}, false, &RejectError{Reason: ReasonAction, Row: row, Err: errors.New("empty action")}
	}

	meta, ok := DecodeMetadata(row[3:])
	if !ok {
		meta = map[string]any{}
	}
	return Record{
		UserID:    userID,
		Timestamp: ts,
		Action:    row[2],
		Metadata:  meta,
	}, ok, nil
}

// ReconstructMetadata joins metadata fragments back together and decodes
// them as JSON. Anything that does not decode yields an empty object.
func ReconstructMetadata(fragments []string) any {
	v, ok := DecodeMetadata(fragments)
	if !ok {
		return map[string]any{}
	}
	return v
}

// DecodeMetadata is ReconstructMetadata that also reports whether the
// fragments formed valid JSON.
func DecodeMetadata(fragments []string) (any, bool) {
	raw := strings.Join(fragments, MetadataSeparator)
	if raw == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return v, true
}

// ParseUserID accepts decimal integers and integral floats ("7", "7.0", "7e0").
func ParseUserID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty user id")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("user id %q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("user id %q is not an integer", s)
	}
	return int64(f), nil
}

// Layouts tried before the lenient parser. Layouts without a zone are read
// as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

var yearToken = regexp.MustCompile(`(^|[^0-9])([0-9]{4})([^0-9]|$)`)

// ParseTime parses a calendar date/time string. Strings without a zone are
// read as UTC. Anything the fixed layouts miss goes through dateparse, whose
// result is kept only when the input names a four-digit year and that is the
// year it parsed to; partial input like "2024-" or "12:" is an error.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if truncated(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: incomplete", s)
	}
	t, err := lenientParse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if !namesYear(s, t.Year()) {
		return time.Time{}, fmt.Errorf("invalid date %q: no four-digit year", s)
	}
	return t, nil
}

func lenientParse(s string) (t time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("date parser panic: %v", r)
		}
	}()
	return dateparse.ParseIn(s, time.UTC)
}

// truncated reports input that stops on a separator, or on the "T" that
// should introduce a time of day.
func truncated(s string) bool {
	switch last := s[len(s)-1]; {
	case strings.IndexByte("-/.:,+", last) >= 0:
		return true
	case last == 'T' && len(s) > 1 && s[len(s)-2] >= '0' && s[len(s)-2] <= '9':
		return true
	}
	return false
}

func namesYear(s string, year int) bool {
	if year < 1000 || year > 9999 {
		return false
	}
	want := strconv.Itoa(year)
	for _, m := range yearToken.FindAllStringSubmatch(s, -1) {
		if m[2] == want {
			return true
		}
	}
	return false
}

// ParseTimestamp is ParseTime converted to epoch milliseconds.
func ParseTimestamp(s string) (int64, error) {
	t, err := ParseTime(s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
