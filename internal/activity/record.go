package activity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one admitted user activity event. Records are values; once a
// record has been published in a dataset it is never modified.
type Record struct {
	UserID    int64  `json:"user_id"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
	Action    string `json:"action"`
	Metadata  any    `json:"metadata"` // usually map[string]any, any JSON value is accepted
}

// RawRow is one line of the feed split on the delimiter. Fields 0-2 are
// user id, timestamp and action; fields 3.. are fragments of the metadata JSON.
type RawRow []string

// Time returns the record timestamp as a UTC time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

func (r Record) field(key string) (any, bool) {
	m, ok := r.Metadata.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// MetaNumber returns metadata[key] when it is a JSON number.
func (r Record) MetaNumber(key string) (float64, bool) {
	v, ok := r.field(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// MetaString returns metadata[key] rendered as a string. Absent, null,
// false, zero and empty values are reported as missing.
func (r Record) MetaString(key string) (string, bool) {
	v, ok := r.field(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, s != ""
	case bool:
		if !s {
			return "", false
		}
		return "true", true
	case float64:
		if s == 0 {
			return "", false
		}
		return formatNumber(s), true
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// formatNumber renders f the way the dashboard expects numbers to print:
// plain decimals in [1e-6, 1e21), exponent form outside it ("1e+21", "1e-7").
func formatNumber(f float64) string {
	if a := math.Abs(f); a != 0 && (a < 1e-6 || a >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
