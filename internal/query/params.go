// Package query answers read-only aggregation questions over a dataset.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

// ErrValidation matches every ValidationError.
var ErrValidation = errors.New("invalid query")

// ValidationError reports a missing or malformed query parameter.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Window is a closed interval of epoch milliseconds.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether ts lies in [Start, End].
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// SummaryParams are the validated inputs of a summary query.
type SummaryParams struct {
	UserID int64
	Window Window
}

func missing(names ...string) error {
	return &ValidationError{
		Fields:  names,
		Message: "missing parameters: " + strings.Join(names, ", "),
	}
}

// ParseWindow validates a pair of date strings. Both must be present and
// parse as dates; ISO 8601 is recommended.
func ParseWindow(start, end string) (Window, error) {
	var absent []string
	if strings.TrimSpace(start) == "" {
		absent = append(absent, "start_time")
	}
	if strings.TrimSpace(end) == "" {
		absent = append(absent, "end_time")
	}
	if len(absent) > 0 {
		return Window{}, missing(absent...)
	}

	s, err := activity.ParseTimestamp(start)
	if err != nil {
		return Window{}, &ValidationError{Fields: []string{"start_time"}, Message: fmt.Sprintf("invalid start_time %q: use ISO 8601", start)}
	}
	e, err := activity.ParseTimestamp(end)
	if err != nil {
		return Window{}, &ValidationError{Fields: []string{"end_time"}, Message: fmt.Sprintf("invalid end_time %q: use ISO 8601", end)}
	}
	return Window{Start: s, End: e}, nil
}

// ParseSummary validates the inputs of a summary query.
func ParseSummary(userID, start, end string) (SummaryParams, error) {
	if strings.TrimSpace(userID) == "" {
		absent := []string{"user_id"}
		if strings.TrimSpace(start) == "" {
			absent = append(absent, "start_time")
		}
		if strings.TrimSpace(end) == "" {
			absent = append(absent, "end_time")
		}
		return SummaryParams{}, missing(absent...)
	}
	w, err := ParseWindow(start, end)
	if err != nil {
		return SummaryParams{}, err
	}
	id, err := activity.ParseUserID(userID)
	if err != nil {
		return SummaryParams{}, &ValidationError{Fields: []string{"user_id"}, Message: fmt.Sprintf("invalid user_id %q: must be an integer", userID)}
	}
	return SummaryParams{UserID: id, Window: w}, nil
}
