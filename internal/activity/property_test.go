package activity_test

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

func TestProperty_ParseRow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Well-formed rows round-trip their positional fields and the metadata
	// that was comma-split across the tail.
	properties.Property("well-formed rows keep positional fields and rebuilt metadata", prop.ForAll(
		func(userID int64, sec int64, action string, meta map[string]string) bool {
			raw, err := json.Marshal(meta)
			if err != nil {
				return false
			}
			ts := time.Unix(sec, 0).UTC()
			row := activity.RawRow{
				strconv.FormatInt(userID, 10),
				ts.Format(time.RFC3339),
				action,
			}
			row = append(row, strings.Split(string(raw), ",")...)

			rec, err := activity.ParseRow(row)
			if err != nil {
				return false
			}
			var want any
			if err := json.Unmarshal(raw, &want); err != nil {
				return false
			}
			return rec.UserID == userID &&
				rec.Timestamp == ts.UnixMilli() &&
				rec.Action == action &&
				reflect.DeepEqual(rec.Metadata, want)
		},
		gen.Int64Range(-1_000_000, 1_000_000_000),
		gen.Int64Range(946684800, 2051222400), // 2000-01-01 .. 2035-01-01
		gen.Identifier(),
		gen.MapOf(gen.AlphaString(), gen.AlphaString()),
	))

	properties.Property("rows with fewer than four fields are rejected", prop.ForAll(
		func(n int) bool {
			row := make(activity.RawRow, n)
			for i := range row {
				row[i] = "1"
			}
			_, err := activity.ParseRow(row)
			return err != nil
		},
		gen.IntRange(0, activity.MinFields-1),
	))

	properties.Property("unbalanced metadata degrades to an empty object", prop.ForAll(
		func(frags []string) bool {
			frags = append([]string{`{"k":`}, frags...)
			m, ok := activity.ReconstructMetadata(frags).(map[string]any)
			return ok && len(m) == 0
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
