package query

import (
	"math"
	"sort"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

// DefaultTrendLimit is how many action pairs the trends query returns.
const DefaultTrendLimit = 3

// Summary is one user's activity inside a window.
type Summary struct {
	UserID             int64   `json:"user_id"`
	TotalActions       int     `json:"total_actions"`
	MostFrequentAction *string `json:"most_frequent_action"`
	AvgDuration        float64 `json:"avg_duration"`
	MostFrequentPage   *string `json:"most_frequent_page"`
}

// Trend is a (user, action) pair and how often it occurred.
type Trend struct {
	UserID int64  `json:"user_id"`
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Summarize scans records once for p.UserID inside p.Window.
func Summarize(records []activity.Record, p SummaryParams) Summary {
	var (
		actions       = newTally()
		pages         = newTally()
		total         int
		durationSum   float64
		durationCount int
	)
	for i := range records {
		r := &records[i]
		if r.UserID != p.UserID || !p.Window.Contains(r.Timestamp) {
			continue
		}
		total++
		actions.add(r.Action)
		if page, ok := r.MetaString("page"); ok {
			pages.add(page)
		}
		if d, ok := r.MetaNumber("duration"); ok {
			durationSum += d
			durationCount++
		}
	}

	s := Summary{
		UserID:             p.UserID,
		TotalActions:       total,
		MostFrequentAction: actions.top(),
		MostFrequentPage:   pages.top(),
	}
	if durationCount > 0 {
		s.AvgDuration = math.Round(durationSum/float64(durationCount)*100) / 100
	}
	return s
}

type pairKey struct {
	userID int64
	action string
}

// Trends tallies (user, action) pairs inside w and returns the limit most
// frequent, highest first. Equal counts keep the order in which the pairs
// were first seen.
func Trends(records []activity.Record, w Window, limit int) []Trend {
	index := make(map[pairKey]int)
	out := []Trend{}
	for i := range records {
		r := &records[i]
		if !w.Contains(r.Timestamp) {
			continue
		}
		k := pairKey{userID: r.UserID, action: r.Action}
		if j, ok := index[k]; ok {
			out[j].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Trend{UserID: r.UserID, Action: r.Action, Count: 1})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// tally finds the most frequent value in a single pass. The winner is the
// first value to reach the highest count; later values that only tie it do
// not displace it. Empty values are ignored.
type tally struct {
	counts map[string]int
	best   string
	max    int
}

func newTally() *tally { return &tally{counts: make(map[string]int)} }

func (t *tally) add(v string) {
	if v == "" {
		return
	}
	t.counts[v]++
	if c := t.counts[v]; c > t.max {
		t.max = c
		t.best = v
	}
}

func (t *tally) top() *string {
	if t.max == 0 {
		return nil
	}
	best := t.best
	return &best
}
