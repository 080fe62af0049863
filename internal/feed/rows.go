package feed

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

// RowReader splits a delimited text stream into RawRows one line at a time.
//
// Quote characters carry no meaning: a `"` is ordinary data, so JSON with
// embedded quotes and commas simply fans out into several fields. Rows may
// have any width and every field is trimmed of surrounding whitespace.
type RowReader struct {
	r          *bufio.Reader
	delim      string
	skipHeader bool
	line       int
	blank      int
	done       bool
}

// RowOption configures a RowReader.
type RowOption func(*RowReader)

// WithDelimiter overrides the default "," field delimiter.
func WithDelimiter(d string) RowOption {
	return func(rr *RowReader) { rr.delim = d }
}

// WithHeader controls whether the first line is discarded (default true).
func WithHeader(skip bool) RowOption {
	return func(rr *RowReader) { rr.skipHeader = skip }
}

// NewRowReader wraps r. The reader is consumed lazily and cannot be rewound.
func NewRowReader(r io.Reader, opts ...RowOption) *RowReader {
	rr := &RowReader{
		r:          bufio.NewReaderSize(r, 64*1024),
		delim:      ",",
		skipHeader: true,
	}
	for _, o := range opts {
		o(rr)
	}
	return rr
}

// Next returns the next non-blank row. It returns io.EOF once the stream is
// exhausted; any other error comes from the underlying reader.
func (rr *RowReader) Next() (activity.RawRow, error) {
	for {
		if rr.done {
			return nil, io.EOF
		}
		text, err := rr.r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			rr.done = true
			if text == "" {
				return nil, io.EOF
			}
		}
		rr.line++

		text = strings.TrimRight(text, "\r\n")
		if rr.line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
			if rr.skipHeader {
				continue
			}
		}
		if strings.TrimSpace(text) == "" {
			rr.blank++
			continue
		}
		return splitFields(text, rr.delim), nil
	}
}

// Line is the 1-based line number of the row last returned by Next.
func (rr *RowReader) Line() int { return rr.line }

// Blank is the number of empty lines skipped so far.
func (rr *RowReader) Blank() int { return rr.blank }

func splitFields(text, delim string) activity.RawRow {
	parts := strings.Split(text, delim)
	row := make(activity.RawRow, len(parts))
	for i, p := range parts {
		row[i] = strings.TrimSpace(p)
	}
	return row
}
