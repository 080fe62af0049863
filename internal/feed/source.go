// Package feed opens the remote activity feed and turns it into rows.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
)

// Source yields a fresh stream over the feed each time it is opened.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// Open starts a streamed read. The caller must close the returned body.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// New picks a Source implementation from the scheme of conf.Source:
// http(s)://, s3://bucket/key, file:// or a bare filesystem path.
func New(ctx context.Context, conf config.FeedConf) (Source, error) {
	loc := strings.TrimSpace(conf.Source)
	if loc == "" {
		return nil, fmt.Errorf("feed: source is required")
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("feed: parse source %q: %w", loc, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPSource(loc, conf), nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("feed: s3 source %q must be s3://bucket/key", loc)
		}
		return NewS3Source(ctx, u.Host, key, conf)
	case "file":
		return NewFileSource(u.Path, conf.Compression), nil
	case "":
		return NewFileSource(loc, conf.Compression), nil
	default:
		return nil, fmt.Errorf("feed: unsupported source scheme %q", u.Scheme)
	}
}
