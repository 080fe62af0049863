package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
)

// HTTPSource streams the feed from an HTTP(S) URL. The response body is
// handed to the caller unbuffered; no overall client timeout is set so a
// large feed is never cut off mid-transfer.
type HTTPSource struct {
	url         string
	compression string
	client      *http.Client
}

// NewHTTPSource creates an HTTPSource. conf.HeaderTimeoutMs bounds the wait
// for response headers only.
func NewHTTPSource(url string, conf config.FeedConf) *HTTPSource {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if conf.HeaderTimeoutMs > 0 {
		tr.ResponseHeaderTimeout = time.Duration(conf.HeaderTimeoutMs) * time.Millisecond
	}
	return &HTTPSource{
		url:         url,
		compression: conf.Compression,
		client:      &http.Client{Transport: tr},
	}
}

func (s *HTTPSource) Name() string { return s.url }

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: GET %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("feed: GET %s: unexpected status %s", s.url, resp.Status)
	}
	return decompress(resp.Body, req.URL.Path, resp.Header.Get("Content-Encoding"), s.compression), nil
}
