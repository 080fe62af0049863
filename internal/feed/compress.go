package feed

import (
	"io"
	"strings"

	"github.com/golang/snappy"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
)

const snappyEncoding = "x-snappy-framed"

type wrappedBody struct {
	io.Reader
	closer io.Closer
}

func (w *wrappedBody) Close() error { return w.closer.Close() }

// decompress wraps body in a snappy framed reader when the compression mode
// asks for it, or in auto mode when the name or content encoding says so.
func decompress(body io.ReadCloser, name, contentEncoding, mode string) io.ReadCloser {
	if !useSnappy(name, contentEncoding, mode) {
		return body
	}
	return &wrappedBody{Reader: snappy.NewReader(body), closer: body}
}

func useSnappy(name, contentEncoding, mode string) bool {
	switch mode {
	case config.CompressionSnappy:
		return true
	case config.CompressionNone:
		return false
	}
	return strings.EqualFold(contentEncoding, snappyEncoding) ||
		strings.HasSuffix(strings.ToLower(name), ".sz")
}
