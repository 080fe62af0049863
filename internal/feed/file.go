package feed

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource reads the feed from the local filesystem. Useful for
// development and for replaying a captured feed.
type FileSource struct {
	path        string
	compression string
}

func NewFileSource(path, compression string) *FileSource {
	return &FileSource{path: path, compression: compression}
}

func (s *FileSource) Name() string { return s.path }

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", s.path, err)
	}
	return decompress(f, s.path, "", s.compression), nil
}
