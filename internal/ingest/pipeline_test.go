package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/activityfeed/internal/ingest"
	"github.com/gyaneshwarpardhi/activityfeed/internal/store"
)

const sampleFeed = `user_id,timestamp,action,metadata
1,2024-01-01T00:00:00Z,login,{"page":"home","duration":5}
bad,2024-01-01T00:00:00Z,login,{}
2,2024-01-01T01:00:00Z,logout

3,2024-01-01T02:00:00Z,click,{"page":"x"
`

// funcSource lets each test decide what Open returns.
type funcSource struct {
	name string
	open func(ctx context.Context) (io.ReadCloser, error)
}

func (f *funcSource) Name() string { return f.name }

func (f *funcSource) Open(ctx context.Context) (io.ReadCloser, error) { return f.open(ctx) }

func textSource(text string) *funcSource {
	return &funcSource{name: "mem", open: func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_Run(t *testing.T) {
	st := store.New()
	p := ingest.NewPipeline(textSource(sampleFeed), st, quietLogger())

	rep, err := p.Run(context.Background(), "load-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != ingest.StatusPublished {
		t.Errorf("status: got %s", rep.Status)
	}
	if rep.Rows != 4 || rep.Accepted != 2 || rep.Rejected != 2 || rep.Blank != 1 {
		t.Errorf("counts: rows=%d accepted=%d rejected=%d blank=%d", rep.Rows, rep.Accepted, rep.Rejected, rep.Blank)
	}
	if rep.MetadataDegraded != 1 {
		t.Errorf("metadata degraded: got %d, want 1", rep.MetadataDegraded)
	}

	ds := st.Current()
	if ds.Len() != 2 {
		t.Fatalf("dataset len: got %d, want 2", ds.Len())
	}
	if ds.Version != rep.Version || ds.Version == "" {
		t.Errorf("report version %q should match dataset version %q", rep.Version, ds.Version)
	}
	first := ds.Records[0]
	if first.UserID != 1 || first.Action != "login" {
		t.Errorf("first record: %+v", first)
	}
	wantMeta := map[string]any{"page": "home", "duration": float64(5)}
	if !reflect.DeepEqual(first.Metadata, wantMeta) {
		t.Errorf("first metadata: got %#v", first.Metadata)
	}
	if m, ok := ds.Records[1].Metadata.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("truncated metadata should be empty, got %#v", ds.Records[1].Metadata)
	}
}

func TestPipeline_OpenFailureKeepsDataset(t *testing.T) {
	st := store.New()
	p := ingest.NewPipeline(textSource(sampleFeed), st, quietLogger())
	if _, err := p.Run(context.Background(), "ok"); err != nil {
		t.Fatal(err)
	}
	before := st.Current()

	p.SetSource(&funcSource{name: "down", open: func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("connection refused")
	}})
	rep, err := p.Run(context.Background(), "fail")
	if !errors.Is(err, ingest.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var terr *ingest.TransportError
	if !errors.As(err, &terr) || terr.LoadID != "fail" || terr.Source != "down" {
		t.Errorf("transport error details: %+v", terr)
	}
	if rep.Status != ingest.StatusFailed || rep.Error == "" {
		t.Errorf("report: %+v", rep)
	}
	if st.Current() != before {
		t.Error("failed load must not replace the published dataset")
	}
}

func TestPipeline_MidStreamFailureDiscardsStaging(t *testing.T) {
	st := store.New()
	src := &funcSource{name: "flaky", open: func(context.Context) (io.ReadCloser, error) {
		r := io.MultiReader(strings.NewReader(sampleFeed), errReader{err: io.ErrUnexpectedEOF})
		return io.NopCloser(r), nil
	}}
	p := ingest.NewPipeline(src, st, quietLogger())

	rep, err := p.Run(context.Background(), "flaky")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped ErrUnexpectedEOF, got %v", err)
	}
	if rep.Rows == 0 {
		t.Error("rows before the failure should have been read")
	}
	if !st.Current().Empty() || st.Loaded() {
		t.Error("nothing should be published after a mid-stream failure")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	st := store.New()
	p := ingest.NewPipeline(textSource(sampleFeed), st, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "cancelled")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st.Loaded() {
		t.Error("cancelled load must not publish")
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	st := store.New()
	p := ingest.NewPipeline(textSource(sampleFeed), st, quietLogger())

	if _, err := p.Run(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	first := st.Current()
	if _, err := p.Run(context.Background(), "b"); err != nil {
		t.Fatal(err)
	}
	second := st.Current()

	if first == second {
		t.Fatal("second load should publish a new dataset")
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("reloading the same feed should yield identical records")
	}
	if first.Fingerprint != second.Fingerprint {
		t.Error("fingerprints should match")
	}
	if first.Version == second.Version {
		t.Error("each publish gets its own version")
	}
}

func TestPipeline_ReadersSeeOldDatasetDuringLoad(t *testing.T) {
	st := store.New()
	p := ingest.NewPipeline(textSource(sampleFeed), st, quietLogger())
	if _, err := p.Run(context.Background(), "initial"); err != nil {
		t.Fatal(err)
	}
	old := st.Current()

	reached := make(chan struct{})
	release := make(chan struct{})
	p.SetSource(&funcSource{name: "slow", open: func(context.Context) (io.ReadCloser, error) {
		big := sampleFeed + strings.Repeat("9,2024-02-01T00:00:00Z,view,{}\n", 50)
		return io.NopCloser(io.MultiReader(strings.NewReader(big), &gateReader{reached: reached, release: release})), nil
	}})

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), "slow")
		done <- err
	}()

	<-reached
	if st.Current() != old {
		t.Error("readers must keep seeing the previous dataset while a load is staging")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow load: %v", err)
	}
	if got := st.Current().Len(); got != old.Len()+50 {
		t.Errorf("new dataset len: got %d, want %d", got, old.Len()+50)
	}
}

// gateReader blocks the stream until released, then reports EOF.
type gateReader struct {
	reached chan struct{}
	release chan struct{}
	once    bool
}

func (g *gateReader) Read([]byte) (int, error) {
	if !g.once {
		g.once = true
		close(g.reached)
	}
	<-g.release
	return 0, io.EOF
}
