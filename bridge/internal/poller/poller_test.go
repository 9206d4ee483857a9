package poller

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ragpulse/ragpulse/bridge/internal/sink"
	"github.com/ragpulse/ragpulse/bridge/internal/source"
	"github.com/ragpulse/ragpulse/bridge/internal/status"
	"github.com/ragpulse/ragpulse/pkg/elastic"
	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/pkg/retry"
)

// --- test doubles -----------------------------------------------------------

// stubSource is a scriptable Source.
type stubSource struct {
	id      string
	samples map[string]float64
	skipped int
	err     error
	polls   atomic.Int32
}

func (s *stubSource) ID() string { return s.id }

func (s *stubSource) Poll(ctx context.Context) (*source.Result, error) {
	s.polls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &source.Result{
		SourceID:     s.id,
		PolledAt:     time.Now().UTC(),
		Samples:      s.samples,
		SkippedLines: s.skipped,
	}, nil
}

// fakeSink is a scriptable bulk endpoint. Each request consumes the next
// scripted status; once the script is exhausted every request gets a 200.
type fakeSink struct {
	mu       sync.Mutex
	statuses []int
	bodies   []string
}

func (f *fakeSink) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(body))
		code := http.StatusOK
		if len(f.statuses) > 0 {
			code = f.statuses[0]
			f.statuses = f.statuses[1:]
		}
		f.mu.Unlock()
		w.WriteHeader(code)
	}
}

func (f *fakeSink) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

// --- helpers ----------------------------------------------------------------

func newTestPoller(t *testing.T, sinkURL string, maxBatch int, srcs ...source.Source) (*Poller, *metrics.Registry, *status.Store) {
	t.Helper()

	client, err := elastic.New(elastic.Config{BaseURL: sinkURL})
	if err != nil {
		t.Fatalf("elastic.New: %v", err)
	}

	ids := make([]string, 0, len(srcs))
	for _, s := range srcs {
		ids = append(ids, s.ID())
	}
	reg := metrics.NewRegistry()
	st := status.New(ids, time.Minute)

	p := New(reg, Options{
		Sources:       srcs,
		Store:         st,
		Writer:        sink.NewWriter(client, "rag_metrics"),
		Retrier:       retry.New(3, time.Millisecond),
		Interval:      10 * time.Millisecond,
		FetchTimeout:  time.Second,
		MaxBatchDocs:  maxBatch,
		MaxConcurrent: 4,
	})
	return p, reg, st
}

// bulkLines splits a bulk payload into its NDJSON lines, failing the test if
// the trailing newline is missing.
func bulkLines(t *testing.T, body string) []string {
	t.Helper()
	if !strings.HasSuffix(body, "\n") {
		t.Fatalf("bulk payload missing trailing newline: %q", body)
	}
	return strings.Split(strings.TrimSuffix(body, "\n"), "\n")
}

// --- tick -------------------------------------------------------------------

func TestTick_PushesAllSourcesInOrder(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	alpha := &stubSource{id: "alpha", samples: map[string]float64{"rag_queries_total": 42}, skipped: 3}
	beta := &stubSource{id: "beta", samples: map[string]float64{"rag_index_size": 7}}
	p, reg, st := newTestPoller(t, srv.URL, 500, alpha, beta)

	pushedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return pushedAt }

	p.tick(context.Background())

	reqs := fs.requests()
	if len(reqs) != 1 {
		t.Fatalf("bulk requests: got %d, want 1", len(reqs))
	}
	lines := bulkLines(t, reqs[0])
	if len(lines) != 4 {
		t.Fatalf("payload lines: got %d, want 4", len(lines))
	}
	if !strings.Contains(lines[1], `"service":"alpha"`) {
		t.Errorf("first document is not alpha's: %s", lines[1])
	}
	if !strings.Contains(lines[3], `"service":"beta"`) {
		t.Errorf("second document is not beta's: %s", lines[3])
	}

	if got := reg.Value("bridge_poll_cycles_total"); got != 1 {
		t.Errorf("poll cycles: got %v, want 1", got)
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 2 {
		t.Errorf("docs pushed: got %v, want 2", got)
	}
	if got := reg.Value("bridge_parse_skipped_lines_total"); got != 3 {
		t.Errorf("skipped lines: got %v, want 3", got)
	}
	// Both sources carry the same push timestamp; the vec sums across them.
	if got := reg.Value("bridge_last_push_timestamp_seconds"); got != 2*float64(pushedAt.Unix()) {
		t.Errorf("last push: got %v, want %v", got, 2*float64(pushedAt.Unix()))
	}

	e, _ := st.Get("alpha")
	if got := st.State(e); got != status.StateOK {
		t.Errorf("alpha state: got %q, want ok", got)
	}
	if e.SkippedLastPoll != 3 {
		t.Errorf("alpha SkippedLastPoll: got %d, want 3", e.SkippedLastPoll)
	}
	if e.DocsPushed != 1 {
		t.Errorf("alpha DocsPushed: got %d, want 1", e.DocsPushed)
	}
}

func TestTick_SourceFailureIsolation(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	bad := &stubSource{id: "bad", err: errors.New("connection refused")}
	good := &stubSource{id: "good", samples: map[string]float64{"up": 1}}
	p, reg, st := newTestPoller(t, srv.URL, 500, bad, good)

	p.tick(context.Background())

	reqs := fs.requests()
	if len(reqs) != 1 {
		t.Fatalf("bulk requests: got %d, want 1", len(reqs))
	}
	lines := bulkLines(t, reqs[0])
	if len(lines) != 2 {
		t.Fatalf("payload lines: got %d, want 2 (good source only)", len(lines))
	}
	if !strings.Contains(lines[1], `"service":"good"`) {
		t.Errorf("document is not good's: %s", lines[1])
	}

	if got := reg.Value("bridge_fetch_failures_total"); got != 1 {
		t.Errorf("fetch failures: got %v, want 1", got)
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 1 {
		t.Errorf("docs pushed: got %v, want 1", got)
	}

	e, _ := st.Get("bad")
	if e.ConsecutiveFailures != 1 {
		t.Errorf("bad ConsecutiveFailures: got %d, want 1", e.ConsecutiveFailures)
	}
	if e.LastError == "" {
		t.Error("bad LastError: empty")
	}
}

func TestTick_RetryThenSuccess(t *testing.T) {
	fs := &fakeSink{statuses: []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable}}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	src := &stubSource{id: "node", samples: map[string]float64{"up": 1}}
	p, reg, st := newTestPoller(t, srv.URL, 500, src)

	p.tick(context.Background())

	reqs := fs.requests()
	if len(reqs) != 3 {
		t.Fatalf("push attempts: got %d, want 3", len(reqs))
	}
	if reqs[0] != reqs[2] {
		t.Error("retried payload differs from the original")
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 1 {
		t.Errorf("docs pushed: got %v, want 1", got)
	}
	if got := reg.Value("bridge_dropped_batches_total"); got != 0 {
		t.Errorf("dropped batches: got %v, want 0", got)
	}

	e, _ := st.Get("node")
	if got := st.State(e); got != status.StateOK {
		t.Errorf("state: got %q, want ok", got)
	}
}

func TestTick_ExhaustionDropsBatch(t *testing.T) {
	fs := &fakeSink{statuses: []int{
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
	}}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	src := &stubSource{id: "node", samples: map[string]float64{"up": 1}}
	p, reg, st := newTestPoller(t, srv.URL, 500, src)

	p.tick(context.Background())

	if reqs := fs.requests(); len(reqs) != 3 {
		t.Fatalf("push attempts: got %d, want 3", len(reqs))
	}
	if got := reg.Value("bridge_dropped_batches_total"); got != 1 {
		t.Errorf("dropped batches: got %v, want 1", got)
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 0 {
		t.Errorf("docs pushed: got %v, want 0", got)
	}
	e, _ := st.Get("node")
	if e.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures: got %d, want 1", e.ConsecutiveFailures)
	}

	// The next cycle starts from live data only; the dropped batch is gone.
	p.tick(context.Background())

	reqs := fs.requests()
	if len(reqs) != 4 {
		t.Fatalf("push attempts after second cycle: got %d, want 4", len(reqs))
	}
	if lines := bulkLines(t, reqs[3]); len(lines) != 2 {
		t.Errorf("second cycle payload lines: got %d, want 2", len(lines))
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 1 {
		t.Errorf("docs pushed after recovery: got %v, want 1", got)
	}
}

func TestTick_SplitsBatchesAtBound(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	srcs := make([]source.Source, 5)
	for i := range srcs {
		srcs[i] = &stubSource{
			id:      "src-" + string(rune('0'+i)),
			samples: map[string]float64{"up": 1},
		}
	}
	p, reg, _ := newTestPoller(t, srv.URL, 2, srcs...)

	p.tick(context.Background())

	reqs := fs.requests()
	if len(reqs) != 3 {
		t.Fatalf("bulk requests: got %d, want 3", len(reqs))
	}
	wantLines := []int{4, 4, 2}
	for i, req := range reqs {
		if lines := bulkLines(t, req); len(lines) != wantLines[i] {
			t.Errorf("request %d: got %d lines, want %d", i, len(lines), wantLines[i])
		}
	}
	if !strings.Contains(reqs[0], `"service":"src-0"`) || !strings.Contains(reqs[2], `"service":"src-4"`) {
		t.Error("batches are not in configuration order")
	}
	if got := reg.Value("bridge_docs_pushed_total"); got != 5 {
		t.Errorf("docs pushed: got %v, want 5", got)
	}
}

func TestTick_UnserializableBatchDroppedWithoutRetry(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	src := &stubSource{id: "node", samples: map[string]float64{"broken": math.NaN()}}
	p, reg, st := newTestPoller(t, srv.URL, 500, src)

	p.tick(context.Background())

	if reqs := fs.requests(); len(reqs) != 0 {
		t.Fatalf("push attempts: got %d, want 0", len(reqs))
	}
	if got := reg.Value("bridge_dropped_batches_total"); got != 1 {
		t.Errorf("dropped batches: got %v, want 1", got)
	}
	e, _ := st.Get("node")
	if e.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures: got %d, want 1", e.ConsecutiveFailures)
	}
	if !strings.Contains(e.LastError, "encode batch") {
		t.Errorf("LastError: got %q, want an encode error", e.LastError)
	}
}

func TestTick_BoundsConcurrentPolls(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	var inFlight, maxSeen atomic.Int32
	srcs := make([]source.Source, 3)
	for i := range srcs {
		srcs[i] = &gaugedSource{
			id:       "src-" + string(rune('0'+i)),
			inFlight: &inFlight,
			maxSeen:  &maxSeen,
		}
	}

	client, err := elastic.New(elastic.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("elastic.New: %v", err)
	}
	ids := []string{"src-0", "src-1", "src-2"}
	p := New(metrics.NewRegistry(), Options{
		Sources:       srcs,
		Store:         status.New(ids, time.Minute),
		Writer:        sink.NewWriter(client, "rag_metrics"),
		Retrier:       retry.New(1, 0),
		Interval:      time.Hour,
		FetchTimeout:  time.Second,
		MaxBatchDocs:  500,
		MaxConcurrent: 1,
	})

	p.tick(context.Background())

	if got := maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent polls: got %d, want 1", got)
	}
}

// gaugedSource records how many polls overlap.
type gaugedSource struct {
	id       string
	inFlight *atomic.Int32
	maxSeen  *atomic.Int32
}

func (s *gaugedSource) ID() string { return s.id }

func (s *gaugedSource) Poll(ctx context.Context) (*source.Result, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if cur <= m || s.maxSeen.CompareAndSwap(m, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return &source.Result{
		SourceID: s.id,
		PolledAt: time.Now().UTC(),
		Samples:  map[string]float64{"up": 1},
	}, nil
}

// --- Run --------------------------------------------------------------------

func TestRun_TicksUntilCancelled(t *testing.T) {
	fs := &fakeSink{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	src := &stubSource{id: "node", samples: map[string]float64{"up": 1}}
	p, _, _ := newTestPoller(t, srv.URL, 500, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// The first cycle fires immediately, later ones on the ticker.
	deadline := time.Now().Add(2 * time.Second)
	for src.polls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if n := src.polls.Load(); n < 3 {
		t.Errorf("polls before cancel: got %d, want at least 3", n)
	}
}
