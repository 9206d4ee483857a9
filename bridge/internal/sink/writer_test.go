package sink_test

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ragpulse/ragpulse/bridge/internal/sink"
	"github.com/ragpulse/ragpulse/pkg/elastic"
)

func newWriter(t *testing.T, baseURL string) *sink.Writer {
	t.Helper()
	client, err := elastic.New(elastic.Config{BaseURL: baseURL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("elastic.New: %v", err)
	}
	return sink.NewWriter(client, "rag_metrics")
}

func TestWriteBatch(t *testing.T) {
	var gotPath, gotCT, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	docs := []any{sink.NewDocument("rag-query", map[string]float64{"rag_queries_total": 42})}
	if err := newWriter(t, srv.URL).WriteBatch(context.Background(), docs); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	if gotPath != "/_bulk" {
		t.Errorf("path: got %q, want /_bulk", gotPath)
	}
	if gotCT != "application/x-ndjson" {
		t.Errorf("Content-Type: got %q, want application/x-ndjson", gotCT)
	}
	if !strings.HasPrefix(gotBody, `{"index":{"_index":"rag_metrics"}}`+"\n") {
		t.Errorf("body should start with the action line, got %q", gotBody)
	}
	if !strings.HasSuffix(gotBody, "\n") {
		t.Error("body must end with a trailing newline")
	}
}

func TestWriteBatch_EmptySkipsPush(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newWriter(t, srv.URL).WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if calls != 0 {
		t.Errorf("push calls: got %d, want 0 for an empty batch", calls)
	}
}

func TestWriteBatch_SinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newWriter(t, srv.URL).WriteBatch(context.Background(),
		[]any{sink.NewDocument("s", map[string]float64{"m": 1})})
	if err == nil {
		t.Fatal("expected error on 503, got nil")
	}
	var encErr *sink.EncodeError
	if errors.As(err, &encErr) {
		t.Error("a push failure must not be typed as an encode failure")
	}
}

func TestWriteBatch_EncodeErrorIsTyped(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer srv.Close()

	err := newWriter(t, srv.URL).WriteBatch(context.Background(),
		[]any{sink.NewDocument("s", map[string]float64{"m": math.Inf(1)})})
	if err == nil {
		t.Fatal("expected encode error, got nil")
	}
	var encErr *sink.EncodeError
	if !errors.As(err, &encErr) {
		t.Errorf("error type: got %T, want *sink.EncodeError", err)
	}
	if calls != 0 {
		t.Errorf("push calls: got %d, want 0 when encoding fails", calls)
	}
}
