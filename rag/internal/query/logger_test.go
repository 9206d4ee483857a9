package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ragpulse/ragpulse/pkg/elastic"
)

func TestLogger_RetriesThenSucceeds(t *testing.T) {
	fs := &fakeStore{statuses: []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable}}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	l := newTestLogger(t, srv.URL)
	err := l.Log(context.Background(), Record{
		Timestamp: time.Now().UTC(),
		Query:     "q",
		Response:  "a",
		Status:    "success",
		Source:    "rag_query",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	// Two failures then the third attempt lands; each attempt posted a body.
	if recs := fs.logged(); len(recs) != 3 {
		t.Errorf("write attempts = %d, want 3", len(recs))
	}
}

func TestLogger_GivesUpAfterCeiling(t *testing.T) {
	fs := &fakeStore{statuses: []int{
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
	}}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	l := newTestLogger(t, srv.URL)
	if err := l.Log(context.Background(), Record{Query: "q"}); err == nil {
		t.Fatal("Log should fail once retries are exhausted")
	}
	if recs := fs.logged(); len(recs) != logAttempts {
		t.Errorf("write attempts = %d, want %d", len(recs), logAttempts)
	}
}

func TestLogger_TruncatesResponse(t *testing.T) {
	fs := &fakeStore{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	l := newTestLogger(t, srv.URL)
	long := strings.Repeat("héllo ", 400) // far past the cap, multibyte runes
	if err := l.Log(context.Background(), Record{Query: "q", Response: long}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	recs := fs.logged()
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	got := []rune(recs[0].Response)
	if len(got) != maxResponseRunes {
		t.Errorf("stored response runes = %d, want %d", len(got), maxResponseRunes)
	}
	if !strings.HasPrefix(recs[0].Response, "héllo ") {
		t.Errorf("truncation corrupted the response head: %q", recs[0].Response[:12])
	}
}

func TestLogger_EnsureIndex(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client, err := elastic.New(elastic.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("elastic.New: %v", err)
	}
	l := NewLogger(client, "rag_queries")
	if err := l.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"GET /rag_queries", "PUT /rag_queries"}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("store calls = %v, want %v", calls, want)
	}
}

func TestNewLogger_DefaultRetryPolicy(t *testing.T) {
	client, err := elastic.New(elastic.Config{BaseURL: "http://localhost:9200"})
	if err != nil {
		t.Fatalf("elastic.New: %v", err)
	}
	l := NewLogger(client, "rag_queries")
	if got := l.retrier.Attempts(); got != logAttempts {
		t.Errorf("attempts = %d, want %d", got, logAttempts)
	}
}
