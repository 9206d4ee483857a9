package query

import (
	"context"
	"time"

	"github.com/ragpulse/ragpulse/pkg/elastic"
	"github.com/ragpulse/ragpulse/pkg/retry"
)

const (
	// recordSource tags every audit record with the service that wrote it.
	recordSource = "rag_query"

	// maxResponseRunes caps the stored response so one chatty answer cannot
	// blow up document sizes.
	maxResponseRunes = 1000

	logAttempts    = 3
	logBackoffBase = 500 * time.Millisecond
)

// QueriesMapping is the index mapping for query audit documents.
const QueriesMapping = `{
  "mappings": {
    "properties": {
      "@timestamp":      {"type": "date"},
      "query":           {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "response":        {"type": "text"},
      "retrieval_time":  {"type": "float"},
      "generation_time": {"type": "float"},
      "status":          {"type": "keyword"},
      "source":          {"type": "keyword"}
    }
  }
}`

// Record is one query audit document.
type Record struct {
	Timestamp      time.Time `json:"@timestamp"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	RetrievalTime  float64   `json:"retrieval_time"`
	GenerationTime float64   `json:"generation_time"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
}

// Logger writes query audit records to one index of the document store
// through the single-document protocol, retrying transient failures with the
// same bounded linear backoff the bridge uses.
type Logger struct {
	client  *elastic.Client
	index   string
	retrier *retry.Controller
}

// NewLogger returns a Logger targeting index through client.
func NewLogger(client *elastic.Client, index string) *Logger {
	return &Logger{
		client:  client,
		index:   index,
		retrier: retry.New(logAttempts, logBackoffBase),
	}
}

// EnsureIndex creates the audit index with its mapping unless it exists.
func (l *Logger) EnsureIndex(ctx context.Context) error {
	return l.client.EnsureIndex(ctx, l.index, QueriesMapping)
}

// Log writes one record, truncating the response first. The last store
// error is returned once retries are exhausted.
func (l *Logger) Log(ctx context.Context, rec Record) error {
	rec.Response = truncate(rec.Response, maxResponseRunes)
	return l.retrier.Do(ctx, func(ctx context.Context) error {
		return l.client.IndexDoc(ctx, l.index, rec)
	})
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
