package sink

import (
	"context"
	"fmt"

	"github.com/ragpulse/ragpulse/pkg/elastic"
)

// Writer submits batches to one index of the document store. Each WriteBatch
// call is a single push attempt; the caller owns retry policy. Writer is
// safe for concurrent use.
type Writer struct {
	client *elastic.Client
	index  string
}

// NewWriter returns a Writer targeting index through client.
func NewWriter(client *elastic.Client, index string) *Writer {
	return &Writer{client: client, index: index}
}

// Index returns the target index name.
func (w *Writer) Index() string { return w.index }

// WriteBatch encodes docs as a bulk payload and pushes it once. An empty doc
// list is a no-op. An encoding failure is returned distinct from a push
// failure so callers can skip retries for payloads that can never serialize.
func (w *Writer) WriteBatch(ctx context.Context, docs []any) error {
	payload, err := EncodeBulk(w.index, docs)
	if err != nil {
		return &EncodeError{err: err}
	}
	if payload == nil {
		return nil
	}
	return w.client.Bulk(ctx, payload)
}

// EncodeError marks a batch that failed to serialize. Retrying it is
// pointless; the batch must be dropped.
type EncodeError struct {
	err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode batch: %v", e.err) }
func (e *EncodeError) Unwrap() error { return e.err }
