package sink

import "context"

// Batcher accumulates documents and flushes them in bounded groups through
// the provided flush function. A Batcher belongs to a single polling cycle
// or load run; it is not safe for concurrent use and holds nothing once
// Flush returns.
type Batcher struct {
	limit int
	docs  []any
	flush func(ctx context.Context, docs []any) error
}

// NewBatcher returns a Batcher that flushes whenever limit documents have
// accumulated. The final partial group is pushed by Flush.
func NewBatcher(limit int, flush func(ctx context.Context, docs []any) error) *Batcher {
	return &Batcher{
		limit: limit,
		docs:  make([]any, 0, limit),
		flush: flush,
	}
}

// Add appends doc, flushing inline when the bound is reached. The flush
// error is returned as-is; the batch that failed is discarded either way.
func (b *Batcher) Add(ctx context.Context, doc any) error {
	b.docs = append(b.docs, doc)
	if len(b.docs) < b.limit {
		return nil
	}
	return b.Flush(ctx)
}

// Flush pushes the accumulated documents, if any, and empties the batch.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.docs) == 0 {
		return nil
	}
	docs := b.docs
	b.docs = make([]any, 0, b.limit)
	return b.flush(ctx, docs)
}

// Len reports the number of documents currently held.
func (b *Batcher) Len() int { return len(b.docs) }
