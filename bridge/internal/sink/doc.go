// Package sink carries the push side of the bridge: the sink-bound document
// model, NDJSON bulk encoding, bounded batching, and the writer that submits
// one batch per call to the document store.
//
// The writer performs exactly one push attempt per call; retry policy lives
// in the retry package and is applied by the caller. A batch belongs to one
// polling cycle (or one seed run) and is never carried across cycles.
package sink
