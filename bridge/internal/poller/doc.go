// Package poller drives the bridge's polling loop.
//
// On every tick the Poller polls all configured sources concurrently (with a
// bounded worker limit), converts each successful result into a sink
// document, and pushes the documents in configuration order through bounded
// batches. A failed source is logged and skipped; it never blocks the rest
// of the cycle. A batch that cannot be pushed after the configured retries
// is dropped, and the next cycle starts from live data again.
//
// Run(ctx) executes the first cycle immediately, then one per interval,
// until ctx is cancelled.
package poller
