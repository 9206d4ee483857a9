package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ragpulse/ragpulse/bridge/internal/sink"
	"github.com/ragpulse/ragpulse/bridge/internal/source"
	"github.com/ragpulse/ragpulse/bridge/internal/status"
	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/pkg/retry"
)

// Options bundles the collaborators and tuning for a Poller.
type Options struct {
	Sources []source.Source // polled in this order every cycle
	Store   *status.Store
	Writer  *sink.Writer
	Retrier *retry.Controller

	Interval      time.Duration
	FetchTimeout  time.Duration
	MaxBatchDocs  int
	MaxConcurrent int
}

// Poller runs the fetch/parse/push cycle for all configured sources.
type Poller struct {
	sources []source.Source
	store   *status.Store
	writer  *sink.Writer
	retrier *retry.Controller

	interval     time.Duration
	fetchTimeout time.Duration
	maxBatch     int
	maxInFlight  int

	cycles         prometheus.Counter
	fetchFailures  *prometheus.CounterVec
	skippedLines   *prometheus.CounterVec
	docsPushed     prometheus.Counter
	droppedBatches prometheus.Counter
	lastPush       *prometheus.GaugeVec

	now func() time.Time // injectable for deterministic tests
}

// New creates a Poller and registers its instruments on reg.
func New(reg *metrics.Registry, opts Options) *Poller {
	if opts.MaxBatchDocs < 1 {
		opts.MaxBatchDocs = 1
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Poller{
		sources:      opts.Sources,
		store:        opts.Store,
		writer:       opts.Writer,
		retrier:      opts.Retrier,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
		maxBatch:     opts.MaxBatchDocs,
		maxInFlight:  opts.MaxConcurrent,

		cycles: reg.Counter("bridge_poll_cycles_total",
			"Completed polling cycles."),
		fetchFailures: reg.CounterVec("bridge_fetch_failures_total",
			"Polls that failed, per source.", "source"),
		skippedLines: reg.CounterVec("bridge_parse_skipped_lines_total",
			"Malformed exposition lines skipped, per source.", "source"),
		docsPushed: reg.Counter("bridge_docs_pushed_total",
			"Documents successfully pushed to the sink."),
		droppedBatches: reg.Counter("bridge_dropped_batches_total",
			"Batches dropped after exhausting push retries."),
		lastPush: reg.GaugeVec("bridge_last_push_timestamp_seconds",
			"Unix time of the last successful push, per source.", "source"),

		now: time.Now,
	}
}

// Run executes the first polling cycle immediately, then one per interval,
// until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("poller: starting", "sources", len(p.sources), "interval", p.interval)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("poller: stopped")
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

// tick runs one complete cycle: concurrent fetch of every source, then push
// of the results in configuration order. The cycle holds no state once it
// returns; a later cycle starts from live data only.
func (p *Poller) tick(ctx context.Context) {
	p.cycles.Inc()

	results := make([]*source.Result, len(p.sources))
	var g errgroup.Group
	g.SetLimit(p.maxInFlight)
	for i, src := range p.sources {
		i, src := i, src
		g.Go(func() error {
			pollCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
			defer cancel()

			res, err := src.Poll(pollCtx)
			if err != nil {
				// One bad source never blocks the rest of the cycle.
				slog.Warn("poll failed", "source", src.ID(), "err", err)
				p.fetchFailures.WithLabelValues(src.ID()).Inc()
				p.store.RecordFailure(src.ID(), err)
				return nil
			}

			if res.SkippedLines > 0 {
				p.skippedLines.WithLabelValues(src.ID()).Add(float64(res.SkippedLines))
			}
			slog.Debug("poll completed",
				"source", src.ID(), "samples", len(res.Samples), "skipped", res.SkippedLines)
			results[i] = res
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers report per-source errors themselves

	p.push(ctx, results)
}

// cycleDoc pairs a sink document with the poll result it came from, so batch
// outcomes can be attributed back to sources. The embedded Document is what
// serializes; the result is carried alongside.
type cycleDoc struct {
	sink.Document
	res *source.Result
}

// push converts the cycle's results into documents and writes them out in
// bounded batches. Batch failures are absorbed here; push never returns.
func (p *Poller) push(ctx context.Context, results []*source.Result) {
	batch := sink.NewBatcher(p.maxBatch, p.flushBatch)
	for _, res := range results {
		if res == nil {
			continue
		}
		doc := cycleDoc{Document: sink.NewDocument(res.SourceID, res.Samples), res: res}
		batch.Add(ctx, doc) //nolint:errcheck // flushBatch absorbs errors
	}
	batch.Flush(ctx) //nolint:errcheck
}

// flushBatch pushes one batch through the retry controller and records the
// outcome for every source represented in it. A payload that cannot
// serialize is dropped without retrying. flushBatch always returns nil so
// one dropped batch never stops the remainder of the cycle.
func (p *Poller) flushBatch(ctx context.Context, docs []any) error {
	var encErr *sink.EncodeError
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		err := p.writer.WriteBatch(ctx, docs)
		if errors.As(err, &encErr) {
			return nil // not retryable, surfaced below
		}
		return err
	})
	if err == nil && encErr != nil {
		err = encErr
	}

	if err != nil {
		p.droppedBatches.Inc()
		slog.Error("push failed, dropping batch", "docs", len(docs), "err", err)
		for _, d := range docs {
			cd := d.(cycleDoc)
			p.store.RecordFailure(cd.res.SourceID, err)
		}
		return nil
	}

	p.docsPushed.Add(float64(len(docs)))
	pushedAt := float64(p.now().Unix())
	for _, d := range docs {
		cd := d.(cycleDoc)
		p.store.RecordSuccess(cd.res.SourceID, len(cd.res.Samples), cd.res.SkippedLines, 1)
		p.lastPush.WithLabelValues(cd.res.SourceID).Set(pushedAt)
	}
	slog.Debug("batch pushed", "docs", len(docs), "index", p.writer.Index())
	return nil
}
