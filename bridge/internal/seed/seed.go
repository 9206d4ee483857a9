package seed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragpulse/ragpulse/bridge/internal/sink"
)

// DefaultMetrics are the series the rag services export; history is
// synthesized for each of them.
var DefaultMetrics = []string{
	"rag_ingested_docs_total",
	"rag_index_size",
	"rag_queries_total",
	"rag_retrieval_time_seconds",
	"rag_generation_time_seconds",
}

// Options tunes one seeding run.
type Options struct {
	// Lookback is how far back the first point lands.
	Lookback time.Duration

	// Step is the spacing between consecutive points of one series.
	Step time.Duration

	// Metrics lists the series to synthesize. Empty means DefaultMetrics.
	Metrics []string

	// Job and Instance fill the labels of every point.
	Job      string
	Instance string

	// Seed feeds the value generator. Zero derives a seed from the clock,
	// so runs differ; any other value makes the run reproducible.
	Seed int64
}

// Generate synthesizes one point document per metric per step across the
// lookback window, oldest first. The last point lands one step before now.
// A non-positive step yields no documents.
func Generate(opts Options) []sink.PointDocument {
	if opts.Step <= 0 {
		return nil
	}
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}
	seedVal := opts.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	steps := int(opts.Lookback / opts.Step)
	now := time.Now().UTC()
	docs := make([]sink.PointDocument, 0, steps*len(metrics))
	for i := 0; i < steps; i++ {
		ts := now.Add(-time.Duration(steps-i) * opts.Step)
		for _, metric := range metrics {
			docs = append(docs, sink.PointDocument{
				Timestamp: ts,
				Metric:    metric,
				Value:     roundCents(0.1 + rng.Float64()*99.9),
				Labels: map[string]string{
					"job":      opts.Job,
					"instance": opts.Instance,
				},
			})
		}
	}
	return docs
}

// roundCents rounds to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Loader bulk-loads point documents through the sink writer.
type Loader struct {
	writer  *sink.Writer
	limiter *rate.Limiter
	batch   int
}

// NewLoader returns a Loader pushing batchDocs documents per bulk request.
// rps caps bulk requests per second; zero or negative means unlimited.
func NewLoader(writer *sink.Writer, batchDocs int, rps float64) *Loader {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Loader{writer: writer, limiter: limiter, batch: batchDocs}
}

// Load pushes docs in bounded batches, waiting on the rate limiter before
// each bulk request. It returns the number of documents pushed; on error the
// count covers only completed batches.
func (l *Loader) Load(ctx context.Context, docs []sink.PointDocument) (int, error) {
	pushed := 0
	b := sink.NewBatcher(l.batch, func(ctx context.Context, group []any) error {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := l.writer.WriteBatch(ctx, group); err != nil {
			return err
		}
		pushed += len(group)
		return nil
	})

	for _, doc := range docs {
		if err := b.Add(ctx, doc); err != nil {
			return pushed, err
		}
	}
	if err := b.Flush(ctx); err != nil {
		return pushed, err
	}
	return pushed, nil
}
