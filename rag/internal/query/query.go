package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/rag/internal/index"
	"github.com/ragpulse/ragpulse/rag/internal/llm"
)

// Answer is the response for one answered query. Times are seconds, rounded
// to the millisecond.
type Answer struct {
	Query          string   `json:"query"`
	Response       string   `json:"response"`
	RetrievalTime  float64  `json:"retrieval_time"`
	GenerationTime float64  `json:"generation_time"`
	ContextUsed    []string `json:"context_used"`
}

// Options bundles the collaborators and tuning for an Engine.
type Options struct {
	Embedder  llm.Embedder
	Generator llm.Generator
	Index     *index.Index

	// Logger, when non-nil, receives one audit record per query.
	Logger *Logger

	// TopK is the number of chunks retrieved per query.
	TopK int
}

// Engine answers questions over the indexed corpus: embed the question,
// retrieve the nearest chunks, assemble the prompt, generate. It is safe for
// concurrent use.
type Engine struct {
	embedder  llm.Embedder
	generator llm.Generator
	index     *index.Index
	logger    *Logger
	topK      int

	queries        *prometheus.CounterVec
	retrievalTime  prometheus.Histogram
	generationTime prometheus.Histogram

	now func() time.Time // injectable for deterministic tests
}

// New creates an Engine and registers its instruments on reg.
func New(reg *metrics.Registry, opts Options) *Engine {
	if opts.TopK < 1 {
		opts.TopK = 1
	}
	return &Engine{
		embedder:  opts.Embedder,
		generator: opts.Generator,
		index:     opts.Index,
		logger:    opts.Logger,
		topK:      opts.TopK,

		queries: reg.CounterVec("rag_queries_total",
			"Queries processed, by outcome.", "status"),
		retrievalTime: reg.Histogram("rag_retrieval_time_seconds",
			"Time taken for context retrieval.", nil),
		generationTime: reg.Histogram("rag_generation_time_seconds",
			"Time taken for answer generation.", nil),

		now: time.Now,
	}
}

// Answer runs one question through the pipeline. A query over an empty index
// still generates, just without context; embedding or generation failures are
// counted, logged to the audit trail, and returned.
func (e *Engine) Answer(ctx context.Context, q string) (*Answer, error) {
	retrievalStart := time.Now()
	vec, err := e.embedder.Embed(ctx, q)
	if err != nil {
		return nil, e.fail(ctx, q, fmt.Errorf("embed query: %w", err))
	}

	results := e.index.Search(vec, e.topK)
	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Text)
	}
	retrieval := time.Since(retrievalStart).Seconds()
	e.retrievalTime.Observe(retrieval)

	generationStart := time.Now()
	response, err := e.generator.Generate(ctx, buildPrompt(q, contexts))
	if err != nil {
		return nil, e.fail(ctx, q, fmt.Errorf("generate answer: %w", err))
	}
	generation := time.Since(generationStart).Seconds()
	e.generationTime.Observe(generation)

	e.queries.WithLabelValues("success").Inc()
	slog.Debug("query answered",
		"chunks", len(contexts), "retrieval", retrieval, "generation", generation)

	e.audit(ctx, Record{
		Timestamp:      e.now().UTC(),
		Query:          q,
		Response:       response,
		RetrievalTime:  round3(retrieval),
		GenerationTime: round3(generation),
		Status:         "success",
		Source:         recordSource,
	})

	return &Answer{
		Query:          q,
		Response:       response,
		RetrievalTime:  round3(retrieval),
		GenerationTime: round3(generation),
		ContextUsed:    contexts,
	}, nil
}

// fail records a failed query on the counter and the audit trail, then hands
// the error back for the caller to return.
func (e *Engine) fail(ctx context.Context, q string, err error) error {
	e.queries.WithLabelValues("error").Inc()
	e.audit(ctx, Record{
		Timestamp: e.now().UTC(),
		Query:     q,
		Response:  err.Error(),
		Status:    "error",
		Source:    recordSource,
	})
	return err
}

// audit writes one record to the query log, best effort: a sink outage must
// never fail the answer.
func (e *Engine) audit(ctx context.Context, rec Record) {
	if e.logger == nil {
		return
	}
	if err := e.logger.Log(ctx, rec); err != nil {
		slog.Warn("query log write failed", "err", err)
	}
}

// buildPrompt assembles the generation prompt from the question and the
// retrieved context chunks.
func buildPrompt(q string, contexts []string) string {
	return "You are a helpful assistant.\n" +
		"Context:\n" + strings.Join(contexts, "\n\n") + "\n\n" +
		"Question: " + q + "\n\n" +
		"Answer concisely and factually using only the context above."
}

// round3 rounds to the millisecond.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
