package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/rag/internal/index"
	"github.com/ragpulse/ragpulse/rag/internal/llm"
)

// Options tunes the chunking window.
type Options struct {
	// ChunkWords is the word window per indexed chunk.
	ChunkWords int

	// ChunkOverlap is how many words consecutive chunks share.
	ChunkOverlap int
}

// Service turns text documents into indexed chunks: read, chunk, embed, add.
// It is safe for concurrent use; the index serializes writes itself.
type Service struct {
	embedder llm.Embedder
	index    *index.Index
	words    int
	overlap  int

	docsIngested   prometheus.Counter
	chunksIngested prometheus.Counter
	indexSize      prometheus.Gauge
	lastIndexUnix  prometheus.Gauge
	embedSeconds   prometheus.Histogram

	now func() time.Time // injectable for deterministic tests
}

// New creates a Service writing to ix and registers its instruments on reg.
func New(reg *metrics.Registry, embedder llm.Embedder, ix *index.Index, opts Options) *Service {
	return &Service{
		embedder: embedder,
		index:    ix,
		words:    opts.ChunkWords,
		overlap:  opts.ChunkOverlap,

		docsIngested: reg.Counter("rag_ingested_docs_total",
			"Total documents ingested."),
		chunksIngested: reg.Counter("rag_ingested_chunks_total",
			"Total document chunks ingested."),
		indexSize: reg.Gauge("rag_index_size",
			"Number of vectors currently in the index."),
		lastIndexUnix: reg.Gauge("rag_last_index_unix",
			"Unix timestamp of the last index update."),
		embedSeconds: reg.Histogram("rag_embed_duration_seconds",
			"Time spent embedding one chunk.", nil),

		now: time.Now,
	}
}

// IngestFile indexes one text document and reports how many chunks it
// produced. Re-ingesting a path replaces the file's previous chunks, so the
// call is idempotent per content. On error the file's partial chunks are
// rolled back; the index never holds half a file.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	file := filepath.Base(path)
	s.index.DropFile(file)

	chunks := Chunk(string(data), s.words, s.overlap)
	for i, text := range chunks {
		vec, err := s.embed(ctx, text)
		if err != nil {
			s.index.DropFile(file)
			return 0, fmt.Errorf("ingest: embed %s chunk %d: %w", file, i, err)
		}
		c := index.Chunk{
			ID:      uuid.NewString(),
			File:    file,
			Ordinal: i,
			Text:    text,
		}
		if err := s.index.Add(c, vec); err != nil {
			s.index.DropFile(file)
			return 0, fmt.Errorf("ingest: index %s chunk %d: %w", file, i, err)
		}
	}

	s.docsIngested.Inc()
	s.chunksIngested.Add(float64(len(chunks)))
	s.indexSize.Set(float64(s.index.Len()))
	s.lastIndexUnix.Set(float64(s.now().Unix()))

	slog.Info("ingested document", "file", file, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestDir indexes every .txt file in dir in name order, creating the
// directory when it does not exist yet. A file that fails is logged and
// skipped; the remaining files are still ingested. Returns the number of
// files and chunks indexed.
func (s *Service) IngestDir(ctx context.Context, dir string) (int, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("ingest: create dir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		slog.Warn("no .txt documents found", "dir", dir)
		return 0, 0, nil
	}

	files, chunks := 0, 0
	for _, name := range names {
		n, err := s.IngestFile(ctx, filepath.Join(dir, name))
		if err != nil {
			slog.Warn("skipping document", "file", name, "err", err)
			continue
		}
		files++
		chunks += n
	}
	return files, chunks, nil
}

// embed runs one embedding call and observes its duration.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.embedSeconds.Observe(time.Since(start).Seconds())
	return vec, nil
}
