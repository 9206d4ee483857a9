package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragpulse/ragpulse/pkg/elastic"
	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/rag/internal/config"
	"github.com/ragpulse/ragpulse/rag/internal/index"
	"github.com/ragpulse/ragpulse/rag/internal/ingest"
	"github.com/ragpulse/ragpulse/rag/internal/llm"
	"github.com/ragpulse/ragpulse/rag/internal/query"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	slog.Info("ragpulse-ragd starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	rc := cfg.RAG
	slog.Info("config loaded",
		"addr", rc.MetricsAddr,
		"docs_dir", rc.DocsDir,
		"embedder", rc.Embedder,
		"top_k", rc.TopK,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()

	// Model server client: always the generator, and the embedder unless the
	// offline hash embedder is selected.
	client, err := llm.New(llm.Config{
		BaseURL:       rc.Ollama.URL,
		EmbedModel:    rc.Ollama.EmbedModel,
		GenerateModel: rc.Ollama.GenerateModel,
		Timeout:       rc.Ollama.Timeout,
	})
	if err != nil {
		slog.Error("failed to build model client", "err", err)
		os.Exit(1)
	}
	var embedder llm.Embedder = client
	if rc.Embedder == "hash" {
		embedder = llm.NewHashEmbedder(llm.DefaultHashDims)
		slog.Info("using offline hash embedder", "dims", llm.DefaultHashDims)
	}

	ix := index.New()
	svc := ingest.New(reg, embedder, ix, ingest.Options{
		ChunkWords:   rc.ChunkWords,
		ChunkOverlap: rc.ChunkOverlap,
	})

	files, chunks, err := svc.IngestDir(ctx, rc.DocsDir)
	if err != nil {
		slog.Error("failed to ingest docs dir", "dir", rc.DocsDir, "err", err)
		os.Exit(1)
	}
	slog.Info("corpus indexed", "files", files, "chunks", chunks)

	// Query audit trail. The index bootstrap is best effort: per-query writes
	// retry on their own, so a store that is down at startup only costs the
	// records written before it comes back.
	var queryLog *query.Logger
	if rc.QueryLog.Enabled {
		es, err := elastic.New(elastic.Config{BaseURL: rc.QueryLog.URL})
		if err != nil {
			slog.Error("failed to build query log client", "err", err)
			os.Exit(1)
		}
		queryLog = query.NewLogger(es, rc.QueryLog.Index)

		bootCtx, bootCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := queryLog.EnsureIndex(bootCtx); err != nil {
			slog.Warn("query log index not ready", "index", rc.QueryLog.Index, "err", err)
		} else {
			slog.Info("query log ready", "index", rc.QueryLog.Index)
		}
		bootCancel()
	}

	engine := query.New(reg, query.Options{
		Embedder:  embedder,
		Generator: client,
		Index:     ix,
		Logger:    queryLog,
		TopK:      rc.TopK,
	})

	httpMux := http.NewServeMux()
	httpMux.Handle("/query", engine.Handler())
	httpMux.Handle("/metrics", reg.Handler())
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	httpSrv := &http.Server{
		Addr:              rc.MetricsAddr,
		Handler:           httpMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Server, docs watcher and shutdown trigger share one errgroup; the first
	// failure cancels the rest.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("rag server listening", "addr", rc.MetricsAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if rc.Watch {
		g.Go(func() error {
			return svc.Watch(gctx, rc.DocsDir)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("ragpulse-ragd shutting down")
		return httpSrv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		slog.Error("ragpulse-ragd stopped", "err", err)
		os.Exit(1)
	}
}

// parseLevel maps a -log-level value onto a slog level. Unknown values fall
// back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
