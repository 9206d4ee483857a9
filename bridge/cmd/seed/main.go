package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ragpulse/ragpulse/bridge/internal/seed"
	"github.com/ragpulse/ragpulse/bridge/internal/sink"
	"github.com/ragpulse/ragpulse/pkg/elastic"
)

func main() {
	esURL := flag.String("es", "http://localhost:9200", "document store base URL")
	index := flag.String("index", "prometheus_bridge", "target index")
	lookback := flag.Duration("lookback", 2*time.Hour, "history window to synthesize")
	step := flag.Duration("step", time.Minute, "spacing between points")
	batch := flag.Int("batch", 500, "documents per bulk request")
	rps := flag.Float64("rps", 4, "bulk requests per second (0 = unlimited)")
	job := flag.String("job", "rag_system", "job label on every point")
	instance := flag.String("instance", "host.docker.internal:8000", "instance label on every point")
	randSeed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *step <= 0 {
		slog.Error("step must be positive", "step", *step)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := elastic.New(elastic.Config{BaseURL: *esURL})
	if err != nil {
		slog.Error("failed to build store client", "err", err)
		os.Exit(1)
	}
	if err := client.EnsureIndex(ctx, *index, sink.PointsMapping); err != nil {
		slog.Error("failed to ensure index", "index", *index, "err", err)
		os.Exit(1)
	}

	docs := seed.Generate(seed.Options{
		Lookback: *lookback,
		Step:     *step,
		Job:      *job,
		Instance: *instance,
		Seed:     *randSeed,
	})
	slog.Info("generated mock history",
		"points", len(docs), "lookback", *lookback, "step", *step)

	loader := seed.NewLoader(sink.NewWriter(client, *index), *batch, *rps)
	pushed, err := loader.Load(ctx, docs)
	if err != nil {
		slog.Error("bulk load failed", "pushed", pushed, "err", err)
		os.Exit(1)
	}
	slog.Info("bulk load complete", "index", *index, "docs", pushed)
}
