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

	"github.com/ragpulse/ragpulse/bridge/internal/config"
	"github.com/ragpulse/ragpulse/bridge/internal/poller"
	"github.com/ragpulse/ragpulse/bridge/internal/sink"
	"github.com/ragpulse/ragpulse/bridge/internal/source"
	"github.com/ragpulse/ragpulse/bridge/internal/status"
	"github.com/ragpulse/ragpulse/pkg/elastic"
	"github.com/ragpulse/ragpulse/pkg/metrics"
	"github.com/ragpulse/ragpulse/pkg/retry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	slog.Info("ragpulse-bridge starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	bc := cfg.Bridge
	slog.Info("config loaded",
		"sink", bc.Sink.URL,
		"index", bc.Sink.Index,
		"sources", len(bc.Sources),
		"poll_interval", bc.PollInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Sink client and index bootstrap. The bridge cannot run without its
	// sink, so a bootstrap failure is fatal.
	es, err := elastic.New(elastic.Config{
		BaseURL:            bc.Sink.URL,
		Timeout:            bc.Sink.Timeout,
		AuthMode:           bc.Sink.Auth.Mode,
		Username:           bc.Sink.Auth.Username,
		Password:           bc.Sink.Auth.Password(),
		Header:             bc.Sink.Auth.Header,
		Key:                bc.Sink.Auth.Key(),
		InsecureSkipVerify: bc.Sink.TLS.InsecureSkipVerify,
	})
	if err != nil {
		slog.Error("failed to build sink client", "err", err)
		os.Exit(1)
	}

	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := es.EnsureIndex(bootCtx, bc.Sink.Index, sink.MetricsMapping); err != nil {
		bootCancel()
		slog.Error("failed to ensure sink index", "index", bc.Sink.Index, "err", err)
		os.Exit(1)
	}
	bootCancel()
	slog.Info("sink index ready", "index", bc.Sink.Index)

	// Build sources from the initial config. The list is immutable for the
	// process lifetime; hot-reload updates logging only.
	var sources []source.Source
	for _, src := range bc.Sources {
		s, err := source.New(src, bc.FetchTimeout)
		if err != nil {
			slog.Error("skipping source, could not build", "source", src.ID, "err", err)
			continue
		}
		sources = append(sources, s)
		slog.Info("registered source", "id", src.ID, "type", src.Type, "url", src.URL)
	}
	if len(sources) == 0 {
		slog.Warn("no sources configured, bridge will idle")
	}

	// Watch the config file so operators see edits land in the log.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded", "sources", len(updated.Bridge.Sources))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID())
	}
	st := status.New(ids, 3*bc.PollInterval)
	reg := metrics.NewRegistry()

	p := poller.New(reg, poller.Options{
		Sources:       sources,
		Store:         st,
		Writer:        sink.NewWriter(es, bc.Sink.Index),
		Retrier:       retry.New(bc.Retry.Attempts, bc.Retry.BackoffBase),
		Interval:      bc.PollInterval,
		FetchTimeout:  bc.FetchTimeout,
		MaxBatchDocs:  bc.MaxBatchDocs,
		MaxConcurrent: bc.MaxConcurrentPolls,
	})
	go p.Run(ctx)

	// WebSocket hub broadcasts the sources snapshot to ops clients.
	hub := status.NewHub(st, bc.Ops.WSInterval)
	go hub.Run(ctx)

	// Ops HTTP server: status API + WebSocket + own metrics.
	key := bc.Ops.APIKey()
	if key != "" {
		slog.Info("ops api key auth enabled")
	}
	guard := status.APIKeyMiddleware(key)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", guard(status.NewHandler(st)))
	httpMux.Handle("/ws/stream", guard(hub))
	httpMux.Handle("/metrics", reg.Handler())
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	httpSrv := &http.Server{
		Addr:              bc.Ops.Addr,
		Handler:           httpMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("ops server listening", "addr", bc.Ops.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("ragpulse-bridge shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
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
