package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/metrics"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	indexDir := flag.String("d", "", "index directory (overrides index.dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	if *indexDir != "" {
		cfg.Index.Dir = *indexDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine := executor.New(cfg.Index.Dir, cfg.Search.MaxResults, metrics.New(reg))

	stats, err := engine.Stats()
	if err != nil {
		slog.Error("failed to open index", "dir", cfg.Index.Dir, "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	slog.Info("search engine ready",
		"index_dir", cfg.Index.Dir,
		"documents", stats.DocCount,
		"avg_doc_length", stats.AvgDocLength(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal while stdin is blocked terminates the process.
	context.AfterFunc(ctx, stop)

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(serveCtx, cfg.Metrics.Port, reg)
		})
	}
	g.Go(func() error {
		defer cancel()
		_, err := handler.New(engine, os.Stdout, os.Stderr).Serve(serveCtx, os.Stdin)
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("search stopped", "error", err)
		cancel()
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}
