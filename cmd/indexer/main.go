package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/logger"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	sourceDir := flag.String("i", "", "directory of documents to index")
	indexDir := flag.String("o", "", "index directory (overrides index.dir)")
	flag.Parse()

	if *sourceDir == "" {
		fmt.Fprintln(os.Stderr, "usage: indexer -i <source dir> [-o <index dir>] [-config <file>]")
		os.Exit(apperrors.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	if *indexDir != "" {
		cfg.Index.Dir = *indexDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"source", *sourceDir,
		"index_dir", cfg.Index.Dir,
		"flush_threshold", cfg.Index.FlushThreshold,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := indexer.NewBuilder(cfg.Index, nil)
	if _, err := builder.Build(ctx, indexer.NewDirSource(*sourceDir)); err != nil {
		slog.Error("index build failed", "error", err)
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}
