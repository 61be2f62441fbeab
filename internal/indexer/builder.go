package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/metrics"
)

// Summary describes a completed build.
type Summary struct {
	Documents uint64
	Tokens    uint64
	Segments  int
	Records   int
}

// Builder turns a Source into the on-disk index files. A Builder runs one
// build at a time and is not safe for concurrent use.
type Builder struct {
	cfg      config.IndexConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	memIndex *index.MemoryIndex
	writer   *segment.Writer
	summary  Summary
}

// NewBuilder creates a Builder writing into cfg.Dir. A nil m records metrics
// into a private registry.
func NewBuilder(cfg config.IndexConfig, m *metrics.Metrics) *Builder {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = config.DefaultFlushThreshold
	}
	return &Builder{
		cfg:      cfg,
		logger:   logger.WithComponent("indexer"),
		metrics:  m,
		memIndex: index.NewMemoryIndex(),
	}
}

// Build indexes every document of src. The new files are assembled in a
// scratch directory and moved over the live ones only once complete, so a
// failed build leaves the previous index untouched.
func (b *Builder) Build(ctx context.Context, src Source) (Summary, error) {
	start := time.Now()
	paths, err := src.Documents()
	if err != nil {
		return Summary{}, fmt.Errorf("listing documents: %w", err)
	}
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating index directory: %w", err)
	}
	scratch, err := os.MkdirTemp(b.cfg.Dir, ".build-")
	if err != nil {
		return Summary{}, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	b.memIndex.Reset()
	b.summary = Summary{}
	b.writer, err = segment.NewWriter(scratch)
	if err != nil {
		return Summary{}, err
	}
	defer func() { b.writer = nil }()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			b.writer.Abort()
			return Summary{}, err
		}
		if err := b.indexDocument(src, path); err != nil {
			b.writer.Abort()
			return Summary{}, fmt.Errorf("indexing %s: %w", path, err)
		}
	}
	if err := b.Flush(); err != nil {
		b.writer.Abort()
		return Summary{}, err
	}
	stats := segment.Stats{DocCount: b.summary.Documents, TotalTokens: b.summary.Tokens}
	if err := b.writer.Finish(stats); err != nil {
		return Summary{}, fmt.Errorf("finishing index files: %w", err)
	}
	if err := publish(scratch, b.cfg.Dir); err != nil {
		return Summary{}, err
	}

	elapsed := time.Since(start)
	b.metrics.BuildDuration.Observe(elapsed.Seconds())
	b.logger.Info("index build complete",
		"dir", b.cfg.Dir,
		"documents", b.summary.Documents,
		"tokens", b.summary.Tokens,
		"segments", b.summary.Segments,
		"term_records", b.summary.Records,
		"duration", elapsed,
	)
	return b.summary, nil
}

func (b *Builder) indexDocument(src Source, path string) error {
	rc, err := src.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	docID := b.summary.Documents
	var length uint64
	_, err = tokenizer.Scan(rc, func(tok tokenizer.Token) error {
		if err := b.memIndex.Add(tok.Term, docID, tok.Line); err != nil {
			return err
		}
		length++
		if b.memIndex.Size() >= b.cfg.FlushThreshold {
			b.logger.Debug("memory index reached max size, flushing to disk",
				"size", b.memIndex.Size(),
				"threshold", b.cfg.FlushThreshold,
			)
			return b.Flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.summary.Documents++
	b.summary.Tokens += length
	if err := b.writer.WriteDocument(index.Document{DocID: docID, Length: length, Path: path}); err != nil {
		return fmt.Errorf("writing document record: %w", err)
	}
	b.metrics.DocsIndexedTotal.Inc()
	b.metrics.TokensIndexedTotal.Add(float64(length))
	b.logger.Debug("document indexed",
		"doc_id", docID,
		"path", path,
		"token_count", length,
		"mem_size", b.memIndex.Size(),
	)
	return nil
}

// Flush writes the in-memory segment, if any, and starts a fresh one.
// Global document and token counts are unaffected.
func (b *Builder) Flush() error {
	if b.memIndex.TermCount() == 0 {
		return nil
	}
	footprint := b.memIndex.Size()
	stats, err := b.writer.WriteSegment(b.memIndex.Snapshot())
	if err != nil {
		b.metrics.IndexFlushesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("writing segment: %w", err)
	}
	b.memIndex.Reset()
	b.summary.Segments++
	b.summary.Records += stats.Terms
	b.metrics.IndexFlushesTotal.WithLabelValues("ok").Inc()
	b.metrics.SegmentRecordsTotal.Add(float64(stats.Terms))
	b.metrics.SegmentFootprint.Observe(float64(footprint))
	b.logger.Debug("segment flushed",
		"segment", b.summary.Segments,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"positions", stats.Positions,
		"footprint", footprint,
	)
	return nil
}

// publish moves the finished files from scratch into dir.
func publish(scratch, dir string) error {
	for _, name := range segment.Files() {
		if err := os.Rename(filepath.Join(scratch, name), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("publishing %s: %w", name, err)
		}
	}
	return nil
}
