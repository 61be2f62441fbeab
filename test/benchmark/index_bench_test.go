// Package benchmark contains Go benchmarks for the index builder, the
// in-memory segment, and the query pipeline.
package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/config"
)

var vocabulary = []string{"distributed", "search", "analytics", "platform", "indexing", "query", "engine", "ranking"}

// writeCorpus writes docs files of a few lines each below dir.
func writeCorpus(b *testing.B, dir string, docs int) {
	b.Helper()
	for i := 0; i < docs; i++ {
		var sb strings.Builder
		for line := 0; line < 4; line++ {
			fmt.Fprintf(&sb, "this document covers %s %s and %s\n",
				vocabulary[(i+line)%len(vocabulary)],
				vocabulary[(i+2*line)%len(vocabulary)],
				vocabulary[(i*3+line)%len(vocabulary)])
		}
		path := filepath.Join(dir, fmt.Sprintf("doc-%05d.txt", i))
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryIndexAdd measures per-occurrence insert throughput into the
// in-memory segment.
func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := index.NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := mi.Add(vocabulary[i%len(vocabulary)], uint64(i/64), uint64(i%16)+1); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryIndexSnapshot measures the cost of ordering a segment
// before it is flushed.
func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := index.NewMemoryIndex()
	for doc := 0; doc < 2000; doc++ {
		for _, term := range vocabulary {
			if err := mi.Add(fmt.Sprintf("%s%d", term, doc%50), uint64(doc), 1); err != nil {
				b.Fatal(err)
			}
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snapshot := mi.Snapshot()
		_ = snapshot
	}
}

// BenchmarkBuild measures a full index build for several corpus sizes and
// flush thresholds.
func BenchmarkBuild(b *testing.B) {
	for _, docs := range []int{100, 1000} {
		for _, threshold := range []int64{1024, config.DefaultFlushThreshold} {
			b.Run(fmt.Sprintf("docs_%d/threshold_%d", docs, threshold), func(b *testing.B) {
				src := b.TempDir()
				writeCorpus(b, src, docs)
				builder := indexer.NewBuilder(config.IndexConfig{
					Dir:            filepath.Join(b.TempDir(), "info"),
					FlushThreshold: threshold,
				}, nil)

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := builder.Build(context.Background(), indexer.NewDirSource(src)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
