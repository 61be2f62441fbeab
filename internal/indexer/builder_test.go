package indexer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/metrics"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// setupCorpus creates files/test/{a,b}.txt under a temporary working
// directory so recorded paths are stable.
func setupCorpus(t *testing.T) {
	t.Helper()
	chdir(t, t.TempDir())
	require.NoError(t, os.MkdirAll("files/test", 0o755))
	require.NoError(t, os.WriteFile("files/test/a.txt", []byte("apple lol apple\napple\n"), 0o644))
	require.NoError(t, os.WriteFile("files/test/b.txt", []byte("Apple!"), 0o644))
}

func readIndex(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte)
	for _, name := range segment.Files() {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		files[name] = data
	}
	return files
}

func TestBuildGoldenFiles(t *testing.T) {
	setupCorpus(t)
	m := metrics.NewUnregistered()
	b := NewBuilder(config.IndexConfig{Dir: "info", FlushThreshold: config.DefaultFlushThreshold}, m)

	summary, err := b.Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	assert.Equal(t, Summary{Documents: 2, Tokens: 5, Segments: 1, Records: 2}, summary)

	doc := []byte{0, 4, 16}
	doc = append(doc, "files/test/a.txt"...)
	doc = append(doc, 1, 1, 16)
	doc = append(doc, "files/test/b.txt"...)
	want := map[string][]byte{
		segment.InfoFile:     {2, 5},
		segment.DocFile:      doc,
		segment.TermFile:     {5, 'a', 'p', 'p', 'l', 'e', 2, 0, 0, 3, 'l', 'o', 'l', 1, 4, 4},
		segment.PostingFile:  {0, 3, 1, 1, 0, 1},
		segment.PositionFile: {1, 0, 1, 1, 1},
	}
	if diff := cmp.Diff(want, readIndex(t, "info")); diff != "" {
		t.Errorf("index files mismatch (-want +got)\n%s", diff)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TokensIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexFlushesTotal.WithLabelValues("ok")))

	entries, err := os.ReadDir("info")
	require.NoError(t, err)
	assert.Len(t, entries, len(segment.Files()), "scratch directory must be removed")
}

func TestBuildFlushesEverySegmentSeparately(t *testing.T) {
	setupCorpus(t)
	b := NewBuilder(config.IndexConfig{Dir: "info", FlushThreshold: 1}, nil)

	summary, err := b.Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Segments)
	assert.Equal(t, 5, summary.Records)

	files := readIndex(t, "info")
	assert.Equal(t, []byte{
		5, 'a', 'p', 'p', 'l', 'e', 1, 0, 0,
		3, 'l', 'o', 'l', 1, 2, 1,
		5, 'a', 'p', 'p', 'l', 'e', 1, 4, 2,
		5, 'a', 'p', 'p', 'l', 'e', 1, 6, 3,
		5, 'a', 'p', 'p', 'l', 'e', 1, 8, 4,
	}, files[segment.TermFile])
	assert.Equal(t, []byte{0, 1, 0, 1, 0, 1, 0, 1, 1, 1}, files[segment.PostingFile])
	assert.Equal(t, []byte{1, 1, 1, 2, 1}, files[segment.PositionFile])
	assert.Equal(t, []byte{2, 5}, files[segment.InfoFile])
}

func TestBuildIsIdempotent(t *testing.T) {
	setupCorpus(t)
	require.NoError(t, os.WriteFile("files/test/c.txt", []byte(strings.Repeat("alpha beta, gamma!\ndelta alpha\n", 400)), 0o644))
	cfg := config.IndexConfig{Dir: "info", FlushThreshold: 2048}

	_, err := NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	first := readIndex(t, "info")

	_, err = NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	if diff := cmp.Diff(first, readIndex(t, "info")); diff != "" {
		t.Errorf("rebuild differs (-first +second)\n%s", diff)
	}
}

func TestBuildInvalidSourceLeavesIndexUntouched(t *testing.T) {
	setupCorpus(t)
	cfg := config.IndexConfig{Dir: "info", FlushThreshold: config.DefaultFlushThreshold}
	_, err := NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	before := readIndex(t, "info")

	_, err = NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/missing"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSource)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))

	_, err = NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/test/a.txt"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSource)

	assert.Equal(t, before, readIndex(t, "info"))
}

type failingSource struct {
	*DirSource
	failOn string
}

func (s failingSource) Open(path string) (io.ReadCloser, error) {
	if filepath.Base(path) == s.failOn {
		return nil, errors.New("permission denied")
	}
	return s.DirSource.Open(path)
}

func TestBuildFailureMidwayLeavesIndexUntouched(t *testing.T) {
	setupCorpus(t)
	cfg := config.IndexConfig{Dir: "info", FlushThreshold: 1}
	_, err := NewBuilder(cfg, nil).Build(context.Background(), NewDirSource("files/test"))
	require.NoError(t, err)
	before := readIndex(t, "info")

	src := failingSource{DirSource: NewDirSource("files/test"), failOn: "b.txt"}
	_, err = NewBuilder(cfg, nil).Build(context.Background(), src)
	assert.Error(t, err)
	assert.Equal(t, before, readIndex(t, "info"))
}

func TestBuildHonoursCancellation(t *testing.T) {
	setupCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(config.IndexConfig{Dir: "info"}, nil).Build(ctx, NewDirSource("files/test"))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join("info", segment.InfoFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDirSourceOrder(t *testing.T) {
	chdir(t, t.TempDir())
	for _, p := range []string{"root/b.txt", "root/a/z.txt", "root/a/y.txt", "root/c.txt"} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	paths, err := NewDirSource("root").Documents()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("root", "a", "y.txt"),
		filepath.Join("root", "a", "z.txt"),
		filepath.Join("root", "b.txt"),
		filepath.Join("root", "c.txt"),
	}, paths)
}

// chdir changes the working directory to dir and restores the previous one
// when the test finishes (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
