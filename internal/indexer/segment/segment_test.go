package segment

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// writeFixture writes two documents and a single segment:
//
//	doc 0 "files/test/a.txt": "apple lol apple\napple"
//	doc 1 "files/test/b.txt": "Apple!"
func writeFixture(t *testing.T, dir string) {
	t.Helper()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.WriteDocument(index.Document{DocID: 0, Length: 4, Path: "files/test/a.txt"}))
	require.NoError(t, w.WriteDocument(index.Document{DocID: 1, Length: 1, Path: "files/test/b.txt"}))
	stats, err := w.WriteSegment([]index.TermEntry{
		{
			Term:      "apple",
			Postings:  index.PostingList{{DocID: 0, Frequency: 3}, {DocID: 1, Frequency: 1}},
			Positions: []uint64{1, 1, 2, 1},
		},
		{
			Term:      "lol",
			Postings:  index.PostingList{{DocID: 0, Frequency: 1}},
			Positions: []uint64{1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SegmentStats{Terms: 2, Postings: 3, Positions: 5}, stats)
	require.NoError(t, w.Finish(Stats{DocCount: 2, TotalTokens: 5}))
}

func readFile(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return data
}

func TestWriterGoldenBytes(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	path := func(s string) []byte { return []byte(s) }
	docWant := append([]byte{0, 4, 16}, path("files/test/a.txt")...)
	docWant = append(docWant, 1, 1, 16)
	docWant = append(docWant, path("files/test/b.txt")...)

	golden := map[string][]byte{
		InfoFile:     {2, 5},
		DocFile:      docWant,
		TermFile:     {5, 'a', 'p', 'p', 'l', 'e', 2, 0, 0, 3, 'l', 'o', 'l', 1, 4, 4},
		PostingFile:  {0, 3, 1, 1, 0, 1},
		PositionFile: {1, 0, 1, 1, 1},
	}
	for name, want := range golden {
		if diff := cmp.Diff(want, readFile(t, dir, name)); diff != "" {
			t.Errorf("%s mismatch (-want +got)\n%s", name, diff)
		}
	}
}

func TestWriterRejectsMismatchedPositions(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Abort()
	_, err = w.WriteSegment([]index.TermEntry{{
		Term:      "x",
		Postings:  index.PostingList{{DocID: 0, Frequency: 2}},
		Positions: []uint64{1},
	}})
	assert.Error(t, err)
}

func TestReadBack(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	stats, err := ReadStats(dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{DocCount: 2, TotalTokens: 5}, stats)
	assert.InDelta(t, 2.5, stats.AvgDocLength(), 1e-9)

	dict, err := OpenDictionary(dir)
	require.NoError(t, err)
	defer dict.Close()
	var entries []DictEntry
	for {
		entry, err := dict.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	assert.Equal(t, []DictEntry{
		{Term: "apple", Count: 2, PostingOffset: 0, PositionOffset: 0},
		{Term: "lol", Count: 1, PostingOffset: 4, PositionOffset: 4},
	}, entries)

	tables, err := OpenTables(dir)
	require.NoError(t, err)
	defer tables.Close()

	var postings index.PostingList
	require.NoError(t, tables.ReadPostings(entries[0], func(p index.Posting) error {
		postings = append(postings, p)
		return nil
	}))
	assert.Equal(t, index.PostingList{{DocID: 0, Frequency: 3}, {DocID: 1, Frequency: 1}}, postings)

	lines := map[uint64][]uint64{}
	require.NoError(t, tables.ReadPositions(entries[0],
		func(docID uint64) bool { return docID == 0 },
		func(docID, line uint64) { lines[docID] = append(lines[docID], line) },
	))
	assert.Equal(t, map[uint64][]uint64{0: {1, 1, 2}}, lines)

	docs, err := OpenDocs(dir)
	require.NoError(t, err)
	defer docs.Close()
	var records []DocRecord
	require.NoError(t, docs.Scan(func(r DocRecord) error {
		records = append(records, r)
		return nil
	}))
	require.Len(t, records, 2)
	assert.Equal(t, DocRecord{DocID: 1, Length: 1, Offset: 19}, records[1])

	doc, err := docs.ReadAt(records[1].Offset)
	require.NoError(t, err)
	assert.Equal(t, index.Document{DocID: 1, Length: 1, Path: "files/test/b.txt"}, doc)
}

func TestTruncatedDictionaryIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	data := readFile(t, dir, TermFile)
	require.NoError(t, os.WriteFile(filepath.Join(dir, TermFile), data[:len(data)-2], 0o644))

	dict, err := OpenDictionary(dir)
	require.NoError(t, err)
	defer dict.Close()
	_, err = dict.Next()
	require.NoError(t, err)
	_, err = dict.Next()
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}

func TestTruncatedPostingsAreCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, PostingFile), []byte{0, 3, 1}, 0o644))

	tables, err := OpenTables(dir)
	require.NoError(t, err)
	defer tables.Close()
	err = tables.ReadPostings(DictEntry{Term: "apple", Count: 2}, func(index.Posting) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)

	err = tables.ReadPostings(DictEntry{Term: "lol", Count: 1, PostingOffset: 40}, func(index.Posting) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}

func TestStatsTrailingBytesAreCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, InfoFile), []byte{2, 5, 9}, 0o644))
	_, err := ReadStats(dir)
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)

	require.NoError(t, os.WriteFile(filepath.Join(dir, InfoFile), []byte{0x82}, 0o644))
	_, err = ReadStats(dir)
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}

func TestDocsRejectsOutOfOrderIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocFile), []byte{1, 1, 1, 'x'}, 0o644))
	docs, err := OpenDocs(dir)
	require.NoError(t, err)
	defer docs.Close()
	err = docs.Scan(func(DocRecord) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}
