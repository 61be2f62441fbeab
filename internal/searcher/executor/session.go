package executor

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/segment"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// termInfo is one query word's postings merged across every segment that
// contains it.
type termInfo struct {
	segments []segment.DictEntry
	freqs    map[uint64]uint64
	postings index.PostingList
}

func (t *termInfo) docFreq() uint64 {
	return uint64(len(t.freqs))
}

func (t *termInfo) docs() *roaring64.Bitmap {
	bm := roaring64.New()
	for _, p := range t.postings {
		bm.Add(p.DocID)
	}
	return bm
}

// session holds everything one request materialises. It is cleared after
// every request; only the index files outlive it.
type session struct {
	stats  segment.Stats
	terms  map[string]*termInfo
	docs   map[uint64]segment.DocRecord
	lines  map[uint64][]uint64
	tables *segment.Tables
	docIdx *segment.Docs
}

func newSession() *session {
	return &session{
		terms: make(map[string]*termInfo),
		docs:  make(map[uint64]segment.DocRecord),
		lines: make(map[uint64][]uint64),
	}
}

func (s *session) open(dir string) error {
	stats, err := segment.ReadStats(dir)
	if err != nil {
		return err
	}
	s.stats = stats
	if s.tables, err = segment.OpenTables(dir); err != nil {
		return err
	}
	if s.docIdx, err = segment.OpenDocs(dir); err != nil {
		return err
	}
	return nil
}

func (s *session) reset() {
	if s.tables != nil {
		s.tables.Close()
		s.tables = nil
	}
	if s.docIdx != nil {
		s.docIdx.Close()
		s.docIdx = nil
	}
	s.stats = segment.Stats{}
	clear(s.terms)
	clear(s.docs)
	clear(s.lines)
}

// loadTerms scans the dictionary once and merges the posting blocks of every
// record whose term is wanted. Frequencies of a document seen in several
// segments are summed.
func (s *session) loadTerms(dir string, words []string) error {
	wanted := make(map[string]struct{}, len(words))
	for _, w := range words {
		wanted[w] = struct{}{}
	}
	dict, err := segment.OpenDictionary(dir)
	if err != nil {
		return err
	}
	defer dict.Close()

	for {
		entry, err := dict.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("scanning dictionary: %w", err)
		}
		if _, ok := wanted[entry.Term]; !ok {
			continue
		}
		info, seen := s.terms[entry.Term]
		if !seen {
			info = &termInfo{freqs: make(map[uint64]uint64, entry.Count)}
			s.terms[entry.Term] = info
		}
		err = s.tables.ReadPostings(entry, func(p index.Posting) error {
			if p.DocID >= s.stats.DocCount {
				return apperrors.Corruptf("term %q references document %d of %d", entry.Term, p.DocID, s.stats.DocCount)
			}
			info.freqs[p.DocID] += p.Frequency
			return nil
		})
		if err != nil {
			return fmt.Errorf("reading postings of %q: %w", entry.Term, err)
		}
		info.segments = append(info.segments, entry)
	}

	for _, info := range s.terms {
		info.postings = make(index.PostingList, 0, len(info.freqs))
		for docID, freq := range info.freqs {
			info.postings = append(info.postings, index.Posting{DocID: docID, Frequency: freq})
		}
		sort.Slice(info.postings, func(i, j int) bool {
			return info.postings[i].DocID < info.postings[j].DocID
		})
	}
	return nil
}

// matchedWords returns the words found in the dictionary, in order.
func (s *session) matchedWords(words []string) []string {
	matched := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := s.terms[w]; ok {
			matched = append(matched, w)
		}
	}
	return matched
}

func (s *session) lookup(term string) *roaring64.Bitmap {
	info, ok := s.terms[term]
	if !ok {
		return nil
	}
	return info.docs()
}

// loadDocs records the length and record offset of every candidate.
func (s *session) loadDocs(candidates *roaring64.Bitmap) error {
	err := s.docIdx.Scan(func(rec segment.DocRecord) error {
		if candidates.Contains(rec.DocID) {
			s.docs[rec.DocID] = rec
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning documents: %w", err)
	}
	if uint64(len(s.docs)) != candidates.GetCardinality() {
		return apperrors.Corruptf("%d candidate documents have no %s record",
			candidates.GetCardinality()-uint64(len(s.docs)), segment.DocFile)
	}
	return nil
}

// loadLines re-reads the position blocks of every matched term and keeps the
// line numbers of the winning documents, sorted ascending.
func (s *session) loadLines(words []string, winners *roaring64.Bitmap) error {
	for _, w := range words {
		for _, entry := range s.terms[w].segments {
			err := s.tables.ReadPositions(entry, winners.Contains, func(docID, line uint64) {
				s.lines[docID] = append(s.lines[docID], line)
			})
			if err != nil {
				return fmt.Errorf("reading positions of %q: %w", w, err)
			}
		}
	}
	for _, lines := range s.lines {
		sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	}
	return nil
}
