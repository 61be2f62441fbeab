package index

import (
	"fmt"
	"sort"
)

// Per-entry sizes used to estimate the in-memory footprint of a segment.
const (
	TermEntrySize     = 40
	PostingEntrySize  = 16
	PositionEntrySize = 8
)

// MemoryIndex accumulates the postings of one segment. Documents must be
// added in non-decreasing DocID order.
type MemoryIndex struct {
	terms     map[string]int
	postings  []PostingList
	positions [][]uint64
	size      int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		terms: make(map[string]int),
	}
}

// Add records one occurrence of term in docID at line.
func (m *MemoryIndex) Add(term string, docID uint64, line uint64) error {
	idx, exists := m.terms[term]
	if !exists {
		idx = len(m.postings)
		m.terms[term] = idx
		m.postings = append(m.postings, make(PostingList, 0, 1))
		m.positions = append(m.positions, make([]uint64, 0, 1))
		m.size += TermEntrySize
	}
	postings := m.postings[idx]
	switch last := len(postings) - 1; {
	case last >= 0 && postings[last].DocID == docID:
		postings[last].Frequency++
	case last >= 0 && postings[last].DocID > docID:
		return fmt.Errorf("document %d added after document %d for term %q", docID, postings[last].DocID, term)
	default:
		m.postings[idx] = append(postings, Posting{DocID: docID, Frequency: 1})
		m.size += PostingEntrySize
	}
	m.positions[idx] = append(m.positions[idx], line)
	m.size += PositionEntrySize
	return nil
}

// Snapshot returns the segment's terms in ascending byte order.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.terms))
	for term, idx := range m.terms {
		entries = append(entries, TermEntry{
			Term:      term,
			Postings:  m.postings[idx],
			Positions: m.positions[idx],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Size is the estimated footprint in bytes. It never decreases between
// resets.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) TermCount() int {
	return len(m.terms)
}

func (m *MemoryIndex) Reset() {
	m.terms = make(map[string]int)
	m.postings = nil
	m.positions = nil
	m.size = 0
}
