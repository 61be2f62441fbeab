package merger

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
)

// Cursor walks a DocID-ordered posting list, skipping documents outside
// the candidate set.
type Cursor struct {
	Term       string
	postings   index.PostingList
	candidates *roaring64.Bitmap
	pos        int
}

func NewCursor(term string, postings index.PostingList, candidates *roaring64.Bitmap) *Cursor {
	c := &Cursor{Term: term, postings: postings, candidates: candidates}
	c.skip()
	return c
}

func (c *Cursor) skip() {
	for c.pos < len(c.postings) && !c.candidates.Contains(c.postings[c.pos].DocID) {
		c.pos++
	}
}

func (c *Cursor) Exhausted() bool {
	return c.pos >= len(c.postings)
}

// Peek returns the current posting. It must not be called on an exhausted
// cursor.
func (c *Cursor) Peek() index.Posting {
	return c.postings[c.pos]
}

func (c *Cursor) Advance() {
	c.pos++
	c.skip()
}

type cursorHeap []*Cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	return h[i].Peek().DocID < h[j].Peek().DocID
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) {
	*h = append(*h, x.(*Cursor))
}

func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
