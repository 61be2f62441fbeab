package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/ranker"
)

// ScoreFunc returns the contribution of one term's posting to its
// document's score.
type ScoreFunc func(term string, p index.Posting) (float64, error)

// Merge walks all cursors in DocID order, sums the scores of the cursors
// positioned on the same document and keeps the best limit documents.
// Results are ordered by descending score, ties by ascending DocID.
func Merge(cursors []*Cursor, score ScoreFunc, limit uint64) ([]ranker.ScoredDoc, error) {
	h := make(cursorHeap, 0, len(cursors))
	for _, c := range cursors {
		if !c.Exhausted() {
			h = append(h, c)
		}
	}
	heap.Init(&h)
	top := NewTopK(limit)
	for h.Len() > 0 {
		docID := h[0].Peek().DocID
		var total float64
		for h.Len() > 0 && h[0].Peek().DocID == docID {
			c := h[0]
			s, err := score(c.Term, c.Peek())
			if err != nil {
				return nil, err
			}
			total += s
			c.Advance()
			if c.Exhausted() {
				heap.Pop(&h)
			} else {
				heap.Fix(&h, 0)
			}
		}
		top.Offer(ranker.ScoredDoc{DocID: docID, Score: total})
	}
	return top.Results(), nil
}

// TopK keeps the limit highest-scoring documents offered to it. Once full,
// a newcomer replaces the current minimum only with a strictly greater
// score.
type TopK struct {
	limit uint64
	h     scoredDocHeap
}

func NewTopK(limit uint64) *TopK {
	capacity := limit
	if capacity > 1024 {
		capacity = 1024
	}
	return &TopK{limit: limit, h: make(scoredDocHeap, 0, capacity)}
}

func (t *TopK) Offer(doc ranker.ScoredDoc) {
	if t.limit == 0 {
		return
	}
	if uint64(t.h.Len()) < t.limit {
		heap.Push(&t.h, doc)
		return
	}
	if doc.Score > t.h[0].Score {
		t.h[0] = doc
		heap.Fix(&t.h, 0)
	}
}

func (t *TopK) Len() int {
	return t.h.Len()
}

// Results returns the kept documents, best first.
func (t *TopK) Results() []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, len(t.h))
	copy(result, t.h)
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
