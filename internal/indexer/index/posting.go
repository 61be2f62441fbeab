package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     uint64
	Frequency uint64
}

type PostingList []Posting

// TermEntry is one term's data within a single segment. Positions holds
// exactly Frequency line numbers per posting, in posting order.
type TermEntry struct {
	Term      string
	Postings  PostingList
	Positions []uint64
}

// Document is the per-document record persisted to the doc-info file.
type Document struct {
	DocID  uint64
	Length uint64
	Path   string
}
