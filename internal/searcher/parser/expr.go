package parser

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Node is a boolean expression over document-id sets. Calculate returns a
// fresh bitmap on every call; callers may modify it.
type Node interface {
	Calculate() *roaring64.Bitmap
	String() string
}

// TermNode holds the documents containing one term.
type TermNode struct {
	Term string
	Docs *roaring64.Bitmap
}

func (n *TermNode) Calculate() *roaring64.Bitmap {
	return n.Docs.Clone()
}

func (n *TermNode) String() string {
	return n.Term
}

// AndNode intersects its children.
type AndNode struct {
	Left, Right Node
}

func (n *AndNode) Calculate() *roaring64.Bitmap {
	docs := n.Left.Calculate()
	docs.And(n.Right.Calculate())
	return docs
}

func (n *AndNode) String() string {
	return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
}

// OrNode unions its children.
type OrNode struct {
	Left, Right Node
}

func (n *OrNode) Calculate() *roaring64.Bitmap {
	docs := n.Left.Calculate()
	docs.Or(n.Right.Calculate())
	return docs
}

func (n *OrNode) String() string {
	return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
}
