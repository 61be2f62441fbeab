// Package parser validates boolean queries and builds their expression
// trees. A query is one or more operands joined by AND or OR, where an
// operand is a bare term or a parenthesised sub-query. AND and OR share one
// precedence level and group left to right inside each bracket level.
package parser

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/tokenizer"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

const (
	OpAnd        = "AND"
	OpOr         = "OR"
	OpenBracket  = "("
	CloseBracket = ")"
)

// QueryPlan is a split and validated query.
type QueryPlan struct {
	RawQuery string
	Tokens   []string
	Words    []string
}

// Parse splits query into tokens and validates its grammar. Words holds the
// distinct bare terms, lower-cased, in ascending order.
func Parse(query string) (*QueryPlan, error) {
	tokens := tokenizer.SplitQuery(query)
	if err := Validate(tokens); err != nil {
		return nil, err
	}
	return &QueryPlan{
		RawQuery: query,
		Tokens:   tokens,
		Words:    words(tokens),
	}, nil
}

func isOperator(tok string) bool {
	return tok == OpAnd || tok == OpOr
}

func isTerm(tok string) bool {
	return !isOperator(tok) && tok != OpenBracket && tok != CloseBracket
}

// NormalizeTerm maps a bare query token onto the indexed form.
func NormalizeTerm(tok string) string {
	return strings.ToLower(tok)
}

func words(tokens []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isTerm(tok) {
			continue
		}
		term := NormalizeTerm(tok)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

func invalid(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrInvalidQuery, apperrors.ExitUsage, format, args...)
}

// Validate checks the token stream against the query grammar.
func Validate(tokens []string) error {
	if len(tokens) == 0 {
		return invalid("empty query")
	}
	if isOperator(tokens[0]) {
		return invalid("query starts with %s", tokens[0])
	}
	if last := tokens[len(tokens)-1]; isOperator(last) {
		return invalid("query ends with %s", last)
	}
	depth := 0
	for i, cur := range tokens {
		switch cur {
		case OpenBracket:
			depth++
		case CloseBracket:
			depth--
			if depth < 0 {
				return invalid("unmatched %q at token %d", CloseBracket, i)
			}
		}
		if i == len(tokens)-1 {
			break
		}
		next := tokens[i+1]
		switch {
		case cur == OpenBracket:
			if isOperator(next) {
				return invalid("%s directly after %q", next, OpenBracket)
			}
		case cur == CloseBracket, isTerm(cur):
			if !isOperator(next) && next != CloseBracket {
				return invalid("%q follows %q without AND or OR", next, cur)
			}
		default:
			if isOperator(next) || next == CloseBracket {
				return invalid("%q directly after %s", next, cur)
			}
		}
	}
	if depth != 0 {
		return invalid("unbalanced brackets")
	}
	return nil
}

// Lookup returns the documents containing a normalised term. It may return
// nil for a term that occurs nowhere.
type Lookup func(term string) *roaring64.Bitmap

// Build turns validated tokens into an expression tree whose leaves are
// resolved through lookup.
func Build(tokens []string, lookup Lookup) Node {
	operands := make([]Node, 0, 4)
	operators := make([]string, 0, 1)
	reduce := func() {
		op := operators[len(operators)-1]
		operators = operators[:len(operators)-1]
		right := operands[len(operands)-1]
		left := operands[len(operands)-2]
		operands = operands[:len(operands)-2]
		if op == OpAnd {
			operands = append(operands, &AndNode{Left: left, Right: right})
		} else {
			operands = append(operands, &OrNode{Left: left, Right: right})
		}
	}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == OpenBracket:
			end := matchingBracket(tokens, i)
			operands = append(operands, Build(tokens[i+1:end], lookup))
			i = end
		case isOperator(tok):
			if len(operators) > 0 {
				reduce()
			}
			operators = append(operators, tok)
		default:
			term := NormalizeTerm(tok)
			docs := lookup(term)
			if docs == nil {
				docs = roaring64.New()
			}
			operands = append(operands, &TermNode{Term: term, Docs: docs})
		}
	}
	for len(operators) > 0 {
		reduce()
	}
	if len(operands) == 0 {
		return &TermNode{Docs: roaring64.New()}
	}
	return operands[0]
}

// matchingBracket returns the index of the bracket closing tokens[open].
func matchingBracket(tokens []string, open int) int {
	depth := 0
	for j := open; j < len(tokens); j++ {
		switch tokens[j] {
		case OpenBracket:
			depth++
		case CloseBracket:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(tokens)
}
