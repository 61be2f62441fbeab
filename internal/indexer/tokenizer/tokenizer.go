// Package tokenizer provides text tokenisation for the search engine.
// Documents are split on whitespace with 1-based line numbers tracked,
// stripped of punctuation other than '-' and '_', and lower-cased. Queries
// are split into word runs and single punctuation characters so that
// brackets become standalone tokens.
package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token represents a single normalised term and the line it occurred on.
type Token struct {
	Term string
	Line uint64
}

// Normalize strips punctuation other than '-' and '_' from a whitespace
// delimited chunk and lower-cases the rest. It reports false when nothing
// indexable remains.
func Normalize(chunk string) (string, bool) {
	term := strings.Map(func(r rune) rune {
		if r != '-' && r != '_' && isPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, chunk)
	if term == "" || term == "-" || term == "_" {
		return "", false
	}
	return term, true
}

// isPunct matches the printable ASCII characters that are neither letters,
// digits nor space.
func isPunct(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}

// Scan reads a document from r and calls emit for every surviving token in
// document order. It returns the number of lines read.
func Scan(r io.Reader, emit func(Token) error) (uint64, error) {
	br := bufio.NewReader(r)
	var line uint64
	for {
		text, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return line, fmt.Errorf("reading line %d: %w", line+1, readErr)
		}
		if text == "" && readErr != nil {
			return line, nil
		}
		line++
		for _, chunk := range strings.Fields(text) {
			term, ok := Normalize(chunk)
			if !ok {
				continue
			}
			if err := emit(Token{Term: term, Line: line}); err != nil {
				return line, err
			}
		}
		if readErr != nil {
			return line, nil
		}
	}
}

// Tokenize breaks text into its surviving tokens.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/6)
	_, _ = Scan(strings.NewReader(text), func(tok Token) error {
		tokens = append(tokens, tok)
		return nil
	})
	return tokens
}

// SplitQuery breaks a query into maximal runs of word characters (letters,
// digits, underscore) and single non-word, non-space characters.
func SplitQuery(query string) []string {
	tokens := make([]string, 0, 8)
	start := -1
	for i, r := range query {
		if isWord(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, query[start:i])
			start = -1
		}
		if !unicode.IsSpace(r) {
			tokens = append(tokens, string(r))
		}
	}
	if start >= 0 {
		tokens = append(tokens, query[start:])
	}
	return tokens
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
