// Package segment reads and writes the five binary files that make up an
// index. Every integer is varint-encoded.
//
//	info.bin            N, dl_all
//	doc.bin             {DID, dl, path_length, path}*
//	term.bin            {term_length, term, count, posting_offset, position_offset}*
//	posting_table.bin   per-term blocks of {DID delta, tf}
//	position_table.bin  per-term blocks of line deltas, tf per posting
//
// A term appears once in term.bin for every segment flush that saw it.
package segment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/varint"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

const (
	InfoFile     = "info.bin"
	DocFile      = "doc.bin"
	TermFile     = "term.bin"
	PostingFile  = "posting_table.bin"
	PositionFile = "position_table.bin"
)

// Files lists every index file name.
func Files() []string {
	return []string{InfoFile, DocFile, TermFile, PostingFile, PositionFile}
}

// Stats are the global statistics stored in info.bin.
type Stats struct {
	DocCount    uint64
	TotalTokens uint64
}

// AvgDocLength returns dl_all / N, or zero for an empty index.
func (s Stats) AvgDocLength() float64 {
	if s.DocCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.DocCount)
}

// DictEntry is one term.bin record.
type DictEntry struct {
	Term           string
	Count          uint64
	PostingOffset  uint64
	PositionOffset uint64
}

// readField decodes one varint that is part of a record already started.
func readField(r io.ByteReader, file, field string) (uint64, error) {
	n, err := varint.Read(r)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, varint.ErrTruncated) {
		return 0, apperrors.Corruptf("%s: truncated %s", file, field)
	}
	if errors.Is(err, varint.ErrOverflow) {
		return 0, apperrors.Corruptf("%s: %s overflows", file, field)
	}
	return 0, fmt.Errorf("reading %s %s: %w", file, field, err)
}

// readString reads a length-prefixed byte string whose length has already
// been decoded. limit bounds the length to the bytes left in the file.
func readString(r io.Reader, n uint64, limit int64, file, field string) (string, error) {
	if n > uint64(limit) {
		return "", apperrors.Corruptf("%s: %s length %d exceeds file size", file, field, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", apperrors.Corruptf("%s: truncated %s", file, field)
		}
		return "", fmt.Errorf("reading %s %s: %w", file, field, err)
	}
	return string(buf), nil
}

// ReadStats loads info.bin from dir.
func ReadStats(dir string) (Stats, error) {
	data, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		return Stats{}, fmt.Errorf("reading index statistics: %w", err)
	}
	docCount, n, err := varint.Decode(data)
	if err != nil {
		return Stats{}, apperrors.Corruptf("%s: document count: %v", InfoFile, err)
	}
	totalTokens, m, err := varint.Decode(data[n:])
	if err != nil {
		return Stats{}, apperrors.Corruptf("%s: token count: %v", InfoFile, err)
	}
	if n+m != len(data) {
		return Stats{}, apperrors.Corruptf("%s: %d trailing bytes", InfoFile, len(data)-n-m)
	}
	return Stats{DocCount: docCount, TotalTokens: totalTokens}, nil
}
