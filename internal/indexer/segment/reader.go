package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/varint"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// countingReader tracks how many bytes have been consumed.
type countingReader struct {
	r      *bufio.Reader
	offset int64
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.offset++
	}
	return b, err
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.offset += int64(n)
	return n, err
}

func (c *countingReader) discard(n uint64) (int, error) {
	discarded, err := c.r.Discard(int(n))
	c.offset += int64(discarded)
	return discarded, err
}

func openSized(dir, name string) (*os.File, int64, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return f, info.Size(), nil
}

// Dictionary scans term.bin sequentially.
type Dictionary struct {
	file *os.File
	size int64
	r    *countingReader
}

func OpenDictionary(dir string) (*Dictionary, error) {
	f, size, err := openSized(dir, TermFile)
	if err != nil {
		return nil, err
	}
	return &Dictionary{
		file: f,
		size: size,
		r:    &countingReader{r: bufio.NewReader(f)},
	}, nil
}

// Next returns the next record, or io.EOF after the last complete one.
func (d *Dictionary) Next() (DictEntry, error) {
	termLen, err := varint.Read(d.r)
	if errors.Is(err, io.EOF) {
		return DictEntry{}, io.EOF
	}
	if err != nil {
		return DictEntry{}, apperrors.Corruptf("%s: term length at offset %d: %v", TermFile, d.r.offset, err)
	}
	term, err := readString(d.r, termLen, d.size-d.r.offset, TermFile, "term")
	if err != nil {
		return DictEntry{}, err
	}
	entry := DictEntry{Term: term}
	if entry.Count, err = readField(d.r, TermFile, "posting count"); err != nil {
		return DictEntry{}, err
	}
	if entry.PostingOffset, err = readField(d.r, TermFile, "posting offset"); err != nil {
		return DictEntry{}, err
	}
	if entry.PositionOffset, err = readField(d.r, TermFile, "position offset"); err != nil {
		return DictEntry{}, err
	}
	if entry.Count == 0 {
		return DictEntry{}, apperrors.Corruptf("%s: term %q has an empty posting block", TermFile, term)
	}
	return entry, nil
}

func (d *Dictionary) Close() error {
	return d.file.Close()
}

// Tables gives random access to the posting and position blocks named by
// dictionary entries.
type Tables struct {
	postings     *os.File
	postingSize  int64
	positions    *os.File
	positionSize int64
	postBuf      *bufio.Reader
	posBuf       *bufio.Reader
}

func OpenTables(dir string) (*Tables, error) {
	postings, postingSize, err := openSized(dir, PostingFile)
	if err != nil {
		return nil, err
	}
	positions, positionSize, err := openSized(dir, PositionFile)
	if err != nil {
		postings.Close()
		return nil, err
	}
	return &Tables{
		postings:     postings,
		postingSize:  postingSize,
		positions:    positions,
		positionSize: positionSize,
		postBuf:      bufio.NewReader(postings),
		posBuf:       bufio.NewReader(positions),
	}, nil
}

func (t *Tables) postingBlock(entry DictEntry) (*bufio.Reader, error) {
	if entry.PostingOffset >= uint64(t.postingSize) {
		return nil, apperrors.Corruptf("%s: offset %d for term %q beyond end of file", PostingFile, entry.PostingOffset, entry.Term)
	}
	off := int64(entry.PostingOffset)
	t.postBuf.Reset(io.NewSectionReader(t.postings, off, t.postingSize-off))
	return t.postBuf, nil
}

func (t *Tables) positionBlock(entry DictEntry) (*bufio.Reader, error) {
	if entry.PositionOffset >= uint64(t.positionSize) {
		return nil, apperrors.Corruptf("%s: offset %d for term %q beyond end of file", PositionFile, entry.PositionOffset, entry.Term)
	}
	off := int64(entry.PositionOffset)
	t.posBuf.Reset(io.NewSectionReader(t.positions, off, t.positionSize-off))
	return t.posBuf, nil
}

// nextPosting decodes the posting following prev. first marks the start of
// a block, where the delta is the raw DocID.
func nextPosting(r io.ByteReader, prev uint64, first bool) (index.Posting, error) {
	delta, err := readField(r, PostingFile, "document delta")
	if err != nil {
		return index.Posting{}, err
	}
	if !first && delta == 0 {
		return index.Posting{}, apperrors.Corruptf("%s: document ids not increasing after %d", PostingFile, prev)
	}
	docID := prev + delta
	if docID < prev {
		return index.Posting{}, apperrors.Corruptf("%s: document id overflows", PostingFile)
	}
	freq, err := readField(r, PostingFile, "term frequency")
	if err != nil {
		return index.Posting{}, err
	}
	if freq == 0 {
		return index.Posting{}, apperrors.Corruptf("%s: zero term frequency for document %d", PostingFile, docID)
	}
	return index.Posting{DocID: docID, Frequency: freq}, nil
}

// ReadPostings decodes the posting block of entry in DocID order.
func (t *Tables) ReadPostings(entry DictEntry, fn func(index.Posting) error) error {
	r, err := t.postingBlock(entry)
	if err != nil {
		return err
	}
	var prev uint64
	for i := uint64(0); i < entry.Count; i++ {
		p, err := nextPosting(r, prev, i == 0)
		if err != nil {
			return err
		}
		prev = p.DocID
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadPositions walks the posting and position blocks of entry together.
// Line numbers of documents accepted by keep are passed to fn; the others
// are decoded and skipped.
func (t *Tables) ReadPositions(entry DictEntry, keep func(docID uint64) bool, fn func(docID, line uint64)) error {
	postings, err := t.postingBlock(entry)
	if err != nil {
		return err
	}
	positions, err := t.positionBlock(entry)
	if err != nil {
		return err
	}
	var prev uint64
	for i := uint64(0); i < entry.Count; i++ {
		p, err := nextPosting(postings, prev, i == 0)
		if err != nil {
			return err
		}
		prev = p.DocID
		wanted := keep(p.DocID)
		var line uint64
		for j := uint64(0); j < p.Frequency; j++ {
			delta, err := readField(positions, PositionFile, "line delta")
			if err != nil {
				return err
			}
			line += delta
			if wanted {
				fn(p.DocID, line)
			}
		}
	}
	return nil
}

func (t *Tables) Close() error {
	errPost := t.postings.Close()
	errPos := t.positions.Close()
	return errors.Join(errPost, errPos)
}

// DocRecord locates a doc.bin record without materialising its path.
type DocRecord struct {
	DocID  uint64
	Length uint64
	Offset int64
}

// Docs reads doc.bin.
type Docs struct {
	file *os.File
	size int64
}

func OpenDocs(dir string) (*Docs, error) {
	f, size, err := openSized(dir, DocFile)
	if err != nil {
		return nil, err
	}
	return &Docs{file: f, size: size}, nil
}

// Scan visits every record in DocID order, skipping over paths. Records
// must carry consecutive ids starting at zero.
func (d *Docs) Scan(fn func(DocRecord) error) error {
	r := &countingReader{r: bufio.NewReader(io.NewSectionReader(d.file, 0, d.size))}
	for expected := uint64(0); ; expected++ {
		offset := r.offset
		docID, err := varint.Read(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperrors.Corruptf("%s: document id at offset %d: %v", DocFile, offset, err)
		}
		if docID != expected {
			return apperrors.Corruptf("%s: expected document %d, found %d", DocFile, expected, docID)
		}
		length, err := readField(r, DocFile, "document length")
		if err != nil {
			return err
		}
		pathLen, err := readField(r, DocFile, "path length")
		if err != nil {
			return err
		}
		if pathLen > uint64(d.size-r.offset) {
			return apperrors.Corruptf("%s: truncated path of document %d", DocFile, docID)
		}
		if _, err := r.discard(pathLen); err != nil {
			return apperrors.Corruptf("%s: truncated path of document %d", DocFile, docID)
		}
		if err := fn(DocRecord{DocID: docID, Length: length, Offset: offset}); err != nil {
			return err
		}
	}
}

// ReadAt decodes the full record starting at offset.
func (d *Docs) ReadAt(offset int64) (index.Document, error) {
	if offset < 0 || offset >= d.size {
		return index.Document{}, apperrors.Corruptf("%s: record offset %d out of range", DocFile, offset)
	}
	r := &countingReader{r: bufio.NewReader(io.NewSectionReader(d.file, offset, d.size-offset))}
	var doc index.Document
	var err error
	if doc.DocID, err = readField(r, DocFile, "document id"); err != nil {
		return index.Document{}, err
	}
	if doc.Length, err = readField(r, DocFile, "document length"); err != nil {
		return index.Document{}, err
	}
	pathLen, err := readField(r, DocFile, "path length")
	if err != nil {
		return index.Document{}, err
	}
	if doc.Path, err = readString(r, pathLen, d.size-offset-r.offset, DocFile, "path"); err != nil {
		return index.Document{}, err
	}
	return doc, nil
}

func (d *Docs) Close() error {
	return d.file.Close()
}
