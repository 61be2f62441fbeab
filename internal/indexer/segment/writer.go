package segment

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/varint"
)

// appendFile is a buffered append-only file that tracks its write offset.
type appendFile struct {
	name    string
	file    *os.File
	buf     *bufio.Writer
	offset  uint64
	scratch []byte
}

func createAppendFile(dir, name string) (*appendFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &appendFile{
		name:    name,
		file:    f,
		buf:     bufio.NewWriter(f),
		scratch: make([]byte, 0, varint.MaxLen),
	}, nil
}

func (a *appendFile) writeUint(n uint64) error {
	a.scratch = varint.Append(a.scratch[:0], n)
	return a.write(a.scratch)
}

func (a *appendFile) write(p []byte) error {
	written, err := a.buf.Write(p)
	a.offset += uint64(written)
	if err != nil {
		return fmt.Errorf("writing %s: %w", a.name, err)
	}
	return nil
}

func (a *appendFile) flush() error {
	if err := a.buf.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", a.name, err)
	}
	return nil
}

func (a *appendFile) close() error {
	if err := a.flush(); err != nil {
		a.file.Close()
		return err
	}
	if err := a.file.Sync(); err != nil {
		a.file.Close()
		return fmt.Errorf("syncing %s: %w", a.name, err)
	}
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", a.name, err)
	}
	return nil
}

// SegmentStats summarises one flushed segment.
type SegmentStats struct {
	Terms     int
	Postings  int
	Positions int
}

// Writer serialises documents and segments into a fresh set of index files.
// Creating a Writer truncates any files already present in dir.
type Writer struct {
	dir       string
	docs      *appendFile
	terms     *appendFile
	postings  *appendFile
	positions *appendFile
}

// NewWriter creates empty doc, term, posting and position files in dir.
// info.bin is written by Finish.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	w := &Writer{dir: dir}
	var err error
	for _, target := range []struct {
		file **appendFile
		name string
	}{
		{&w.docs, DocFile},
		{&w.terms, TermFile},
		{&w.postings, PostingFile},
		{&w.positions, PositionFile},
	} {
		if *target.file, err = createAppendFile(dir, target.name); err != nil {
			w.Abort()
			return nil, err
		}
	}
	return w, nil
}

// WriteDocument appends one doc.bin record and pushes it to the file.
func (w *Writer) WriteDocument(doc index.Document) error {
	if err := w.docs.writeUint(doc.DocID); err != nil {
		return err
	}
	if err := w.docs.writeUint(doc.Length); err != nil {
		return err
	}
	if err := w.docs.writeUint(uint64(len(doc.Path))); err != nil {
		return err
	}
	if err := w.docs.write([]byte(doc.Path)); err != nil {
		return err
	}
	return w.docs.flush()
}

// WriteSegment appends one dictionary record per entry, followed by that
// entry's delta-encoded posting and position blocks. Entries are written in
// the order given.
func (w *Writer) WriteSegment(entries []index.TermEntry) (SegmentStats, error) {
	var stats SegmentStats
	for _, entry := range entries {
		if err := w.writeTermRecord(entry); err != nil {
			return stats, fmt.Errorf("writing term %q: %w", entry.Term, err)
		}
		stats.Terms++
		stats.Postings += len(entry.Postings)
		stats.Positions += len(entry.Positions)
	}
	for _, f := range []*appendFile{w.terms, w.postings, w.positions} {
		if err := f.flush(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (w *Writer) writeTermRecord(entry index.TermEntry) error {
	var expected uint64
	for _, p := range entry.Postings {
		expected += p.Frequency
	}
	if expected != uint64(len(entry.Positions)) {
		return fmt.Errorf("term frequencies sum to %d but %d positions recorded", expected, len(entry.Positions))
	}

	if err := w.terms.writeUint(uint64(len(entry.Term))); err != nil {
		return err
	}
	if err := w.terms.write([]byte(entry.Term)); err != nil {
		return err
	}
	for _, n := range []uint64{uint64(len(entry.Postings)), w.postings.offset, w.positions.offset} {
		if err := w.terms.writeUint(n); err != nil {
			return err
		}
	}

	var prevDoc uint64
	pos := 0
	for _, p := range entry.Postings {
		if err := w.postings.writeUint(p.DocID - prevDoc); err != nil {
			return err
		}
		if err := w.postings.writeUint(p.Frequency); err != nil {
			return err
		}
		prevDoc = p.DocID

		var prevLine uint64
		for i := uint64(0); i < p.Frequency; i++ {
			line := entry.Positions[pos]
			if err := w.positions.writeUint(line - prevLine); err != nil {
				return err
			}
			prevLine = line
			pos++
		}
	}
	return nil
}

// Finish writes info.bin and closes every file.
func (w *Writer) Finish(stats Stats) error {
	for _, f := range []*appendFile{w.docs, w.terms, w.postings, w.positions} {
		if err := f.close(); err != nil {
			w.Abort()
			return err
		}
	}
	info, err := createAppendFile(w.dir, InfoFile)
	if err != nil {
		return err
	}
	if err := info.writeUint(stats.DocCount); err != nil {
		info.file.Close()
		return err
	}
	if err := info.writeUint(stats.TotalTokens); err != nil {
		info.file.Close()
		return err
	}
	return info.close()
}

// Abort closes the files without flushing buffered data.
func (w *Writer) Abort() {
	for _, f := range []*appendFile{w.docs, w.terms, w.postings, w.positions} {
		if f != nil {
			f.file.Close()
		}
	}
}
