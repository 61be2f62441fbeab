// Package varint implements the variable-length integer encoding used by
// every integer field of the on-disk index: little-endian groups of 7 bits,
// least-significant group first, with the high bit of every byte except the
// last set as a continuation marker.
package varint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxLen is the longest encoding of a uint64.
const MaxLen = binary.MaxVarintLen64

var (
	// ErrTruncated is returned when the input ends in the middle of a value.
	ErrTruncated = errors.New("varint: truncated value")
	// ErrOverflow is returned when a value does not fit in 64 bits.
	ErrOverflow = errors.New("varint: value overflows uint64")
)

// Encode returns the encoding of n.
func Encode(n uint64) []byte {
	return Append(make([]byte, 0, 4), n)
}

// Append appends the encoding of n to dst and returns the extended slice.
func Append(dst []byte, n uint64) []byte {
	return binary.AppendUvarint(dst, n)
}

// Write encodes n to w and reports the number of bytes written.
func Write(w io.Writer, n uint64) (int, error) {
	var buf [MaxLen]byte
	size := binary.PutUvarint(buf[:], n)
	written, err := w.Write(buf[:size])
	if err != nil {
		return written, fmt.Errorf("writing varint: %w", err)
	}
	return written, nil
}

// Read decodes one value from r. It returns io.EOF only when r is exhausted
// before the first byte; running out of input mid-value yields ErrTruncated.
func Read(r io.ByteReader) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, ErrTruncated
	default:
		return 0, fmt.Errorf("%w: %v", ErrOverflow, err)
	}
}

// Decode decodes one value from the front of buf and returns it with the
// number of bytes consumed.
func Decode(buf []byte) (uint64, int, error) {
	n, size := binary.Uvarint(buf)
	switch {
	case size > 0:
		return n, size, nil
	case size == 0:
		return 0, 0, ErrTruncated
	default:
		return 0, 0, ErrOverflow
	}
}
