// Package span provides zero-copy bounded views over an immutable byte
// buffer, plus the little-endian/big-endian integer decoding the rest of
// the disassembler builds on.
package span

import (
	"fmt"
)

// Bytes is an immutable, bounds-checked view over a byte buffer. The zero
// value is an empty view. Slicing a Bytes never copies the backing array.
type Bytes struct {
	data []byte
}

// New wraps a byte slice. The caller must not mutate data afterwards.
func New(data []byte) Bytes {
	return Bytes{data: data}
}

// Len returns the number of bytes in the view.
func (b Bytes) Len() int { return len(b.data) }

// At returns the byte at position i.
func (b Bytes) At(i int) byte { return b.data[i] }

// Bytes returns the raw backing slice. Callers must treat it as read-only.
func (b Bytes) Bytes() []byte { return b.data }

// Sub returns the bounded view [from, from+n). It panics if the range is
// out of bounds, mirroring slice semantics.
func (b Bytes) Sub(from, n int) Bytes {
	return Bytes{data: b.data[from : from+n]}
}

// From returns the view starting at offset from, running to the end.
func (b Bytes) From(from int) Bytes {
	return Bytes{data: b.data[from:]}
}

// TrySub is the checked counterpart of Sub, returning an error instead of
// panicking when the requested range runs past the end of the buffer.
func (b Bytes) TrySub(from, n int) (Bytes, error) {
	if from < 0 || n < 0 || from+n > len(b.data) {
		return Bytes{}, fmt.Errorf("span: range [%d,%d) out of bounds (len=%d)", from, from+n, len(b.data))
	}
	return b.Sub(from, n), nil
}

// DecodeLE decodes the view as an unsigned little-endian integer. Views
// longer than 8 bytes are rejected.
func DecodeLE(b Bytes) (uint64, error) {
	if b.Len() > 8 {
		return 0, fmt.Errorf("span: %d-byte little-endian read too wide", b.Len())
	}
	var result uint64
	for i, v := range b.data {
		result |= uint64(v) << (8 * uint(i))
	}
	return result, nil
}

// DecodeBE decodes the view as an unsigned big-endian integer. Views
// longer than 8 bytes are rejected.
func DecodeBE(b Bytes) (uint64, error) {
	if b.Len() > 8 {
		return 0, fmt.Errorf("span: %d-byte big-endian read too wide", b.Len())
	}
	var result uint64
	for _, v := range b.data {
		result = (result << 8) | uint64(v)
	}
	return result, nil
}

// SignExtend treats value as a two's-complement integer occupying the low
// bits bits of a 32-bit word, and sign-extends it to a full int32.
func SignExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

// CString reads a NUL-terminated string starting at offset, failing if
// the terminator is never found within the buffer.
func CString(b Bytes, offset int) (string, error) {
	if offset < 0 || offset >= b.Len() {
		return "", fmt.Errorf("span: string offset %d out of bounds (len=%d)", offset, b.Len())
	}
	end := offset
	for end < b.Len() && b.data[end] != 0 {
		end++
	}
	if end >= b.Len() {
		return "", fmt.Errorf("span: unterminated string starting at offset %d", offset)
	}
	return string(b.data[offset:end]), nil
}
