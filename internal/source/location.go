package source

import (
	"fmt"
)

const (
	bufferIDBits = 28
	offsetBits   = 36
	offsetMask   = (uint64(1) << offsetBits) - 1

	// MaxBuffers is the number of distinct buffers a manager can hand out.
	MaxBuffers = (1 << bufferIDBits) - 1

	// MaxOffset is the largest byte offset representable inside one buffer.
	MaxOffset = offsetMask
)

// BufferID identifies one buffer inside a SourceManager. IDs are handed out
// monotonically and never reused. The zero value means "no buffer".
type BufferID uint32

// NoBuffer is the reserved "no buffer" identity.
const NoBuffer BufferID = 0

// Valid reports whether the ID refers to an actual buffer.
func (b BufferID) Valid() bool {
	return b != NoBuffer
}

func (b BufferID) String() string {
	if !b.Valid() {
		return "buf<none>"
	}
	return fmt.Sprintf("buf%d", uint32(b))
}

// SourceLocation is a position inside a buffer, packed into a single
// comparable word: the buffer ID in the upper 28 bits and the byte offset in
// the lower 36. Packing the buffer in the high bits makes the natural uint64
// ordering sort first by buffer, then by offset.
type SourceLocation uint64

// NoLocation is the distinguished "no location" value.
const NoLocation SourceLocation = 0

// NewSourceLocation packs a buffer and byte offset into a location.
// Offsets beyond MaxOffset cannot be represented and panic.
func NewSourceLocation(buffer BufferID, offset uint64) SourceLocation {
	if buffer > MaxBuffers {
		panic(fmt.Errorf("buffer id %d exceeds representable maximum %d", uint32(buffer), MaxBuffers))
	}
	if offset > MaxOffset {
		panic(fmt.Errorf("source offset %d exceeds representable maximum %d", offset, uint64(MaxOffset)))
	}
	return SourceLocation(uint64(buffer)<<offsetBits | offset)
}

// Buffer returns the buffer the location points into.
func (l SourceLocation) Buffer() BufferID {
	return BufferID(uint64(l) >> offsetBits)
}

// Offset returns the byte offset within the buffer.
func (l SourceLocation) Offset() uint64 {
	return uint64(l) & offsetMask
}

// Valid reports whether the location points into an actual buffer.
func (l SourceLocation) Valid() bool {
	return l.Buffer().Valid()
}

// Add returns a location delta bytes further into the same buffer. It is
// used to point at a specific character inside a multi-character token.
func (l SourceLocation) Add(delta int64) SourceLocation {
	off := int64(l.Offset()) + delta
	if off < 0 || uint64(off) > MaxOffset {
		panic(fmt.Errorf("source offset adjustment by %d leaves buffer bounds", delta))
	}
	return NewSourceLocation(l.Buffer(), uint64(off))
}

func (l SourceLocation) String() string {
	if !l.Valid() {
		return "<no location>"
	}
	return fmt.Sprintf("%s:%d", l.Buffer(), l.Offset())
}

// SourceRange is a pair of locations. Expansion ranges legitimately span
// buffers other than the one their text was spelled in, so no same-buffer
// invariant is enforced here.
type SourceRange struct {
	Start SourceLocation
	End   SourceLocation
}

// NoRange is the empty range.
var NoRange = SourceRange{}

// NewSourceRange forms a range from two locations.
func NewSourceRange(start, end SourceLocation) SourceRange {
	return SourceRange{Start: start, End: end}
}

// RangeAt forms a range of length bytes starting at loc.
func RangeAt(loc SourceLocation, length uint64) SourceRange {
	if length > MaxOffset {
		panic(fmt.Errorf("source range length %d exceeds representable maximum", length))
	}
	return SourceRange{Start: loc, End: loc.Add(int64(length))}
}

// Valid reports whether both endpoints point into actual buffers.
func (r SourceRange) Valid() bool {
	return r.Start.Valid() && r.End.Valid()
}

func (r SourceRange) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}
