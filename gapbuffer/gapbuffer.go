// Package gapbuffer implements a fixed-capacity UTF-8 gap buffer: a leaf node
// for the rope package.
//
// Unlike a conventional gap buffer this one never reallocates — it is handed
// a fixed capacity at construction and reports ErrNoRoom when an insertion
// would overflow it. That failure is ordinary control flow, not a defect: the
// rope package uses it to decide when a leaf must split. A gap buffer also
// tracks, alongside its raw byte gap, how many Unicode scalar values and UTF-16
// surrogate pairs sit in the prefix before the gap, so higher layers can
// translate between byte, char and UTF-16 coordinates without rescanning the
// whole leaf on every lookup.
package gapbuffer

import (
	"errors"

	"github.com/tekugo/gorope/strutil"
)

// ErrNoRoom is returned by TryInsert when the gap is too small to hold the
// inserted text. This is the normal signal a rope uses to split a leaf; it is
// never a programming error.
var ErrNoRoom = errors.New("gapbuffer: insufficient room in gap")

// Buffer is a fixed-capacity gap buffer holding valid UTF-8.
//
// data has constant length (the buffer's capacity) for its entire lifetime.
// [0, gapStartBytes) and [gapStartBytes+gapLen, len(data)) are the two live
// halves; the bytes in between are the gap and are not meaningful content.
type Buffer struct {
	data []byte

	gapStartBytes int
	gapLen        int

	// gapStartChars and gapStartSurrogatePairs cache the scalar and
	// surrogate-pair counts of data[:gapStartBytes], so CountBytes and the
	// rope's positional lookups don't need to rescan the prefix.
	gapStartChars          int
	gapStartSurrogatePairs int

	// allASCII is true as long as nothing but single-byte scalars has ever
	// been inserted. It lets CountBytes and char/byte conversions skip
	// scanning entirely for the (extremely common) pure-ASCII case.
	allASCII bool
}

// New returns an empty gap buffer with the given fixed byte capacity.
func New(capacity int) *Buffer {
	if capacity < 0 {
		panic("gapbuffer: negative capacity")
	}
	return &Buffer{
		data:     make([]byte, capacity),
		gapLen:   capacity,
		allASCII: true,
	}
}

// NewFromString returns a gap buffer of the given capacity pre-populated with
// s, with the gap positioned immediately after s. Panics if s does not fit in
// capacity bytes.
func NewFromString(s string, capacity int) *Buffer {
	if len(s) > capacity {
		panic("gapbuffer: initial content exceeds capacity")
	}
	b := New(capacity)
	copy(b.data, s)
	b.gapStartBytes = len(s)
	b.gapLen = capacity - len(s)
	b.gapStartChars = strutil.CountChars(s)
	b.gapStartSurrogatePairs = strutil.CountSurrogates(s)
	b.allASCII = b.gapStartChars == len(s)
	return b
}

// Capacity returns the fixed byte capacity of the buffer.
func (b *Buffer) Capacity() int { return len(b.data) }

// LenBytes returns the number of live content bytes (excluding the gap).
func (b *Buffer) LenBytes() int { return len(b.data) - b.gapLen }

// IsEmpty reports whether the buffer holds no content.
func (b *Buffer) IsEmpty() bool { return b.LenBytes() == 0 }

// RoomBytes returns how many more bytes can currently be inserted without the
// buffer needing to split.
func (b *Buffer) RoomBytes() int { return b.gapLen }

// prefix returns the live bytes before the gap.
func (b *Buffer) prefix() []byte { return b.data[:b.gapStartBytes] }

// suffix returns the live bytes after the gap.
func (b *Buffer) suffix() []byte { return b.data[b.gapStartBytes+b.gapLen:] }

// StartAsStr returns the live bytes before the gap as a string. The returned
// string is a copy and is unaffected by later mutations of the buffer.
func (b *Buffer) StartAsStr() string { return string(b.prefix()) }

// EndAsStr returns the live bytes after the gap as a string, copied like
// StartAsStr's result.
func (b *Buffer) EndAsStr() string { return string(b.suffix()) }

// String returns the full logical content of the buffer.
func (b *Buffer) String() string {
	out := make([]byte, 0, b.LenBytes())
	out = append(out, b.prefix()...)
	out = append(out, b.suffix()...)
	return string(out)
}

// LenChars returns the number of Unicode scalar values in the buffer.
func (b *Buffer) LenChars() int {
	if b.allASCII {
		return b.LenBytes()
	}
	return b.gapStartChars + strutil.CountChars(b.EndAsStr())
}

// LenSurrogatePairs returns the number of UTF-16 surrogate pairs the buffer's
// content would produce if re-encoded as UTF-16.
func (b *Buffer) LenSurrogatePairs() int {
	if b.allASCII {
		return 0
	}
	return b.gapStartSurrogatePairs + strutil.CountSurrogates(b.EndAsStr())
}

// GapStartChars returns the character offset the gap currently sits at. The
// rope package uses this to detect when an insertion can land directly in an
// already-positioned gap without moving it first.
func (b *Buffer) GapStartChars() int { return b.gapStartChars }

// CountSurrogatesUpTo returns the number of UTF-16 surrogate pairs in the
// buffer's content strictly before character offset posChars.
func (b *Buffer) CountSurrogatesUpTo(posChars int) int {
	if b.allASCII || posChars <= 0 {
		return 0
	}
	if posChars <= b.gapStartChars {
		byteOffset := strutil.CharToByte(b.StartAsStr(), posChars)
		return strutil.CountSurrogates(b.StartAsStr()[:byteOffset])
	}
	byteOffset := strutil.CharToByte(b.EndAsStr(), posChars-b.gapStartChars)
	return b.gapStartSurrogatePairs + strutil.CountSurrogates(b.EndAsStr()[:byteOffset])
}

// CharsForWCharOffset returns the character offset within the buffer's
// content corresponding to UTF-16 code unit offset wOffset from its start.
func (b *Buffer) CharsForWCharOffset(wOffset int) int {
	prefix := b.StartAsStr()
	prefixUnits := b.gapStartChars + b.gapStartSurrogatePairs
	if wOffset <= prefixUnits {
		return strutil.UTF16UnitToChar(prefix, wOffset)
	}
	suffix := b.EndAsStr()
	return b.gapStartChars + strutil.UTF16UnitToChar(suffix, wOffset-prefixUnits)
}

// MoveGap relocates the gap so that gapStartBytes == byteOffset. byteOffset
// must land on a scalar boundary within [0, LenBytes()]; violating this
// panics, since it signals a corrupted caller-side index rather than a
// recoverable condition.
func (b *Buffer) MoveGap(byteOffset int) {
	used := b.LenBytes()
	if byteOffset < 0 || byteOffset > used {
		panic("gapbuffer: MoveGap offset out of range")
	}
	switch {
	case byteOffset < b.gapStartBytes:
		n := b.gapStartBytes - byteOffset
		if b.allASCII {
			b.gapStartChars -= n
		} else {
			moved := string(b.data[byteOffset:b.gapStartBytes])
			b.gapStartChars -= strutil.CountChars(moved)
			b.gapStartSurrogatePairs -= strutil.CountSurrogates(moved)
		}
		copy(b.data[b.gapStartBytes+b.gapLen-n:b.gapStartBytes+b.gapLen], b.data[byteOffset:b.gapStartBytes])
		b.gapStartBytes = byteOffset
	case byteOffset > b.gapStartBytes:
		n := byteOffset - b.gapStartBytes
		copy(b.data[b.gapStartBytes:b.gapStartBytes+n], b.data[b.gapStartBytes+b.gapLen:b.gapStartBytes+b.gapLen+n])
		moved := b.data[b.gapStartBytes : b.gapStartBytes+n]
		if !b.allASCII {
			b.gapStartChars += strutil.CountChars(string(moved))
			b.gapStartSurrogatePairs += strutil.CountSurrogates(string(moved))
		} else {
			b.gapStartChars += n
		}
		b.gapStartBytes = byteOffset
	}
	if end := b.gapStartBytes + b.gapLen; end < len(b.data) && b.data[end]&0xC0 == 0x80 {
		panic("gapbuffer: MoveGap landed inside a UTF-8 scalar")
	}
}

// InsertInGap copies s into the gap at its current start, growing the live
// prefix by len(s) bytes. Panics if s does not fit in the remaining gap —
// callers that want the normal fallible path should use TryInsert.
func (b *Buffer) InsertInGap(s string) {
	if len(s) > b.gapLen {
		panic("gapbuffer: InsertInGap overflows the gap")
	}
	copy(b.data[b.gapStartBytes:], s)
	nChars := strutil.CountChars(s)
	if b.allASCII && nChars != len(s) {
		b.allASCII = false
	}
	b.gapStartChars += nChars
	b.gapStartSurrogatePairs += strutil.CountSurrogates(s)
	b.gapStartBytes += len(s)
	b.gapLen -= len(s)
}

// TryInsert moves the gap to byteOffset and inserts s there. It returns
// ErrNoRoom — not a panic — when s does not fit in the gap; this is the
// ordinary signal that the caller must split the leaf.
func (b *Buffer) TryInsert(byteOffset int, s string) error {
	if len(s) > b.gapLen {
		return ErrNoRoom
	}
	b.MoveGap(byteOffset)
	b.InsertInGap(s)
	return nil
}

// CountBytes returns the byte offset corresponding to character offset
// posChars within the buffer's current content.
func (b *Buffer) CountBytes(posChars int) int {
	if b.allASCII {
		return posChars
	}
	if posChars <= b.gapStartChars {
		return strutil.CharToByte(b.StartAsStr(), posChars)
	}
	return b.gapStartBytes + strutil.CharToByte(b.EndAsStr(), posChars-b.gapStartChars)
}

// RemoveChars removes exactly nChars scalars starting at character offset
// posChars and returns the number of bytes removed.
func (b *Buffer) RemoveChars(posChars, nChars int) int {
	if nChars == 0 {
		return 0
	}
	startByte := b.CountBytes(posChars)
	endByte := b.CountBytes(posChars + nChars)
	b.MoveGap(startByte)
	removed := endByte - startByte
	// The gap now starts exactly at startByte; simply widen it to swallow
	// the removed run, which always lives immediately after the gap.
	// gapStartChars/Pairs describe the prefix only and are unaffected by
	// removing from the suffix.
	zeroFill(b.data[b.gapStartBytes+b.gapLen : b.gapStartBytes+b.gapLen+removed])
	b.gapLen += removed
	return removed
}

// TakeRest removes and returns everything in the buffer from byteOffset to
// the end. The vacated bytes are folded into the gap and zeroed.
func (b *Buffer) TakeRest(byteOffset int) string {
	b.MoveGap(byteOffset)
	rest := string(b.suffix())
	zeroFill(b.suffix())
	b.gapLen = len(b.data) - b.gapStartBytes
	return rest
}

// zeroFill overwrites freed gap bytes with zero, unconditionally. It has no
// effect on buffer semantics, since the gap region is never read as content;
// it exists only to make stale-read bugs visible rather than silently
// returning whatever content used to occupy that memory.
func zeroFill(bs []byte) {
	for i := range bs {
		bs[i] = 0
	}
}

// Check re-derives every cached counter from scratch and panics if any of
// them disagrees with the buffer's incremental bookkeeping. Intended for use
// from tests and from rope.Rope.Check.
func (b *Buffer) Check() {
	prefix := b.StartAsStr()
	suffix := b.EndAsStr()
	if !utf8Valid(prefix) || !utf8Valid(suffix) {
		panic("gapbuffer: invariant violation: gap splits a UTF-8 scalar")
	}
	wantChars := strutil.CountChars(prefix)
	if wantChars != b.gapStartChars {
		panic("gapbuffer: invariant violation: gapStartChars out of sync")
	}
	wantPairs := strutil.CountSurrogates(prefix)
	if wantPairs != b.gapStartSurrogatePairs {
		panic("gapbuffer: invariant violation: gapStartSurrogatePairs out of sync")
	}
	if b.allASCII {
		if strutil.CountChars(prefix+suffix) != len(prefix)+len(suffix) {
			panic("gapbuffer: invariant violation: allASCII hint is wrong")
		}
	}
	if b.LenBytes() > b.Capacity() {
		panic("gapbuffer: invariant violation: used exceeds capacity")
	}
}

func utf8Valid(s string) bool {
	for i := 0; i < len(s); {
		b0 := s[i]
		var l int
		switch {
		case b0&0x80 == 0x00:
			l = 1
		case b0&0xE0 == 0xC0:
			l = 2
		case b0&0xF0 == 0xE0:
			l = 3
		case b0&0xF8 == 0xF0:
			l = 4
		default:
			return false
		}
		if i+l > len(s) {
			return false
		}
		for k := 1; k < l; k++ {
			if s[i+k]&0xC0 != 0x80 {
				return false
			}
		}
		i += l
	}
	return true
}
