// Package buffer provides a write-coalescing wrapper around a rope.
//
// Most of the cost of editing a rope comes from locating the edit point and
// the bookkeeping involved in splicing a node. Because real editing sessions
// are overwhelmingly sequential (typing, backspacing), batching adjacent
// edits into a single rope operation amortizes that cost dramatically. Buffer
// holds at most one pending operation and merges new edits into it whenever
// they're adjacent or otherwise compatible; anything else forces a flush.
//
// Buffer is not safe for concurrent use — exactly one goroutine may hold a
// *Buffer at a time. Go has no borrow checker, so unlike the reference
// implementation this wrapping needs no interior-mutability cell; a plain
// pointer receiver is enough to express "at most one mutator at a time".
package buffer

import (
	"github.com/tekugo/gorope/rope"
	"github.com/tekugo/gorope/strutil"
)

type opKind int

const (
	opNone opKind = iota
	opInsert
	opDelete
)

// Buffer wraps a rope.Rope, batching adjacent inserts and deletes.
type Buffer struct {
	rope *rope.Rope

	kind    opKind
	insText string
	start   int
	end     int // exclusive; for opInsert this is start+len(insText) in chars
}

// New returns an empty coalescing buffer.
func New() *Buffer {
	return WithRope(rope.New())
}

// NewFromString returns a coalescing buffer initialized with s.
func NewFromString(s string) *Buffer {
	return WithRope(rope.NewFromString(s))
}

// WithRope wraps an existing rope. The buffer takes ownership of r; callers
// should not mutate r directly afterward except through the returned Buffer
// (see Rope to get it back with any pending edit flushed).
func WithRope(r *rope.Rope) *Buffer {
	return &Buffer{rope: r}
}

func (b *Buffer) isEmpty() bool { return b.kind == opNone }

func (b *Buffer) clear() {
	b.kind = opNone
	b.insText = ""
	b.start = 0
	b.end = 0
}

// flush applies any pending operation to the underlying rope.
func (b *Buffer) flush() {
	switch b.kind {
	case opInsert:
		b.rope.Insert(b.start, b.insText)
	case opDelete:
		b.rope.Remove(b.start, b.end-b.start)
	}
	b.clear()
}

// tryAppend attempts to merge (kind, start, end, text) into the pending op.
// It reports whether the merge succeeded; on failure the caller must flush
// and retry against an empty buffer.
func (b *Buffer) tryAppend(kind opKind, start, end int, text string) bool {
	if b.isEmpty() {
		b.kind = kind
		b.start = start
		b.end = end
		b.insText = text
		return true
	}

	switch {
	case b.kind == opInsert && kind == opInsert && start == b.end:
		// Adjacent insert right after the pending one: just append.
		b.insText += text
		b.end += strutil.CountChars(text)
		return true

	case b.kind == opInsert && kind == opDelete && end == b.end && start >= b.start:
		// A delete that trims the tail of the pending insert.
		if start == b.start {
			b.clear()
			return true
		}
		charOffset := start - b.start
		var byteOffset int
		if b.end-b.start == len(b.insText) {
			byteOffset = charOffset // pure ASCII: char offset == byte offset
		} else {
			byteOffset = strutil.CharToByte(b.insText, charOffset)
		}
		b.end = start
		b.insText = b.insText[:byteOffset]
		return true

	case b.kind == opDelete && kind == opDelete && start <= b.start && end >= b.start:
		// A delete that overlaps or touches the pending delete's start: the
		// two deletions describe one contiguous removed range.
		b.end += end - b.start
		b.start = start
		return true

	default:
		return false
	}
}

func (b *Buffer) pushOp(kind opKind, start, end int, text string) {
	if !b.tryAppend(kind, start, end, text) {
		b.flush()
		if !b.tryAppend(kind, start, end, text) {
			panic("buffer: internal inconsistency: op did not merge into an empty buffer")
		}
	}
}

// Insert buffers an insertion of text at character offset pos. Semantically
// equivalent to calling Insert directly on the underlying rope, except the
// edit may not reach the rope until a later flush.
func (b *Buffer) Insert(pos int, text string) {
	if text == "" {
		return
	}
	b.pushOp(opInsert, pos, pos+strutil.CountChars(text), text)
}

// Remove buffers removal of the nChars characters starting at pos.
func (b *Buffer) Remove(pos, nChars int) {
	if nChars == 0 {
		return
	}
	b.pushOp(opDelete, pos, pos+nChars, "")
}

// LenChars returns the buffer's logical character length in O(1), without
// flushing.
func (b *Buffer) LenChars() int {
	switch b.kind {
	case opInsert:
		return b.rope.LenChars() + (b.end - b.start)
	case opDelete:
		return b.rope.LenChars() - (b.end - b.start)
	default:
		return b.rope.LenChars()
	}
}

// LenBytes returns the buffer's logical byte length. Unlike LenChars this
// must flush first when the pending op is a delete, since the number of
// bytes removed can't be known without touching the rope.
func (b *Buffer) LenBytes() int {
	switch b.kind {
	case opInsert:
		return b.rope.LenBytes() + len(b.insText)
	case opDelete:
		b.flush()
		return b.rope.LenBytes()
	default:
		return b.rope.LenBytes()
	}
}

// Rope flushes any pending edit and returns the underlying rope. Further
// calls through Buffer remain valid; the returned rope is a live reference,
// not a copy, so mutating it directly bypasses coalescing.
func (b *Buffer) Rope() *rope.Rope {
	b.flush()
	return b.rope
}

// String flushes and returns the buffer's full content.
func (b *Buffer) String() string {
	return b.Rope().String()
}

// Equal flushes and reports whether the buffer's content is exactly s.
func (b *Buffer) Equal(s string) bool {
	return b.Rope().Equal(s)
}
