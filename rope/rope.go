// Package rope implements an editable sequence of Unicode text backed by a
// skip list of fixed-capacity gap-buffer leaves, giving O(log n) positional
// addressing for insert, delete and replace, in parallel byte, character and
// UTF-16-code-unit coordinate systems.
//
// A Rope is not safe for concurrent use. All mutating methods require
// exclusive access to the receiver; read-only methods may be called
// concurrently with each other as long as no mutation is in flight.
package rope

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"strings"

	"github.com/tekugo/gorope/gapbuffer"
	"github.com/tekugo/gorope/strutil"
)

// DefaultNodeCapacity is the byte capacity of each leaf's gap buffer. 392 was
// chosen, and is kept here, because it benchmarked close to optimal for
// typical editing workloads on 64-bit machines — the rope becomes less space
// efficient as this shrinks, and less time efficient (more nodes to walk) as
// it grows.
const DefaultNodeCapacity = 392

// MaxHeight bounds how tall any single node's skip tower can grow. The rope
// becomes less efficient once the content needs more than 2^MaxHeight nodes,
// which in practice never happens.
const MaxHeight = 20

// heightBias is, out of 256, the likelihood a node's tower grows one level
// taller. ~0.25 gives the usual skip-list performance characteristics.
const heightBias = 65

// node is one leaf of the rope, threaded into the skip list by nexts, a
// forward-pointer tower whose length is the node's height. nexts[i].node is
// the next node reachable at level i; nexts[i].skipChars / skipPairs record
// how many characters (respectively UTF-16 surrogate pairs) are skipped over
// by following that pointer, including this node's own content.
type node struct {
	leaf   *gapbuffer.Buffer
	height uint8
	nexts  []skipEntry
}

type skipEntry struct {
	node      *node
	skipChars int
	skipPairs int
}

// cursor names, for each level of the head's current tower, the node whose
// forward pointer at that level must be patched by the mutation in progress,
// and how far (in chars/pairs) the edit point lies past that node.
type cursor struct {
	entries    [MaxHeight + 1]skipEntry
	headHeight int
}

// Rope is an editable Unicode text buffer backed by a skip list of gap-buffer
// leaves. The zero value is not usable; construct one with New or one of its
// siblings.
type Rope struct {
	head         *node
	rng          *rand.Rand
	numBytes     int
	nodeCapacity int
}

// New returns an empty rope using DefaultNodeCapacity leaves, seeded
// deterministically so that tests and benchmarks reproduce exactly. Use
// NewFromEntropy for a rope whose node heights can't be predicted by an
// adversary feeding it crafted input.
func New() *Rope {
	return NewFromSeed(123)
}

// NewFromEntropy returns an empty rope whose skip-list height choices are
// seeded from a cryptographically random source, for callers who expose a
// rope to untrusted input and want the node-height distribution's worst case
// (an adversary who can predict heights can in principle degrade lookups
// toward O(n)) to be unpredictable.
func NewFromEntropy() *Rope {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("rope: failed to read entropy for NewFromEntropy: " + err.Error())
	}
	return newRope(rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:])))), DefaultNodeCapacity)
}

// NewFromSeed returns an empty rope whose node heights are drawn from a
// PRNG seeded deterministically from seed.
func NewFromSeed(seed int64) *Rope {
	return newRope(rand.New(rand.NewSource(seed)), DefaultNodeCapacity)
}

// NewWithCapacity is like New but overrides the leaf byte capacity, mainly so
// tests can exercise node-splitting behaviour without allocating megabytes of
// text.
func NewWithCapacity(nodeCapacity int) *Rope {
	return newRope(rand.New(rand.NewSource(123)), nodeCapacity)
}

func newRope(rng *rand.Rand, nodeCapacity int) *Rope {
	if nodeCapacity < 1 {
		panic("rope: nodeCapacity must be positive")
	}
	r := &Rope{
		rng:          rng,
		nodeCapacity: nodeCapacity,
	}
	r.head = &node{
		leaf:   gapbuffer.New(0),
		height: 1,
		nexts:  []skipEntry{{}},
	}
	return r
}

// NewFromString returns a rope initialized with s.
func NewFromString(s string) *Rope {
	r := New()
	r.Insert(0, s)
	return r
}

// LenChars returns the number of Unicode scalar values in the rope, in O(1).
func (r *Rope) LenChars() int {
	return r.head.nexts[r.head.height-1].skipChars
}

// LenWChars returns the number of UTF-16 code units the rope's content would
// occupy, in O(1).
func (r *Rope) LenWChars() int {
	top := r.head.nexts[r.head.height-1]
	return top.skipChars + top.skipPairs
}

// LenBytes returns the number of bytes in the rope's UTF-8 encoding, in O(1).
func (r *Rope) LenBytes() int { return r.numBytes }

// IsEmpty reports whether the rope holds no content.
func (r *Rope) IsEmpty() bool { return r.numBytes == 0 }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Rope) randomHeight() uint8 {
	h := uint8(1)
	for h < MaxHeight && r.rng.Intn(256) < heightBias {
		h++
	}
	return h
}

// locate walks the skip list using characters as the metric, returning the
// node whose content contains charPos, the intra-node char offset within it,
// and the number of surrogate pairs contained in every node strictly before
// it. stickEnd controls boundary behaviour: true makes a position exactly at
// a node boundary resolve to the END of the earlier node rather than the
// start of the next one.
func (r *Rope) locate(charPos int, stickEnd bool) (*node, int, int) {
	e := r.head
	offset := charPos
	pairsBefore := 0
	for h := int(r.head.height) - 1; h >= 0; h-- {
		for {
			next := e.nexts[h]
			skip := next.skipChars
			goRight := offset > skip || (!stickEnd && offset == skip && next.node != nil)
			if !goRight {
				break
			}
			offset -= skip
			pairsBefore += next.skipPairs
			e = next.node
		}
	}
	return e, offset, pairsBefore
}

// locateByWChar is locate's counterpart over the UTF-16 code unit metric.
func (r *Rope) locateByWChar(wcharPos int, stickEnd bool) (*node, int, int) {
	e := r.head
	offset := wcharPos
	charsBefore := 0
	for h := int(r.head.height) - 1; h >= 0; h-- {
		for {
			next := e.nexts[h]
			span := next.skipChars + next.skipPairs
			goRight := offset > span || (!stickEnd && offset == span && next.node != nil)
			if !goRight {
				break
			}
			offset -= span
			charsBefore += next.skipChars
			e = next.node
		}
	}
	return e, offset, charsBefore
}

// cursorAtChar builds a mutation cursor for the given character position.
func (r *Rope) cursorAtChar(charPos int, stickEnd bool) *cursor {
	charPos = clampInt(charPos, 0, r.LenChars())
	c := &cursor{headHeight: int(r.head.height)}
	e := r.head
	offset := charPos
	pairsBefore := 0
	var nodePairs [MaxHeight + 1]int
	for h := int(r.head.height) - 1; h >= 0; h-- {
		for {
			next := e.nexts[h]
			skip := next.skipChars
			goRight := offset > skip || (!stickEnd && offset == skip && next.node != nil)
			if !goRight {
				break
			}
			offset -= skip
			pairsBefore += next.skipPairs
			e = next.node
		}
		c.entries[h] = skipEntry{node: e, skipChars: offset}
		nodePairs[h] = pairsBefore
	}
	totalPairs := pairsBefore + e.leaf.CountSurrogatesUpTo(offset)
	for h := 0; h < c.headHeight; h++ {
		c.entries[h].skipPairs = totalPairs - nodePairs[h]
	}
	return c
}

// CharsToWChars converts a character offset into the equivalent UTF-16 code
// unit offset, in O(log n).
func (r *Rope) CharsToWChars(charPos int) int {
	charPos = clampInt(charPos, 0, r.LenChars())
	n, offset, pairsBefore := r.locate(charPos, true)
	if n == r.head {
		return charPos
	}
	return charPos + pairsBefore + n.leaf.CountSurrogatesUpTo(offset)
}

// WCharsToChars converts a UTF-16 code unit offset into the equivalent
// character offset, in O(log n). A wcharPos landing inside a surrogate pair
// resolves to one of the two chars that make up the pair; which one is
// unspecified.
func (r *Rope) WCharsToChars(wcharPos int) int {
	wcharPos = clampInt(wcharPos, 0, r.LenWChars())
	n, offset, charsBefore := r.locateByWChar(wcharPos, true)
	if n == r.head {
		return charsBefore
	}
	return charsBefore + n.leaf.CharsForWCharOffset(offset)
}

// Insert splices text into the rope so that it begins at character offset
// pos. pos is clamped to [0, LenChars()]; an empty text is a no-op.
func (r *Rope) Insert(pos int, text string) {
	if text == "" {
		return
	}
	c := r.cursorAtChar(pos, true)
	r.insertAtCursor(c, text)
}

// InsertAtWChar is Insert addressed by UTF-16 code unit offset.
func (r *Rope) InsertAtWChar(wcharPos int, text string) {
	r.Insert(r.WCharsToChars(wcharPos), text)
}

// Remove deletes the nChars characters starting at character offset pos.
// Both arguments are clamped so the removed range always lies within the
// rope's current content.
func (r *Rope) Remove(pos, nChars int) {
	pos = clampInt(pos, 0, r.LenChars())
	nChars = clampInt(nChars, 0, r.LenChars()-pos)
	if nChars == 0 {
		return
	}
	c := r.cursorAtChar(pos, true)
	r.delAtCursor(c, nChars)
}

// RemoveAtWChar is Remove addressed by UTF-16 code unit offsets.
func (r *Rope) RemoveAtWChar(wcharPos, nWChars int) {
	start := r.WCharsToChars(wcharPos)
	end := r.WCharsToChars(wcharPos + nWChars)
	r.Remove(start, end-start)
}

// Replace removes nChars characters starting at pos and inserts text in
// their place, using a single cursor descent for both halves.
func (r *Rope) Replace(pos, nChars int, text string) {
	pos = clampInt(pos, 0, r.LenChars())
	nChars = clampInt(nChars, 0, r.LenChars()-pos)
	c := r.cursorAtChar(pos, true)
	if nChars > 0 {
		r.delAtCursor(c, nChars)
	}
	if text != "" {
		r.insertAtCursor(c, text)
	}
}

// ReplaceAtWChar is Replace addressed by UTF-16 code unit offsets.
func (r *Rope) ReplaceAtWChar(wcharPos, nWChars int, text string) {
	start := r.WCharsToChars(wcharPos)
	end := r.WCharsToChars(wcharPos + nWChars)
	r.Replace(start, end-start, text)
}

func (r *Rope) updateOffsets(c *cursor, byChars, byPairs int) {
	for i := 0; i < c.headHeight; i++ {
		e := &c.entries[i].node.nexts[i]
		e.skipChars += byChars
		e.skipPairs += byPairs
	}
}

func (r *Rope) moveWithinNode(c *cursor, byChars, byPairs int) {
	for i := 0; i < c.headHeight; i++ {
		c.entries[i].skipChars += byChars
		c.entries[i].skipPairs += byPairs
	}
}

// insertNodeAt splices a brand-new leaf node, holding exactly contents, in
// after the predecessors named by c, then raises the head's tower if the new
// node is taller than anything seen before. When updateCursor is false the
// cursor is left describing the position just BEFORE the new node — used
// when a trailing remainder node still needs to be inserted behind it.
func (r *Rope) insertNodeAt(c *cursor, contents string, numChars, numPairs int, updateCursor bool) {
	newHeight := r.randomHeight()
	n := &node{
		leaf:   gapbuffer.NewFromString(contents, r.nodeCapacity),
		height: newHeight,
		nexts:  make([]skipEntry, newHeight),
	}

	headHeight := c.headHeight
	for headHeight <= int(newHeight) {
		r.head.nexts = append(r.head.nexts, r.head.nexts[headHeight-1])
		c.entries[headHeight] = c.entries[headHeight-1]
		headHeight++
	}
	r.head.height = uint8(headHeight)
	c.headHeight = headHeight

	for i := 0; i < int(newHeight); i++ {
		prev := &c.entries[i].node.nexts[i]
		n.nexts[i].node = prev.node
		n.nexts[i].skipChars = numChars + prev.skipChars - c.entries[i].skipChars
		n.nexts[i].skipPairs = numPairs + prev.skipPairs - c.entries[i].skipPairs

		prev.node = n
		prev.skipChars = c.entries[i].skipChars
		prev.skipPairs = c.entries[i].skipPairs

		if updateCursor {
			c.entries[i].node = n
			c.entries[i].skipChars = numChars
			c.entries[i].skipPairs = numPairs
		}
	}

	for i := int(newHeight); i < headHeight; i++ {
		e := &c.entries[i].node.nexts[i]
		e.skipChars += numChars
		e.skipPairs += numPairs
		if updateCursor {
			c.entries[i].skipChars += numChars
			c.entries[i].skipPairs += numPairs
		}
	}

	r.numBytes += len(contents)
}

func (r *Rope) insertAtCursor(c *cursor, text string) {
	if text == "" {
		return
	}
	offsetChars := c.entries[0].skipChars
	e := c.entries[0].node

	numInsertedBytes := len(text)
	numInsertedChars := strutil.CountChars(text)
	numInsertedPairs := strutil.CountSurrogates(text)

	// Fast path: the gap is already sitting exactly at the insertion point
	// and has room, so nothing in the skip list needs to change shape.
	if e.leaf.GapStartChars() == offsetChars && e.leaf.RoomBytes() >= numInsertedBytes {
		e.leaf.InsertInGap(text)
		r.updateOffsets(c, numInsertedChars, numInsertedPairs)
		r.moveWithinNode(c, numInsertedChars, numInsertedPairs)
		r.numBytes += numInsertedBytes
		return
	}

	var offsetBytes int
	if offsetChars > 0 {
		offsetBytes = e.leaf.CountBytes(offsetChars)
	}

	currentLenBytes := e.leaf.LenBytes()
	insertHere := e != r.head && currentLenBytes+numInsertedBytes <= r.nodeCapacity

	if !insertHere && offsetBytes == currentLenBytes && len(e.nexts) > 0 {
		if next := e.nexts[0].node; next != nil && next.leaf.LenBytes()+numInsertedBytes <= r.nodeCapacity {
			offsetBytes = 0
			for i := 0; i < int(next.height); i++ {
				c.entries[i] = skipEntry{node: next}
			}
			e = next
			insertHere = true
		}
	}

	if insertHere {
		if err := e.leaf.TryInsert(offsetBytes, text); err != nil {
			panic("rope: internal inconsistency: insertHere miscalculated available room")
		}
		r.numBytes += numInsertedBytes
		r.updateOffsets(c, numInsertedChars, numInsertedPairs)
		r.moveWithinNode(c, numInsertedChars, numInsertedPairs)
		return
	}

	// No room anywhere nearby: split. Trim off anything after the insertion
	// point in e, insert as many fresh nodes as text needs, then reattach
	// e's trimmed tail as one final node.
	e.leaf.MoveGap(offsetBytes)
	numEndBytes := e.leaf.LenBytes() - offsetBytes
	var numEndChars, numEndPairs int
	if numEndBytes > 0 {
		numEndChars = e.leaf.LenChars() - offsetChars
		numEndPairs = strutil.CountSurrogates(e.leaf.EndAsStr())
		r.updateOffsets(c, -numEndChars, -numEndPairs)
		r.numBytes -= numEndBytes
	}

	remainder := text
	remainingChars := numInsertedChars
	remainingPairs := numInsertedPairs
	for {
		if len(remainder) <= r.nodeCapacity {
			r.insertNodeAt(c, remainder, remainingChars, remainingPairs, true)
			break
		}
		bytePos := r.nodeCapacity
		for remainder[bytePos]&0xC0 == 0x80 {
			bytePos--
		}
		chunk := remainder[:bytePos]
		chunkChars := strutil.CountChars(chunk)
		chunkPairs := strutil.CountSurrogates(chunk)
		remainingChars -= chunkChars
		remainingPairs -= chunkPairs
		r.insertNodeAt(c, chunk, chunkChars, chunkPairs, true)
		remainder = remainder[bytePos:]
	}

	if numEndBytes > 0 {
		endStr := e.leaf.TakeRest(offsetBytes)
		r.insertNodeAt(c, endStr, numEndChars, numEndPairs, false)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (r *Rope) delAtCursor(c *cursor, length int) {
	if length == 0 {
		return
	}
	offsetChars := c.entries[0].skipChars
	n := c.entries[0].node

	for length > 0 {
		s := n.nexts[0]
		if offsetChars == s.skipChars {
			n = s.node
			offsetChars = 0
		}

		numChars := n.nexts[0].skipChars
		removed := minInt(length, numChars-offsetChars)
		removedPairs := n.leaf.CountSurrogatesUpTo(offsetChars+removed) - n.leaf.CountSurrogatesUpTo(offsetChars)
		height := int(n.height)

		if removed < numChars || n == r.head {
			removedBytes := n.leaf.RemoveChars(offsetChars, removed)
			r.numBytes -= removedBytes
			for i := 0; i < height; i++ {
				n.nexts[i].skipChars -= removed
				n.nexts[i].skipPairs -= removedPairs
			}
		} else {
			for i := 0; i < height; i++ {
				s := &c.entries[i].node.nexts[i]
				s.node = n.nexts[i].node
				s.skipChars += n.nexts[i].skipChars - removed
				s.skipPairs += n.nexts[i].skipPairs - removedPairs
			}
			r.numBytes -= n.leaf.LenBytes()
			next := n.nexts[0].node
			n = next
		}

		for i := height; i < c.headHeight; i++ {
			c.entries[i].node.nexts[i].skipChars -= removed
			c.entries[i].node.nexts[i].skipPairs -= removedPairs
		}

		length -= removed
	}
}

// Chunks iterates the rope's content chunk by chunk (each gap-buffer half of
// each leaf, in order), yielding each chunk's text alongside its char length.
func (r *Rope) Chunks(yield func(chunk string, chars int) bool) {
	for n := r.head.nexts[0].node; n != nil; n = n.nexts[0].node {
		if s := n.leaf.StartAsStr(); s != "" {
			if !yield(s, strutil.CountChars(s)) {
				return
			}
		}
		if s := n.leaf.EndAsStr(); s != "" {
			if !yield(s, strutil.CountChars(s)) {
				return
			}
		}
	}
}

// Chars iterates the rope rune by rune.
func (r *Rope) Chars(yield func(rune) bool) {
	r.Chunks(func(chunk string, _ int) bool {
		for _, ru := range chunk {
			if !yield(ru) {
				return false
			}
		}
		return true
	})
}

// SliceChunks iterates the chunks of the rope's content restricted to the
// character range [start, end).
func (r *Rope) SliceChunks(start, end int, yield func(chunk string, chars int) bool) {
	start = clampInt(start, 0, r.LenChars())
	end = clampInt(end, start, r.LenChars())
	if start == end {
		return
	}
	remainingBefore := start
	remainingLen := end - start
	r.Chunks(func(chunk string, chars int) bool {
		if remainingBefore >= chars {
			remainingBefore -= chars
			return true
		}
		from := remainingBefore
		remainingBefore = 0
		avail := chars - from
		take := minInt(avail, remainingLen)
		fromByte := strutil.CharToByte(chunk, from)
		toByte := strutil.CharToByte(chunk, from+take)
		remainingLen -= take
		if !yield(chunk[fromByte:toByte], take) {
			return false
		}
		return remainingLen > 0
	})
}

// SliceChars iterates the runes of the rope's content restricted to the
// character range [start, end).
func (r *Rope) SliceChars(start, end int, yield func(rune) bool) {
	r.SliceChunks(start, end, func(chunk string, _ int) bool {
		for _, ru := range chunk {
			if !yield(ru) {
				return false
			}
		}
		return true
	})
}

// String returns the rope's full content as a Go string.
func (r *Rope) String() string {
	var b strings.Builder
	b.Grow(r.numBytes)
	r.Chunks(func(chunk string, _ int) bool {
		b.WriteString(chunk)
		return true
	})
	return b.String()
}

// Equal reports whether the rope's content is exactly s.
func (r *Rope) Equal(s string) bool {
	if r.numBytes != len(s) {
		return false
	}
	ok := true
	r.Chunks(func(chunk string, _ int) bool {
		if !strings.HasPrefix(s, chunk) {
			ok = false
			return false
		}
		s = s[len(chunk):]
		return true
	})
	return ok
}

// Clone returns a deep copy of the rope, independent of the receiver.
func (r *Rope) Clone() *Rope {
	c := NewWithCapacity(r.nodeCapacity)
	r.Chunks(func(chunk string, _ int) bool {
		c.Insert(c.LenChars(), chunk)
		return true
	})
	return c
}

// Check re-derives every cached skip-list counter from scratch and panics if
// anything is inconsistent. Intended for tests and debugging, not hot paths.
func (r *Rope) Check() {
	if r.head.height < 1 || r.head.height > MaxHeight+1 {
		panic("rope: invariant violation: head height out of range")
	}
	top := r.head.nexts[r.head.height-1]
	if top.node != nil {
		panic("rope: invariant violation: topmost head pointer is not nil")
	}
	if top.skipChars > r.numBytes {
		panic("rope: invariant violation: char count exceeds byte count")
	}
	if top.skipPairs > top.skipChars {
		panic("rope: invariant violation: surrogate pair count exceeds char count")
	}

	tracked := make([]skipEntry, r.head.height)
	for i := range tracked {
		tracked[i] = r.head.nexts[i]
	}

	numBytes, numChars, numPairs := 0, 0, 0
	for n := r.head.nexts[0].node; n != nil; n = n.nexts[0].node {
		if n.leaf.IsEmpty() {
			panic("rope: invariant violation: non-head node is empty")
		}
		if n.height < 1 || n.height > MaxHeight {
			panic("rope: invariant violation: node height out of range")
		}
		n.leaf.Check()

		ownChars := n.nexts[0].skipChars
		if strutil.CountChars(n.leaf.StartAsStr())+strutil.CountChars(n.leaf.EndAsStr()) != ownChars {
			panic("rope: invariant violation: node skip_chars[0] disagrees with leaf content")
		}

		for i := 0; i < int(n.height); i++ {
			if tracked[i].node != n {
				panic("rope: invariant violation: skip-list chain broken")
			}
			if tracked[i].skipChars != numChars {
				panic("rope: invariant violation: accumulated char count mismatch")
			}
			tracked[i].node = n.nexts[i].node
			tracked[i].skipChars += n.nexts[i].skipChars
			tracked[i].skipPairs += n.nexts[i].skipPairs
		}

		numBytes += n.leaf.LenBytes()
		numChars += ownChars
		numPairs += n.leaf.LenSurrogatePairs()
	}

	if numBytes != r.numBytes {
		panic("rope: invariant violation: total byte count mismatch")
	}
	for i := 0; i < int(r.head.height); i++ {
		if tracked[i].node != nil {
			panic("rope: invariant violation: skip-list chain does not terminate")
		}
		if tracked[i].skipChars != numChars {
			panic("rope: invariant violation: top-level char count mismatch")
		}
		if tracked[i].skipPairs != numPairs {
			panic("rope: invariant violation: top-level surrogate pair count mismatch")
		}
	}
}
