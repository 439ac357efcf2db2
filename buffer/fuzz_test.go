package buffer

import (
	"testing"
	"unicode/utf8"

	"github.com/tekugo/gorope/rope"
)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FuzzBufferAgainstRope drives a coalescing Buffer and a plain, eagerly
// applied Rope through the same randomized sequence of inserts and deletes,
// checking after every single op that the buffer's externally observable
// state (char count, byte count, content) matches the reference exactly.
// This is the property that makes coalescing safe: tryAppend's merge,
// trim and discard rules (buffer.go's three cases) must never change what a
// caller sees, only when the underlying rope is actually touched.
func FuzzBufferAgainstRope(f *testing.F) {
	f.Add([]byte{0, 0, 0, 2, 0, 2, 5, 1}, "ab")
	f.Add([]byte{0, 0, 0, 5, 1, 0, 0, 0}, "κόσμε")
	f.Add([]byte{0, 2, 0, 3, 1, 1, 1, 0}, "𝕐𝕆😘")

	f.Fuzz(func(t *testing.T, ops []byte, s string) {
		if !utf8.ValidString(s) {
			t.Skip()
		}
		runes := []rune(s)

		buf := New()
		ref := rope.New()

		for i := 0; i+3 < len(ops); i += 4 {
			opByte, posByte, lenByte, textLenByte := ops[i], ops[i+1], ops[i+2], ops[i+3]
			n := ref.LenChars()

			textLen := 0
			if len(runes) > 0 {
				textLen = int(textLenByte) % (len(runes) + 1)
			}
			text := string(runes[:textLen])

			switch opByte % 2 {
			case 0: // insert
				pos := clampInt(int(posByte), 0, n)
				buf.Insert(pos, text)
				ref.Insert(pos, text)
			case 1: // delete
				if n == 0 {
					continue
				}
				pos := clampInt(int(posByte), 0, n)
				length := clampInt(int(lenByte), 0, n-pos)
				buf.Remove(pos, length)
				ref.Remove(pos, length)
			}

			if buf.LenChars() != ref.LenChars() {
				t.Fatalf("step %d: char count mismatch: buf=%d ref=%d", i/4, buf.LenChars(), ref.LenChars())
			}
			if buf.LenBytes() != ref.LenBytes() {
				t.Fatalf("step %d: byte count mismatch: buf=%d ref=%d", i/4, buf.LenBytes(), ref.LenBytes())
			}
			if buf.String() != ref.String() {
				t.Fatalf("step %d: content mismatch: buf=%q ref=%q", i/4, buf.String(), ref.String())
			}
			ref.Check()
		}
	})
}
