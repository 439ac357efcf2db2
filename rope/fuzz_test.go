package rope

import (
	"testing"
	"unicode/utf8"
)

// FuzzRopeAgainstReferenceString drives a single Rope and a plain []rune
// reference through the same randomized sequence of inserts, deletes and
// replaces, checking they stay in lockstep after every single op in the
// sequence — not just once from an empty rope. ops is consumed four bytes at
// a time: [op selector, position, length, text-length], all against the one
// persistent rope/ref pair, so later ops exercise whatever gap placement,
// node splits and skip-list heights the earlier ops in the sequence left
// behind.
func FuzzRopeAgainstReferenceString(f *testing.F) {
	f.Add([]byte{0, 0, 0, 2, 1, 3, 5, 1}, "ab")
	f.Add([]byte{0, 0, 0, 5, 1, 2, 0, 0}, "κόσμε")
	f.Add([]byte{2, 2, 1, 3, 0, 0, 0, 0}, "𝕐𝕆😘")

	f.Fuzz(func(t *testing.T, ops []byte, s string) {
		if !utf8.ValidString(s) {
			t.Skip()
		}
		runes := []rune(s)

		r := NewWithCapacity(8)
		ref := []rune{}

		for i := 0; i+3 < len(ops); i += 4 {
			opByte, posByte, lenByte, textLenByte := ops[i], ops[i+1], ops[i+2], ops[i+3]
			n := len(ref)

			textLen := 0
			if len(runes) > 0 {
				textLen = int(textLenByte) % (len(runes) + 1)
			}
			text := string(runes[:textLen])

			switch opByte % 3 {
			case 0: // insert
				pos := clampInt(int(posByte), 0, n)
				r.Insert(pos, text)
				merged := append(ref[:pos:pos], []rune(text)...)
				ref = append(merged, ref[pos:]...)
			case 1: // delete
				if n == 0 {
					continue
				}
				pos := clampInt(int(posByte), 0, n)
				length := clampInt(int(lenByte), 0, n-pos)
				r.Remove(pos, length)
				ref = append(ref[:pos:pos], ref[pos+length:]...)
			case 2: // replace
				pos := clampInt(int(posByte), 0, n)
				length := clampInt(int(lenByte), 0, n-pos)
				r.Replace(pos, length, text)
				merged := append(ref[:pos:pos], []rune(text)...)
				ref = append(merged, ref[pos+length:]...)
			}

			if r.LenChars() != len(ref) {
				t.Fatalf("step %d: len mismatch: rope=%d ref=%d", i/4, r.LenChars(), len(ref))
			}
			if r.LenBytes() != len(string(ref)) {
				t.Fatalf("step %d: byte len mismatch: rope=%d ref=%d", i/4, r.LenBytes(), len(string(ref)))
			}
			wantWChars := len(ref)
			for _, ru := range ref {
				if ru >= 0x10000 {
					wantWChars++
				}
			}
			if r.LenWChars() != wantWChars {
				t.Fatalf("step %d: wchar len mismatch: rope=%d ref=%d", i/4, r.LenWChars(), wantWChars)
			}
			if r.String() != string(ref) {
				t.Fatalf("step %d: content mismatch: rope=%q ref=%q", i/4, r.String(), string(ref))
			}
			r.Check()
		}
	})
}
