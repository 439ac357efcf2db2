package rope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyRope(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.LenChars())
	assert.Equal(t, 0, r.LenBytes())
	assert.Equal(t, 0, r.LenWChars())
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "", r.String())
	r.Check()
}

func TestInsertIntoEmptyRope(t *testing.T) {
	r := New()
	r.Insert(0, "hello")
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, 5, r.LenChars())
	assert.Equal(t, 5, r.LenBytes())
	r.Check()
}

func TestAppendAndPrepend(t *testing.T) {
	r := NewFromString("world")
	r.Insert(0, "hello ")
	assert.Equal(t, "hello world", r.String())
	r.Insert(r.LenChars(), "!")
	assert.Equal(t, "hello world!", r.String())
	r.Check()
}

func TestScenarioUnicodeMidInsert(t *testing.T) {
	r := NewFromString("κόσμε")
	r.Insert(2, "𝕐𝕆😘")
	assert.True(t, r.Equal("κό𝕐𝕆😘σμε"))
	assert.Equal(t, 8, r.LenChars())
	assert.Equal(t, 22, r.LenBytes())
	r.Check()
}

func TestDeleteMiddle(t *testing.T) {
	r := NewFromString("hello world")
	r.Remove(5, 6)
	assert.Equal(t, "hello", r.String())
	r.Check()
}

func TestDeleteAll(t *testing.T) {
	r := NewFromString("hello world")
	r.Remove(0, r.LenChars())
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "", r.String())
	r.Check()
}

func TestReplace(t *testing.T) {
	r := NewFromString("hello world")
	r.Replace(6, 5, "there")
	assert.Equal(t, "hello there", r.String())
	r.Check()
}

func TestClampsOutOfRangePositions(t *testing.T) {
	r := NewFromString("abc")
	r.Insert(100, "xyz")
	assert.Equal(t, "abcxyz", r.String())
	r.Remove(0, 1000)
	assert.Equal(t, "", r.String())
	r.Check()
}

func TestNodeSplittingAcrossSmallCapacity(t *testing.T) {
	r := NewWithCapacity(4)
	s := "the quick brown fox jumps over the lazy dog"
	for i, ru := range s {
		r.Insert(i, string(ru))
		r.Check()
	}
	assert.Equal(t, s, r.String())
}

func TestInsertAtBoundariesWithSmallNodes(t *testing.T) {
	r := NewWithCapacity(4)
	r.Insert(0, "abcdefgh")
	r.Check()
	r.Insert(4, "XYZ")
	r.Check()
	assert.Equal(t, "abcdXYZefgh", r.String())
}

func TestChunksAndChars(t *testing.T) {
	r := NewWithCapacity(4)
	r.Insert(0, "abcdefghij")
	var fromChunks strings.Builder
	r.Chunks(func(chunk string, _ int) bool {
		fromChunks.WriteString(chunk)
		return true
	})
	assert.Equal(t, "abcdefghij", fromChunks.String())

	var fromChars strings.Builder
	r.Chars(func(ru rune) bool {
		fromChars.WriteRune(ru)
		return true
	})
	assert.Equal(t, "abcdefghij", fromChars.String())
}

func TestSliceChars(t *testing.T) {
	r := NewWithCapacity(4)
	r.Insert(0, "abcdefghij")
	var sb strings.Builder
	r.SliceChars(3, 7, func(ru rune) bool {
		sb.WriteRune(ru)
		return true
	})
	assert.Equal(t, "defg", sb.String())
}

func TestCharsToWCharsAndBack(t *testing.T) {
	r := NewFromString("a𝕐b😘c")
	n := r.LenChars()
	for i := 0; i <= n; i++ {
		w := r.CharsToWChars(i)
		back := r.WCharsToChars(w)
		assert.Equal(t, i, back, "round trip char->wchar->char at %d", i)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewFromString("hello")
	c := r.Clone()
	c.Insert(5, " world")
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, "hello world", c.String())
}

func TestEqual(t *testing.T) {
	r := NewFromString("hello")
	assert.True(t, r.Equal("hello"))
	assert.False(t, r.Equal("hellp"))
	assert.False(t, r.Equal("hell"))
}

func TestManySmallInsertsForcesMultipleNodes(t *testing.T) {
	r := NewWithCapacity(8)
	want := ""
	for i := 0; i < 500; i++ {
		pos := (i * 7) % (len(want) + 1)
		piece := string(rune('a' + i%26))
		r.Insert(pos, piece)
		want = want[:pos] + piece + want[pos:]
	}
	assert.Equal(t, want, r.String())
	r.Check()
}

func TestManyDeletesKeepInvariants(t *testing.T) {
	r := NewWithCapacity(8)
	want := "the quick brown fox jumps over the lazy dog, twice over, for good measure"
	r.Insert(0, want)
	r.Check()
	for r.LenChars() > 0 {
		pos := r.LenChars() / 3
		n := 1
		if r.LenChars() > 5 {
			n = 5
		}
		if pos+n > r.LenChars() {
			n = r.LenChars() - pos
		}
		want = want[:pos] + want[pos+n:]
		r.Remove(pos, n)
		r.Check()
	}
	assert.Equal(t, want, r.String())
}
