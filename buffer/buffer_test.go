package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjacentInsertsCoalesce(t *testing.T) {
	b := New()
	b.Insert(0, "hello")
	b.Insert(5, " world")
	assert.Equal(t, 11, b.LenChars())
	assert.Equal(t, "hello world", b.String())
}

func TestNonAdjacentInsertsFlush(t *testing.T) {
	b := NewFromString("xx")
	b.Insert(0, "a")
	b.Insert(0, "b") // not adjacent to the pending insert's end (1) -> flush
	assert.Equal(t, "baxx", b.String())
}

func TestDeleteTrimmingPendingInsertTail(t *testing.T) {
	b := New()
	b.Insert(0, "hello world")
	b.Remove(5, 6) // removes " world", exactly the tail of the pending insert
	assert.Equal(t, "hello", b.String())
}

func TestDeleteDiscardingPendingInsertEntirely(t *testing.T) {
	b := New()
	b.Insert(0, "hello")
	b.Remove(0, 5)
	assert.Equal(t, "", b.String())
	assert.Equal(t, 0, b.LenChars())
}

func TestAdjacentDeletesCoalesce(t *testing.T) {
	b := NewFromString("hello world")
	b.Remove(5, 1) // "hello" + "world"
	b.Remove(5, 5) // removes "world" too
	assert.Equal(t, "hello", b.String())
}

func TestLenBytesFlushesOnPendingDelete(t *testing.T) {
	b := NewFromString("κόσμε")
	b.Remove(0, 1)
	assert.Equal(t, len("όσμε"), b.LenBytes())
	assert.Equal(t, "όσμε", b.String())
}

func TestLenCharsDoesNotFlush(t *testing.T) {
	b := NewFromString("hello")
	b.Insert(5, " world")
	assert.Equal(t, 11, b.LenChars())
	// Rope itself should still be unflushed (len_chars alone shouldn't force it).
	assert.Equal(t, 5, b.rope.LenChars())
}
