package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_Basic(t *testing.T) {
	b := New(8)
	require.True(t, b.CanWrite(5))
	b.Write([]byte("hello"))
	assert.Equal(t, 5, b.Size())
	assert.Equal(t, 3, b.Free())

	require.True(t, b.CanRead(5))
	assert.Equal(t, []byte("hello"), b.Read(5))
	assert.Equal(t, 0, b.Size())
}

func TestCanRead_InsufficientData(t *testing.T) {
	b := New(8)
	b.Write([]byte("ab"))
	assert.False(t, b.CanRead(3))
	assert.True(t, b.CanRead(2))
}

func TestCanWrite_InsufficientSpace(t *testing.T) {
	b := New(4)
	b.Write([]byte("abcd"))
	assert.False(t, b.CanWrite(1))
}

func TestRealign_AcrossWrap(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdef"))
	b.Read(4) // head=4, size=2, tail=6

	require.True(t, b.CanWrite(6))
	b.Write([]byte("ghijkl")) // would wrap past end of array; CanWrite realigned to head=0 first

	require.True(t, b.CanRead(8))
	assert.Equal(t, []byte("efghijkl"), b.Read(8))
}

func TestMarkReset(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdef"))

	b.Mark()
	got := b.Read(3)
	assert.Equal(t, []byte("abc"), got)

	b.Reset()
	assert.Equal(t, 6, b.Size())
	assert.Equal(t, []byte("abc"), b.Read(3))
}

func TestMarkReset_NoMarkIsNoop(t *testing.T) {
	b := New(8)
	b.Write([]byte("abc"))
	b.Reset()
	assert.Equal(t, 3, b.Size())
}

func TestWriteSpaceCommitWrite(t *testing.T) {
	b := New(8)
	space := b.WriteSpace(8)
	n := copy(space, "abcd")
	b.CommitWrite(n)

	assert.Equal(t, 4, b.Size())
	assert.True(t, b.CanRead(4))
	assert.Equal(t, []byte("abcd"), b.Read(4))
}

func TestReadSpaceCommitRead(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcd"))

	space := b.ReadSpace(4)
	assert.Equal(t, []byte("abcd"), space)
	b.CommitRead(4)

	assert.Equal(t, 0, b.Size())
}

func TestEOF(t *testing.T) {
	b := New(4)
	assert.False(t, b.EOF())
	b.SetEOF()
	assert.True(t, b.EOF())
}
