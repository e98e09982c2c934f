package tfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTestFile(t *testing.T, fs *Filesystem, ino uint32) *Inode {
	t.Helper()
	f := &Inode{Ino: ino, Valid: validFlag, Type: TypeFile, Link: 1}
	require.NoError(t, fs.writei(f))
	return f
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	fs := newTestFilesystem(t)
	f := mkTestFile(t, fs, 0)

	in := []byte("hello")
	n, err := fs.writeFile(f, 0, in)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	out := make([]byte, 5)
	n, err = fs.readFile(f, 0, out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, in, out)
}

func TestWriteCrossesBlockBoundary(t *testing.T) {
	fs := newTestFilesystem(t)
	f := mkTestFile(t, fs, 0)

	data := bytes.Repeat([]byte{0xAB}, 4096)
	n, err := fs.writeFile(f, 4000, data)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	assert.NotEqual(t, uint32(0), f.DirectPtr[0])
	assert.NotEqual(t, uint32(0), f.DirectPtr[1])

	out := make([]byte, 4096)
	n, err = fs.readFile(f, 4000, out)
	require.NoError(t, err)
	assert.Equal(t, 4096, n)
	assert.Equal(t, data, out)
}

func TestReadPastEndOfDataIsShort(t *testing.T) {
	fs := newTestFilesystem(t)
	f := mkTestFile(t, fs, 0)

	_, err := fs.writeFile(f, 0, []byte("hi"))
	require.NoError(t, err)

	out := make([]byte, 100)
	n, err := fs.readFile(f, 0, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "reading past end-of-data returns fewer bytes, never faults")
}

func TestWriteExhaustsDirectPointers(t *testing.T) {
	fs := newTestFilesystem(t)
	f := mkTestFile(t, fs, 0)

	maxLen := DirectPtrSize * BlockSize
	data := bytes.Repeat([]byte{1}, maxLen)
	n, err := fs.writeFile(f, 0, data)
	require.NoError(t, err)
	assert.Equal(t, maxLen, n)

	// One more byte can't fit: partial write permitted, NoSpace reported.
	n, err = fs.writeFile(f, int64(maxLen), []byte{9})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoSpace))
	assert.Equal(t, 0, n)
}

func TestFirstAllocationsAfterFormat(t *testing.T) {
	fs := newTestFilesystem(t)

	i, err := fs.allocateInode()
	require.NoError(t, err)
	assert.Equal(t, RootIno, i)

	i2, err := fs.allocateInode()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i2)

	b, err := fs.allocateBlock()
	require.NoError(t, err)
	assert.Equal(t, fs.sb.DStartBlk, b)

	b2, err := fs.allocateBlock()
	require.NoError(t, err)
	assert.Equal(t, fs.sb.DStartBlk+1, b2)
}
