package tfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFormattedFilesystem(t *testing.T) *Filesystem {
	t.Helper()
	dir := t.TempDir()
	fs := New(filepath.Join(dir, "DISKFILE"))
	require.NoError(t, fs.Init())
	t.Cleanup(func() { _ = fs.Destroy() })
	return fs
}

func TestFormatAndMountGetattrRoot(t *testing.T) {
	fs := newFormattedFilesystem(t)

	v, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.Equal(t, uint32(modeDirDefault), v.Mode)
	assert.GreaterOrEqual(t, v.Nlink, uint32(2))
}

func TestCreateAndStat(t *testing.T) {
	fs := newFormattedFilesystem(t)

	require.NoError(t, fs.Create("/a.txt"))
	v, err := fs.Getattr("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(modeRegDefault), v.Mode)
	assert.Equal(t, int64(0), v.Size)
}

func TestWriteThenReadThroughOperationSurface(t *testing.T) {
	fs := newFormattedFilesystem(t)
	require.NoError(t, fs.Create("/a.txt"))

	n, err := fs.Write("/a.txt", []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	out := make([]byte, 5)
	n, err = fs.Read("/a.txt", out, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(out))
}

func TestMkdirHierarchyAndReaddir(t *testing.T) {
	fs := newFormattedFilesystem(t)

	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.Mkdir("/d/e"))
	require.NoError(t, fs.Create("/d/e/f"))

	var names []string
	require.NoError(t, fs.Readdir("/d/e", func(name string) {
		names = append(names, name)
	}))

	assert.ElementsMatch(t, []string{".", "..", "f"}, names)
}

func TestMkdirSetsDotAndDotDot(t *testing.T) {
	fs := newFormattedFilesystem(t)
	require.NoError(t, fs.Mkdir("/d"))

	v, err := fs.Getattr("/d")
	require.NoError(t, err)
	assert.Equal(t, uint32(modeDirDefault), v.Mode)
	assert.GreaterOrEqual(t, v.Nlink, uint32(2))

	selfStat, err := fs.Getattr("/d/.")
	require.NoError(t, err)
	assert.Equal(t, v.Mode, selfStat.Mode)

	parentStat, err := fs.Getattr("/d/..")
	require.NoError(t, err)
	assert.Equal(t, uint32(modeDirDefault), parentStat.Mode)
}

func TestCreateDuplicateRejected(t *testing.T) {
	fs := newFormattedFilesystem(t)
	require.NoError(t, fs.Create("/a.txt"))

	err := fs.Create("/a.txt")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindExists))
}

func TestRemountReadsBackSameSuperblockAndBitmaps(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "DISKFILE")

	fs1 := New(imagePath)
	require.NoError(t, fs1.Init())
	require.NoError(t, fs1.Create("/a.txt"))
	sb1 := *fs1.sb // Destroy releases fs1.sb, so keep a copy
	require.NoError(t, fs1.Destroy())

	fs2 := New(imagePath)
	require.NoError(t, fs2.Init())
	defer fs2.Destroy()

	assert.Equal(t, sb1.MagicNum, fs2.sb.MagicNum)
	assert.Equal(t, sb1.DStartBlk, fs2.sb.DStartBlk)
	assert.True(t, fs2.ibmap.test(0))
	assert.True(t, fs2.ibmap.test(1))

	v, err := fs2.Getattr("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(modeRegDefault), v.Mode)
}

func TestOpendirRejectsRegularFile(t *testing.T) {
	fs := newFormattedFilesystem(t)
	require.NoError(t, fs.Create("/a.txt"))

	err := fs.Opendir("/a.txt")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestInitFormatsWhenImageMissing(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "DISKFILE")
	_, statErr := os.Stat(imagePath)
	require.Error(t, statErr, "precondition: image must not already exist")

	fs := New(imagePath)
	require.NoError(t, fs.Init())
	defer fs.Destroy()

	_, err := os.Stat(imagePath)
	require.NoError(t, err, "Init must have formatted a fresh image")
}
