package tfs

import "time"

// Unix mode bits (spec.md §4.6: getattr/mkdir/create fill these into
// Vstat.Mode), following the same constants the teacher repo's mode.go
// derives from Linux's stat.h.
const (
	S_IFREG = 0x8000
	S_IFDIR = 0x4000

	modeDirDefault = S_IFDIR | 0755
	modeRegDefault = S_IFREG | 0666
)

// Vstat mirrors the standard file attribute record every inode caches
// (spec.md §3), independent of any particular host's attribute struct.
type Vstat struct {
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Size    int64
	Blocks  uint32
	Blksize uint32
	Mtime   int64
	Atime   int64
	Ctime   int64
}

func newDirVstat(uid, gid uint32) Vstat {
	now := time.Now().Unix()
	return Vstat{
		Mode:    modeDirDefault,
		Nlink:   2,
		Uid:     uid,
		Gid:     gid,
		Blksize: BlockSize,
		Mtime:   now,
		Atime:   now,
		Ctime:   now,
	}
}

func newFileVstat(uid, gid uint32) Vstat {
	now := time.Now().Unix()
	return Vstat{
		Mode:    modeRegDefault,
		Nlink:   1,
		Uid:     uid,
		Gid:     gid,
		Blksize: BlockSize,
		Mtime:   now,
		Atime:   now,
		Ctime:   now,
	}
}

