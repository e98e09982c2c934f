//go:build fuse

package tfs

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// errnoFromKind maps the taxonomy of errors.go onto the errno values a
// FUSE host expects at the callback boundary (SPEC_FULL §7), the way
// the teacher repo's inode_fuse.go translates squashfs-internal errors
// into os/fs sentinel errors for its fs.FS boundary.
func errnoFromKind(err error) syscall.Errno {
	if err == nil {
		return fuse.OK
	}
	e, ok := err.(*Error)
	if !ok {
		return syscall.EIO
	}
	switch e.Kind {
	case KindNotFound:
		return syscall.ENOENT
	case KindExists:
		return syscall.EEXIST
	case KindNoSpace:
		return syscall.ENOSPC
	default:
		return syscall.EIO
	}
}

// FillAttr fills a fuse.Attr from a Vstat the way the teacher's
// Inode.FillAttr fills one from a squashfs inode.
func (v *Vstat) FillAttr(attr *fuse.Attr) {
	attr.Size = uint64(v.Size)
	attr.Blocks = uint64(v.Blocks)
	attr.Mode = v.Mode
	attr.Nlink = v.Nlink
	attr.Blksize = v.Blksize
	attr.Atime = uint64(v.Atime)
	attr.Mtime = uint64(v.Mtime)
	attr.Ctime = uint64(v.Ctime)
	attr.Owner.Uid = v.Uid
	attr.Owner.Gid = v.Gid
}

// FuseInit runs Init and reports host-shaped success/failure, the
// entry point a go-fuse RawFileSystem.Init hook would call.
func (fs *Filesystem) FuseInit() syscall.Errno {
	return errnoFromKind(fs.Init())
}

// FuseDestroy runs Destroy, the entry point a go-fuse
// RawFileSystem.Destroy hook would call.
func (fs *Filesystem) FuseDestroy() {
	_ = fs.Destroy()
}

// FuseGetattr resolves path and fills out with its attributes.
func (fs *Filesystem) FuseGetattr(path string, out *fuse.Attr) syscall.Errno {
	v, err := fs.Getattr(path)
	if err != nil {
		return errnoFromKind(err)
	}
	v.FillAttr(out)
	return fuse.OK
}

// FuseOpendir resolves path, succeeding only if it is a directory.
func (fs *Filesystem) FuseOpendir(path string) syscall.Errno {
	return errnoFromKind(fs.Opendir(path))
}

// FuseOpen resolves path, succeeding if it exists.
func (fs *Filesystem) FuseOpen(path string) syscall.Errno {
	return errnoFromKind(fs.Open(path))
}

// FuseReaddir lists path's live entries into a fuse.DirEntryList, the
// shape the teacher's inode_fuse.go ReadDir method fills.
func (fs *Filesystem) FuseReaddir(path string, out *fuse.DirEntryList) syscall.Errno {
	err := fs.Readdir(path, func(name string) {
		out.AddDirEntry(fuse.DirEntry{Name: name})
	})
	return errnoFromKind(err)
}

// FuseMkdir creates a directory at path.
func (fs *Filesystem) FuseMkdir(path string) syscall.Errno {
	return errnoFromKind(fs.Mkdir(path))
}

// FuseCreate creates a regular file at path.
func (fs *Filesystem) FuseCreate(path string) syscall.Errno {
	return errnoFromKind(fs.Create(path))
}

// FuseRead reads into out at offset.
func (fs *Filesystem) FuseRead(path string, out []byte, offset int64) (int, syscall.Errno) {
	n, err := fs.Read(path, out, offset)
	if err != nil {
		return n, errnoFromKind(err)
	}
	return n, fuse.OK
}

// FuseWrite writes in at offset.
func (fs *Filesystem) FuseWrite(path string, in []byte, offset int64) (int, syscall.Errno) {
	n, err := fs.Write(path, in, offset)
	if err != nil {
		return n, errnoFromKind(err)
	}
	return n, fuse.OK
}
