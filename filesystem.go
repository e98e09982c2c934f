package tfs

import (
	"log"
	"os"

	"github.com/hashicorp/go-multierror"
)

// RootIno is inode 0, the root directory, always live after format
// (spec.md §3).
const RootIno uint32 = 0

// Filesystem replaces the original source's global mutable singletons
// (superblock, i_bmap, d_bmap, diskfile_path — spec.md §9) with a value
// constructed at Init and released at Destroy, threaded explicitly
// through every operation rather than reached for as ambient state.
type Filesystem struct {
	dev   BlockDevice
	sb    *Superblock
	ibmap *blockBitmap
	dbmap *blockBitmap
	path  string
}

// New constructs a Filesystem bound to a FileBlockDevice. It does not
// touch disk; call Init to mount (formatting first if the image is
// missing).
func New(path string) *Filesystem {
	return &Filesystem{
		dev:  NewFileBlockDevice(BlockSize),
		path: path,
	}
}

// Format runs mkfs (spec.md §4.7): build the superblock, mark the
// metadata region used in the data bitmap, allocate the root inode, and
// seed the root directory with "." and "..".
func (fs *Filesystem) Format() error {
	log.Printf("tfs: formatting %s", fs.path)
	if err := fs.dev.Init(fs.path); err != nil {
		return err
	}

	sb := newSuperblock()
	if err := sb.persist(fs.dev); err != nil {
		return err
	}
	fs.sb = sb

	fs.ibmap = newBlockBitmap(sb.IBitmapBlk, MaxInum)
	fs.dbmap = newBlockBitmap(sb.DBitmapBlk, MaxDnum)

	// Mark blocks [0, d_start) used in the data bitmap so address 0 is
	// never handed out by allocateBlock (spec.md §3, §4.7).
	for b := uint32(0); b < sb.DStartBlk; b++ {
		fs.dbmap.set(int(b))
	}
	if err := fs.dbmap.persist(fs.dev); err != nil {
		return err
	}
	if err := fs.ibmap.persist(fs.dev); err != nil {
		return err
	}
	log.Printf("tfs: wrote superblock and bitmaps, d_start=%d", sb.DStartBlk)

	rootIno, err := fs.allocateInode()
	if err != nil {
		return err
	}
	if rootIno != RootIno {
		return newError(KindCorrupt, "Format", nil)
	}

	rootDataBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())

	root := &Inode{
		Ino:   RootIno,
		Valid: validFlag,
		Type:  TypeDir,
		Link:  2,
		Vstat: newDirVstat(uid, gid),
	}
	root.DirectPtr[0] = rootDataBlock
	root.Vstat.Blocks = 1
	if err := fs.writei(root); err != nil {
		return err
	}

	block := make([]byte, BlockSize)
	dot := &Dirent{Ino: RootIno, Valid: validFlag}
	dot.setName(".")
	putDirentAt(block, 0, dot)
	dotdot := &Dirent{Ino: RootIno, Valid: validFlag}
	dotdot.setName("..")
	putDirentAt(block, 1, dotdot)
	if err := fs.dev.WriteBlock(rootDataBlock, block); err != nil {
		return err
	}

	root.Size = 2 * int64(direntOnDiskSize)
	root.Vstat.Size = root.Size
	if err := fs.writei(root); err != nil {
		return err
	}
	log.Printf("tfs: format done, root inode=%d data block=%d", rootIno, rootDataBlock)
	return nil
}

// Init mounts the filesystem (spec.md §4.6): open the disk image, or
// run Format if it doesn't exist yet, then load the superblock and both
// bitmap blocks into memory.
func (fs *Filesystem) Init() error {
	if err := fs.dev.Open(fs.path); err != nil {
		log.Printf("tfs: no existing image at %s, formatting", fs.path)
		return fs.Format()
	}

	sb, err := readSuperblock(fs.dev)
	if err != nil {
		return err
	}
	fs.sb = sb
	fs.ibmap = newBlockBitmap(sb.IBitmapBlk, MaxInum)
	fs.dbmap = newBlockBitmap(sb.DBitmapBlk, MaxDnum)
	if err := fs.ibmap.load(fs.dev); err != nil {
		return err
	}
	if err := fs.dbmap.load(fs.dev); err != nil {
		return err
	}
	log.Printf("tfs: mounted %s, max_inum=%d max_dnum=%d", fs.path, sb.MaxInum, sb.MaxDnum)
	return nil
}

// Destroy releases the cached superblock and bitmaps and closes the
// image (spec.md §4.6). All mutations are write-through, so there is no
// dirty state to flush; Destroy only needs to close the device, but
// aggregates every error it hits rather than stopping at the first.
func (fs *Filesystem) Destroy() error {
	log.Printf("tfs: unmounting %s", fs.path)
	var result *multierror.Error
	if err := fs.dev.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	fs.sb = nil
	fs.ibmap = nil
	fs.dbmap = nil
	if err := result.ErrorOrNil(); err != nil {
		log.Printf("tfs: unmount %s finished with errors: %s", fs.path, err)
		return err
	}
	log.Printf("tfs: unmount %s done", fs.path)
	return nil
}

func (fs *Filesystem) allocateInode() (uint32, error) {
	i, err := fs.ibmap.allocate()
	if err != nil {
		return 0, err
	}
	if err := fs.ibmap.persist(fs.dev); err != nil {
		return 0, err
	}
	return uint32(i), nil
}

func (fs *Filesystem) allocateBlock() (uint32, error) {
	b, err := fs.dbmap.allocate()
	if err != nil {
		return 0, err
	}
	if err := fs.dbmap.persist(fs.dev); err != nil {
		return 0, err
	}
	return uint32(b), nil
}

// Getattr resolves path and returns its cached attribute record
// (spec.md §4.6).
func (fs *Filesystem) Getattr(path string) (Vstat, error) {
	ino, err := fs.getNodeByPath(path, RootIno)
	if err != nil {
		return Vstat{}, err
	}
	return ino.Vstat, nil
}

// Opendir resolves path and reports whether it exists as a directory; a
// path naming a regular file fails with KindNotFound. No per-handle
// state is retained (spec.md §4.6, §5).
func (fs *Filesystem) Opendir(path string) error {
	ino, err := fs.getNodeByPath(path, RootIno)
	if err != nil {
		return err
	}
	if !ino.IsDir() {
		return newPathError(KindNotFound, "Opendir", path, nil)
	}
	return nil
}

// Open resolves path and reports whether it exists; no per-handle state
// is retained (spec.md §4.6, §5).
func (fs *Filesystem) Open(path string) error {
	_, err := fs.getNodeByPath(path, RootIno)
	return err
}

// Readdir resolves path's directory inode and invokes filler for each
// live directory entry (spec.md §4.6).
func (fs *Filesystem) Readdir(path string, filler func(name string)) error {
	dir, err := fs.getNodeByPath(path, RootIno)
	if err != nil {
		return err
	}
	if !dir.IsDir() {
		return newPathError(KindNotFound, "Readdir", path, nil)
	}

	block := make([]byte, BlockSize)
	for _, ptr := range dir.DirectPtr {
		if ptr == 0 {
			break
		}
		if err := fs.dev.ReadBlock(ptr, block); err != nil {
			return err
		}
		for j := uint32(0); j < numDirPerBlock(); j++ {
			if d := direntAt(block, j); d.Valid == validFlag {
				filler(d.name())
			}
		}
	}
	return nil
}

// Mkdir resolves path's parent, allocates a new inode, links it into
// the parent under path's basename, and seeds it with "." and ".."
// (spec.md §4.6).
func (fs *Filesystem) Mkdir(path string) error {
	parentPath, base := splitParentBase(path)
	if base == "" {
		return newPathError(KindNotFound, "Mkdir", path, nil)
	}

	parentIno, err := fs.getInoByPath(parentPath, RootIno)
	if err != nil {
		return err
	}
	parent, err := fs.readi(parentIno)
	if err != nil {
		return err
	}

	newIno, err := fs.allocateInode()
	if err != nil {
		return err
	}

	if err := fs.dirAdd(parent, newIno, base); err != nil {
		return err
	}

	dataBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())
	child := &Inode{
		Ino:   newIno,
		Valid: validFlag,
		Type:  TypeDir,
		Link:  2,
		Vstat: newDirVstat(uid, gid),
	}
	child.DirectPtr[0] = dataBlock
	child.Vstat.Blocks = 1
	if err := fs.writei(child); err != nil {
		return err
	}

	block := make([]byte, BlockSize)
	dot := &Dirent{Ino: newIno, Valid: validFlag}
	dot.setName(".")
	putDirentAt(block, 0, dot)
	dotdot := &Dirent{Ino: parentIno, Valid: validFlag}
	dotdot.setName("..")
	putDirentAt(block, 1, dotdot)
	if err := fs.dev.WriteBlock(dataBlock, block); err != nil {
		return err
	}

	child.Size = 2 * int64(direntOnDiskSize)
	child.Vstat.Size = child.Size
	return fs.writei(child)
}

// Create resolves path's parent, allocates a new regular-file inode
// with one pre-allocated data block, and links it in (spec.md §4.6).
func (fs *Filesystem) Create(path string) error {
	parentPath, base := splitParentBase(path)
	if base == "" {
		return newPathError(KindNotFound, "Create", path, nil)
	}

	parentIno, err := fs.getInoByPath(parentPath, RootIno)
	if err != nil {
		return err
	}
	parent, err := fs.readi(parentIno)
	if err != nil {
		return err
	}

	newIno, err := fs.allocateInode()
	if err != nil {
		return err
	}

	if err := fs.dirAdd(parent, newIno, base); err != nil {
		return err
	}

	dataBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())
	child := &Inode{
		Ino:   newIno,
		Valid: validFlag,
		Type:  TypeFile,
		Link:  1,
		Vstat: newFileVstat(uid, gid),
	}
	child.DirectPtr[0] = dataBlock
	child.Vstat.Blocks = 1
	zero := make([]byte, BlockSize)
	if err := fs.dev.WriteBlock(dataBlock, zero); err != nil {
		return err
	}
	return fs.writei(child)
}

// Read reads size bytes at offset from the file at path into out
// (spec.md §4.6, §4.5).
func (fs *Filesystem) Read(path string, out []byte, offset int64) (int, error) {
	ino, err := fs.getNodeByPath(path, RootIno)
	if err != nil {
		return 0, err
	}
	return fs.readFile(ino, offset, out)
}

// Write writes in at offset into the file at path (spec.md §4.6, §4.5).
func (fs *Filesystem) Write(path string, in []byte, offset int64) (int, error) {
	ino, err := fs.getNodeByPath(path, RootIno)
	if err != nil {
		return 0, err
	}
	return fs.writeFile(ino, offset, in)
}

// Rmdir and Unlink are declared-but-inert remove operations (spec.md
// §1 Non-goals, §9): they resolve the target to validate the call
// shape a host expects, returning KindNotFound if it is missing, but
// remove nothing. The only on-disk write is the atime update dirFind
// makes on the parent directory.
func (fs *Filesystem) Rmdir(path string) error {
	parentPath, base := splitParentBase(path)
	parentIno, err := fs.getInoByPath(parentPath, RootIno)
	if err != nil {
		return err
	}
	parent, err := fs.readi(parentIno)
	if err != nil {
		return err
	}
	return fs.dirRemove(parent, base)
}

func (fs *Filesystem) Unlink(path string) error {
	parentPath, base := splitParentBase(path)
	parentIno, err := fs.getInoByPath(parentPath, RootIno)
	if err != nil {
		return err
	}
	parent, err := fs.readi(parentIno)
	if err != nil {
		return err
	}
	return fs.dirRemove(parent, base)
}
