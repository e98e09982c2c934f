package tfs

import (
	"bytes"
	"encoding/binary"
	"time"
)

// dirNameMax bounds a directory entry's name; chosen so Dirent stays a
// small fixed-width record, matching spec.md §3's "fixed-width, null-
// terminated" dirent name field.
const dirNameMax = 252

// Dirent is the fixed-size name-to-inode binding stored in a directory's
// data blocks (spec.md §3).
type Dirent struct {
	Ino   uint32
	Valid uint32
	Len   uint32
	Name  [dirNameMax]byte
}

var direntOnDiskSize = uint32(binary.Size(Dirent{}))

// numDirPerBlock is num_dir from spec.md §4.3: the number of dirents
// packed into one data block.
func numDirPerBlock() uint32 {
	return BlockSize / direntOnDiskSize
}

func (d *Dirent) name() string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

func (d *Dirent) setName(name string) {
	var buf [dirNameMax]byte
	copy(buf[:], name)
	d.Name = buf
	d.Len = uint32(len(name))
}

func (d *Dirent) marshal(buf []byte) error {
	w := bytes.NewBuffer(buf[:0])
	if err := binary.Write(w, binary.LittleEndian, d); err != nil {
		return newError(KindIOError, "dirent.marshal", err)
	}
	return nil
}

func unmarshalDirent(buf []byte, d *Dirent) error {
	r := bytes.NewReader(buf)
	if err := binary.Read(r, binary.LittleEndian, d); err != nil {
		return newError(KindCorrupt, "dirent.unmarshal", err)
	}
	return nil
}

func direntAt(block []byte, j uint32) *Dirent {
	start := j * direntOnDiskSize
	d := &Dirent{}
	// unmarshalDirent only fails on short reads, and block is always a
	// full BlockSize buffer here, so this can't fail.
	_ = unmarshalDirent(block[start:start+direntOnDiskSize], d)
	return d
}

func putDirentAt(block []byte, j uint32, d *Dirent) {
	start := j * direntOnDiskSize
	_ = d.marshal(block[start : start+direntOnDiskSize])
}

// dirFind scans dirIno's data blocks in direct_ptr order for a live
// entry named name (spec.md §4.3). It returns success iff such an entry
// was found; a zero direct_ptr terminates the scan early, since live
// entries are contiguous at the block level even though holes can exist
// within a block.
func (fs *Filesystem) dirFind(dirIno uint32, name string) (*Dirent, bool, error) {
	dir, err := fs.readi(dirIno)
	if err != nil {
		return nil, false, err
	}

	block := make([]byte, BlockSize)
	for _, ptr := range dir.DirectPtr {
		if ptr == 0 {
			break
		}
		if err := fs.dev.ReadBlock(ptr, block); err != nil {
			return nil, false, err
		}
		for j := uint32(0); j < numDirPerBlock(); j++ {
			d := direntAt(block, j)
			if d.Valid == validFlag && d.name() == name {
				dir.Vstat.Atime = time.Now().Unix()
				if err := fs.writei(dir); err != nil {
					return nil, false, err
				}
				return d, true, nil
			}
		}
	}
	return nil, false, nil
}

// dirAdd adds a (name -> fIno) entry to dirInode's data blocks (spec.md
// §4.3). dirInode must already be the live in-memory copy of the
// directory; dirAdd persists both the modified inode and the touched
// data block.
func (fs *Filesystem) dirAdd(dirInode *Inode, fIno uint32, name string) error {
	// Step 1: reject duplicates.
	block := make([]byte, BlockSize)
	for _, ptr := range dirInode.DirectPtr {
		if ptr == 0 {
			break
		}
		if err := fs.dev.ReadBlock(ptr, block); err != nil {
			return err
		}
		for j := uint32(0); j < numDirPerBlock(); j++ {
			if d := direntAt(block, j); d.Valid == validFlag && d.name() == name {
				return newPathError(KindExists, "dirAdd", name, nil)
			}
		}
	}

	// Step 2: find the first free (block, slot) pair.
	var targetBlock uint32
	var targetSlot uint32
	var k int
	found := false
	for k = 0; k < DirectPtrSize; k++ {
		ptr := dirInode.DirectPtr[k]
		if ptr == 0 {
			newBlockID, err := fs.allocateBlock()
			if err != nil {
				return err
			}
			dirInode.DirectPtr[k] = newBlockID
			dirInode.Vstat.Blocks++
			zero := make([]byte, BlockSize)
			if err := fs.dev.WriteBlock(newBlockID, zero); err != nil {
				return err
			}
			targetBlock = newBlockID
			targetSlot = 0
			found = true
			break
		}

		if err := fs.dev.ReadBlock(ptr, block); err != nil {
			return err
		}
		slotFound := false
		for j := uint32(0); j < numDirPerBlock(); j++ {
			if d := direntAt(block, j); d.Valid != validFlag {
				targetBlock = ptr
				targetSlot = j
				slotFound = true
				break
			}
		}
		if slotFound {
			found = true
			break
		}
	}
	if !found {
		return newPathError(KindNoSpace, "dirAdd", name, nil)
	}

	// Step 3: write the new entry.
	if err := fs.dev.ReadBlock(targetBlock, block); err != nil {
		return err
	}
	d := &Dirent{Ino: fIno, Valid: validFlag}
	d.setName(name)
	putDirentAt(block, targetSlot, d)
	if err := fs.dev.WriteBlock(targetBlock, block); err != nil {
		return err
	}

	// Step 4/5: persist the directory inode.
	dirInode.Size += int64(direntOnDiskSize)
	dirInode.Vstat.Size += int64(direntOnDiskSize)
	dirInode.Vstat.Mtime = time.Now().Unix()
	return fs.writei(dirInode)
}

// dirRemove is declared for completeness (spec.md §4.3/§9) but is
// inert: remove operations are stubs in this core (spec.md §1
// Non-goals). It locates the entry and returns KindNotFound if it is
// missing, but never clears it or frees anything; the only on-disk write
// is the atime update dirFind makes on the directory inode.
func (fs *Filesystem) dirRemove(dirInode *Inode, name string) error {
	_, found, err := fs.dirFind(dirInode.Ino, name)
	if err != nil {
		return err
	}
	if !found {
		return newPathError(KindNotFound, "dirRemove", name, nil)
	}
	return nil
}
