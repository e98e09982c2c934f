package tfs

import "time"

// readFile maps [offset, offset+len(out)) onto ino's direct_ptr blocks
// and copies as many bytes as are actually allocated into out, returning
// the count copied (spec.md §4.5). The range is first clamped to the
// file's Size, and a zero direct_ptr stops the walk early: a read past
// end-of-data is short, never an error.
func (fs *Filesystem) readFile(ino *Inode, offset int64, out []byte) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	if offset >= ino.Size {
		out = out[:0]
	} else if avail := ino.Size - offset; int64(len(out)) > avail {
		out = out[:avail]
	}

	k := int(offset / BlockSize)
	intraOff := int(offset % BlockSize)
	remaining := len(out)
	copied := 0

	block := make([]byte, BlockSize)
	for remaining > 0 && k < DirectPtrSize {
		ptr := ino.DirectPtr[k]
		if ptr == 0 {
			break
		}
		if err := fs.dev.ReadBlock(ptr, block); err != nil {
			return copied, err
		}

		n := BlockSize - intraOff
		if n > remaining {
			n = remaining
		}
		copy(out[copied:copied+n], block[intraOff:intraOff+n])

		copied += n
		remaining -= n
		intraOff = 0
		k++
	}

	ino.Vstat.Atime = time.Now().Unix()
	if err := fs.writei(ino); err != nil {
		return copied, err
	}
	return copied, nil
}

// writeFile maps [offset, offset+len(in)) onto ino's direct_ptr blocks,
// allocating new data blocks on extension (spec.md §4.5). Partial
// writes are permitted: on a mid-write allocation failure, writeFile
// records the bytes already written in the inode and returns their
// count alongside the error.
func (fs *Filesystem) writeFile(ino *Inode, offset int64, in []byte) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}

	k := int(offset / BlockSize)
	intraOff := int(offset % BlockSize)
	remaining := len(in)
	written := 0
	var allocErr error

	block := make([]byte, BlockSize)
	for remaining > 0 && k < DirectPtrSize {
		ptr := ino.DirectPtr[k]
		if ptr == 0 {
			newBlockID, err := fs.allocateBlock()
			if err != nil {
				allocErr = err
				break
			}
			ino.DirectPtr[k] = newBlockID
			ino.Vstat.Blocks++
			for i := range block {
				block[i] = 0
			}
			ptr = newBlockID
		} else {
			if err := fs.dev.ReadBlock(ptr, block); err != nil {
				return written, err
			}
		}

		n := BlockSize - intraOff
		if n > remaining {
			n = remaining
		}
		copy(block[intraOff:intraOff+n], in[written:written+n])

		if err := fs.dev.WriteBlock(ptr, block); err != nil {
			return written, err
		}

		written += n
		remaining -= n
		intraOff = 0
		k++
	}

	end := offset + int64(written)
	if end > ino.Size {
		ino.Size = end
		ino.Vstat.Size = end
	}
	ino.Vstat.Mtime = time.Now().Unix()
	if err := fs.writei(ino); err != nil {
		return written, err
	}

	if allocErr != nil {
		return written, allocErr
	}
	if remaining > 0 {
		return written, newError(KindNoSpace, "writeFile", nil)
	}
	return written, nil
}
