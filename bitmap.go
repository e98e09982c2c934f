package tfs

import "github.com/boljen/go-bitmap"

// blockBitmap is a single on-disk block interpreted as a packed array of
// allocation flags, one bit per index (spec.md §4.1). It always occupies
// exactly BlockSize bytes on disk, whatever the logical bit count is.
type blockBitmap struct {
	bits  bitmap.Bitmap
	block uint32 // block address this bitmap lives at
	max   int    // number of logical bits in use (MaxInum or MaxDnum)
}

func newBlockBitmap(block uint32, max int) *blockBitmap {
	buf := make([]byte, BlockSize)
	return &blockBitmap{
		bits:  bitmap.NewSlice(buf, BlockSize*8),
		block: block,
		max:   max,
	}
}

// load reads the bitmap block from dev into memory.
func (b *blockBitmap) load(dev BlockDevice) error {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(b.block, buf); err != nil {
		return err
	}
	b.bits = bitmap.NewSlice(buf, BlockSize*8)
	return nil
}

// persist writes the bitmap block back to dev.
func (b *blockBitmap) persist(dev BlockDevice) error {
	return dev.WriteBlock(b.block, []byte(b.bits))
}

func (b *blockBitmap) test(i int) bool {
	return b.bits.Get(i)
}

func (b *blockBitmap) set(i int) {
	b.bits.Set(i, true)
}

func (b *blockBitmap) clear(i int) {
	b.bits.Set(i, false)
}

// allocate scans from index 0 for the first clear bit below max,
// first-fit as spec.md §4.1 requires, sets it, and returns its index.
// It does not persist; the callers (allocateInode, allocateBlock) write
// the bitmap block back right after a successful allocate.
func (b *blockBitmap) allocate() (int, error) {
	for i := 0; i < b.max; i++ {
		if !b.bits.Get(i) {
			b.bits.Set(i, true)
			return i, nil
		}
	}
	return 0, newError(KindNoSpace, "bitmap.allocate", nil)
}

func (b *blockBitmap) free(i int) {
	b.bits.Set(i, false)
}
