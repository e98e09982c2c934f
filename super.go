package tfs

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// magicNum identifies this on-disk format, the way squashfs's 4-byte
// "hsqs"/"sqsh" magic distinguishes its images from unrelated files
// (spec.md §6).
const magicNum uint32 = 0x54465331 // "TFS1"

// Geometry constants (SPEC_FULL §3). MaxInum and MaxDnum are both chosen
// so ceil(max/8) <= BlockSize, the bitmap-fits-in-one-block requirement.
const (
	BlockSize       = 4096
	MaxInum         = 1024
	MaxDnum         = 16384
	DirectPtrSize   = 16
	IndirectPtrSize = 8

	iBitmapBlk uint32 = 1
	dBitmapBlk uint32 = 2
	iStartBlk  uint32 = 3
)

// dStartBlk is d_start from spec.md §3: the first data-region block,
// immediately after the inode table. The inode table holds a fixed
// number of inode records per block (inodesPerBlock, which floors since
// a record never spans two blocks), so its block count must be derived
// from that per-block slot count, not from total inode bytes / BlockSize
// — the latter undercounts whenever inodeOnDiskSize doesn't divide
// BlockSize evenly, aliasing the last inode-table block with d_start.
func dStartBlk() uint32 {
	return iStartBlk + ceilDiv(uint32(MaxInum), inodesPerBlock())
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// Superblock is the one-block header describing on-disk geometry
// (spec.md §3). It is written once at format time and read once at
// mount; nothing else ever rewrites it.
type Superblock struct {
	MagicNum   uint32
	MaxInum    uint32
	MaxDnum    uint32
	IBitmapBlk uint32
	DBitmapBlk uint32
	IStartBlk  uint32
	DStartBlk  uint32
}

func newSuperblock() *Superblock {
	return &Superblock{
		MagicNum:   magicNum,
		MaxInum:    MaxInum,
		MaxDnum:    MaxDnum,
		IBitmapBlk: iBitmapBlk,
		DBitmapBlk: dBitmapBlk,
		IStartBlk:  iStartBlk,
		DStartBlk:  dStartBlk(),
	}
}

// superblockFieldCount is the number of exported uint32 fields in
// Superblock, each stored in that declaration order.
const superblockFieldCount = 7

func (s *Superblock) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	fields := []uint32{
		s.MagicNum, s.MaxInum, s.MaxDnum,
		s.IBitmapBlk, s.DBitmapBlk, s.IStartBlk, s.DStartBlk,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

func (s *Superblock) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	fields := make([]*uint32, superblockFieldCount)
	fields[0] = &s.MagicNum
	fields[1] = &s.MaxInum
	fields[2] = &s.MaxDnum
	fields[3] = &s.IBitmapBlk
	fields[4] = &s.DBitmapBlk
	fields[5] = &s.IStartBlk
	fields[6] = &s.DStartBlk
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return newError(KindCorrupt, "superblock.Unmarshal", err)
		}
	}
	if s.MagicNum != magicNum {
		return newError(KindCorrupt, "superblock.Unmarshal", errBadMagic)
	}
	return nil
}

var errBadMagic = errors.New("magic number mismatch")

func readSuperblock(dev BlockDevice) (*Superblock, error) {
	buf := make([]byte, BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		return nil, err
	}
	sb := &Superblock{}
	if err := sb.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return sb, nil
}

func (s *Superblock) persist(dev BlockDevice) error {
	buf, err := s.MarshalBinary()
	if err != nil {
		return newError(KindIOError, "superblock.persist", err)
	}
	return dev.WriteBlock(0, buf)
}
