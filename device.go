package tfs

import (
	"io"
	"os"
)

// BlockDevice is the external collaborator spec.md §6 assumes: a
// fixed-capacity random-access store of uniformly sized blocks. The core
// never reasons about files or byte offsets below this layer — every
// read or write is exactly one BlockSize-sized block.
type BlockDevice interface {
	// Init creates and zero-initializes a fresh image at path.
	Init(path string) error
	// Open opens an existing image at path.
	Open(path string) error
	// Close releases the underlying resource.
	Close() error
	// ReadBlock reads exactly one block into buf, which must be BlockSize
	// bytes long.
	ReadBlock(id uint32, buf []byte) error
	// WriteBlock writes exactly one block from buf, which must be
	// BlockSize bytes long.
	WriteBlock(id uint32, buf []byte) error
}

// FileBlockDevice is the one concrete BlockDevice this repo ships: a
// single regular file (conventionally named DISKFILE, per spec.md §6)
// treated as a flat array of BlockSize-byte blocks.
type FileBlockDevice struct {
	f         *os.File
	blockSize int
}

// NewFileBlockDevice constructs a FileBlockDevice that reads and writes
// blockSize-sized blocks.
func NewFileBlockDevice(blockSize int) *FileBlockDevice {
	return &FileBlockDevice{blockSize: blockSize}
}

func (d *FileBlockDevice) Init(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return newPathError(KindIOError, "device.Init", path, err)
	}
	d.f = f
	return nil
}

func (d *FileBlockDevice) Open(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return newPathError(KindIOError, "device.Open", path, err)
	}
	d.f = f
	return nil
}

func (d *FileBlockDevice) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	if err != nil {
		return newError(KindIOError, "device.Close", err)
	}
	return nil
}

func (d *FileBlockDevice) ReadBlock(id uint32, buf []byte) error {
	if len(buf) != d.blockSize {
		return newError(KindIOError, "device.ReadBlock", io.ErrShortBuffer)
	}
	off := int64(id) * int64(d.blockSize)
	n, err := d.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return newError(KindIOError, "device.ReadBlock", err)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

func (d *FileBlockDevice) WriteBlock(id uint32, buf []byte) error {
	if len(buf) != d.blockSize {
		return newError(KindIOError, "device.WriteBlock", io.ErrShortWrite)
	}
	off := int64(id) * int64(d.blockSize)
	if _, err := d.f.WriteAt(buf, off); err != nil {
		return newError(KindIOError, "device.WriteBlock", err)
	}
	return nil
}

var _ BlockDevice = (*FileBlockDevice)(nil)
