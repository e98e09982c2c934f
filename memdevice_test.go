package tfs

import "testing"

// memDevice is an in-memory BlockDevice for tests that don't want to
// touch the filesystem, grounded on the mock io.ReaderAt pattern the
// teacher repo's mock_test.go uses for error-path testing.
type memDevice struct {
	blocks map[uint32][]byte
}

func newMemDevice(t *testing.T) *memDevice {
	t.Helper()
	return &memDevice{blocks: make(map[uint32][]byte)}
}

func (d *memDevice) Init(path string) error { return nil }
func (d *memDevice) Open(path string) error { return nil }
func (d *memDevice) Close() error           { return nil }

func (d *memDevice) ReadBlock(id uint32, buf []byte) error {
	b, ok := d.blocks[id]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, b)
	return nil
}

func (d *memDevice) WriteBlock(id uint32, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.blocks[id] = cp
	return nil
}

var _ BlockDevice = (*memDevice)(nil)
