package nvm

import (
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// ErasedByte is the value block-erase storage reads as after an erase.
const ErasedByte = 0xFF

// BlockDevice is the storage boundary of the calibration store. The physical
// medium only supports whole-block erase followed by writes, never in-place
// mutation, so the interface exposes exactly that.
type BlockDevice interface {
	// BlockSize returns the erase granularity in bytes.
	BlockSize() int
	// Blocks returns the number of blocks reserved for the store.
	Blocks() int
	// ReadBlock copies block index into p (len(p) <= BlockSize).
	ReadBlock(index int, p []byte) error
	// WriteBlock writes p at the start of block index. The block must have
	// been erased first.
	WriteBlock(index int, p []byte) error
	// EraseBlock resets every byte of block index to ErasedByte.
	EraseBlock(index int) error
}

// MemDevice is an in-memory BlockDevice used by the simulator and tests.
// WriteHook, when set, is called before each individual byte is committed
// and can return an error to emulate power loss mid-write; bytes written up
// to that point remain, matching how a torn flash write behaves.
type MemDevice struct {
	mu        sync.Mutex
	blockSize int
	data      [][]byte

	WriteHook func(block, offset int) error
}

// NewMemDevice creates a MemDevice with the given geometry, fully erased.
func NewMemDevice(blockSize, blocks int) *MemDevice {
	d := &MemDevice{
		blockSize: blockSize,
		data:      make([][]byte, blocks),
	}
	for i := range d.data {
		d.data[i] = make([]byte, blockSize)
		for j := range d.data[i] {
			d.data[i][j] = ErasedByte
		}
	}
	return d
}

func (d *MemDevice) BlockSize() int { return d.blockSize }
func (d *MemDevice) Blocks() int    { return len(d.data) }

func (d *MemDevice) ReadBlock(index int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, len(p)); err != nil {
		return err
	}
	copy(p, d.data[index])
	return nil
}

func (d *MemDevice) WriteBlock(index int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, len(p)); err != nil {
		return err
	}
	for i, b := range p {
		if d.WriteHook != nil {
			if err := d.WriteHook(index, i); err != nil {
				return err
			}
		}
		d.data[index][i] = b
	}
	return nil
}

func (d *MemDevice) EraseBlock(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, 0); err != nil {
		return err
	}
	for i := range d.data[index] {
		d.data[index][i] = ErasedByte
	}
	return nil
}

func (d *MemDevice) check(index, n int) error {
	if index < 0 || index >= len(d.data) {
		return pkgerrors.Errorf("block index %d out of range [0,%d)", index, len(d.data))
	}
	if n > d.blockSize {
		return pkgerrors.Errorf("access of %d bytes exceeds block size %d", n, d.blockSize)
	}
	return nil
}

// FileDevice is a file-backed BlockDevice for hosts without raw flash. It
// reproduces erase-then-write semantics on top of a regular file so the
// store logic above it stays identical to the embedded target.
type FileDevice struct {
	mu        sync.Mutex
	f         *os.File
	blockSize int
	blocks    int
}

// OpenFileDevice opens (creating if needed) a file sized to hold the given
// geometry. New regions read as erased.
func OpenFileDevice(path string, blockSize, blocks int) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open storage file")
	}
	size := int64(blockSize * blocks)
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, pkgerrors.Wrap(err, "stat storage file")
	}
	if st.Size() < size {
		// Pad the fresh region with erased bytes.
		pad := make([]byte, size-st.Size())
		for i := range pad {
			pad[i] = ErasedByte
		}
		if _, err := f.WriteAt(pad, st.Size()); err != nil {
			f.Close()
			return nil, pkgerrors.Wrap(err, "initialize storage file")
		}
	}
	return &FileDevice{f: f, blockSize: blockSize, blocks: blocks}, nil
}

func (d *FileDevice) BlockSize() int { return d.blockSize }
func (d *FileDevice) Blocks() int    { return d.blocks }

func (d *FileDevice) ReadBlock(index int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, len(p)); err != nil {
		return err
	}
	_, err := d.f.ReadAt(p, int64(index*d.blockSize))
	return pkgerrors.Wrap(err, "read block")
}

func (d *FileDevice) WriteBlock(index int, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, len(p)); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(p, int64(index*d.blockSize)); err != nil {
		return pkgerrors.Wrap(err, "write block")
	}
	return pkgerrors.Wrap(d.f.Sync(), "sync block")
}

func (d *FileDevice) EraseBlock(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(index, 0); err != nil {
		return err
	}
	blank := make([]byte, d.blockSize)
	for i := range blank {
		blank[i] = ErasedByte
	}
	if _, err := d.f.WriteAt(blank, int64(index*d.blockSize)); err != nil {
		return pkgerrors.Wrap(err, "erase block")
	}
	return pkgerrors.Wrap(d.f.Sync(), "sync erase")
}

// Close releases the underlying file.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}

func (d *FileDevice) check(index, n int) error {
	if index < 0 || index >= d.blocks {
		return pkgerrors.Errorf("block index %d out of range [0,%d)", index, d.blocks)
	}
	if n > d.blockSize {
		return pkgerrors.Errorf("access of %d bytes exceeds block size %d", n, d.blockSize)
	}
	return nil
}
