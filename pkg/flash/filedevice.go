package flash

import (
	"fmt"
	"os"
)

// FileDevice is a host-file-backed Partition. It simulates a flash device on
// disk: Erase writes 0xFF over the target range (the erased-state byte for
// NOR flash) and Write overwrites bytes directly, with no write-to-erased-
// range enforcement beyond what callers already guarantee. It is what the
// `verify` command runs against in place of real hardware; pkg/patch's tests
// use the in-memory MemDevice instead.
type FileDevice struct {
	name       string
	file       *os.File
	length     int64
	sectorSize int
}

// NewFileDevice creates a FileDevice backed by the given file, sized to
// length bytes (the file is truncated or extended as needed) with the given
// erase-sector size.
func NewFileDevice(name string, f *os.File, length int64, sectorSize int) (*FileDevice, error) {
	if err := f.Truncate(length); err != nil {
		return nil, fmt.Errorf("flash: %s: truncate to %d: %w", name, length, err)
	}
	return &FileDevice{name: name, file: f, length: length, sectorSize: sectorSize}, nil
}

func (d *FileDevice) Name() string     { return d.name }
func (d *FileDevice) Length() int64    { return d.length }
func (d *FileDevice) SectorSize() int  { return d.sectorSize }

func (d *FileDevice) Read(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), d.length); err != nil {
		return err
	}
	if _, err := d.file.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("flash: %s: read at %d: %w", d.name, offset, err)
	}
	return nil
}

func (d *FileDevice) Erase(offset, length int64) error {
	if err := checkRange(d.name, offset, length, d.length); err != nil {
		return err
	}
	if err := checkAligned(d.name, offset, length, d.sectorSize); err != nil {
		return err
	}
	blank := make([]byte, length)
	for i := range blank {
		blank[i] = 0xFF
	}
	if _, err := d.file.WriteAt(blank, offset); err != nil {
		return fmt.Errorf("flash: %s: erase at %d: %w", d.name, offset, err)
	}
	return nil
}

func (d *FileDevice) Write(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), d.length); err != nil {
		return err
	}
	if _, err := d.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("flash: %s: write at %d: %w", d.name, offset, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error {
	return d.file.Close()
}
