// Package flash provides the partition abstraction the patch engine reads
// from and writes to: sector-aligned read/erase/write against a named
// region of flash, plus the device's erase-block size.
package flash

import "fmt"

// Device exposes the erase-block (sector) size of the underlying flash chip.
// A Partition's operations are only guaranteed to be valid when offset and
// length passed to Erase are whole multiples of SectorSize.
type Device interface {
	SectorSize() int
}

// Partition is a named, contiguous region of flash. Implementations are not
// required to be safe for concurrent use: the patch engine is the sole
// writer to a partition for the lifetime of a session (see SPEC_FULL.md,
// Concurrency & Resource Model).
type Partition interface {
	Device

	// Name identifies the partition, for error messages and logging.
	Name() string

	// Length returns the partition's total addressable size in bytes.
	Length() int64

	// Read fills buf with length bytes starting at offset. No alignment
	// requirement.
	Read(offset int64, buf []byte) error

	// Erase erases whole sectors covering [offset, offset+length). Callers
	// MUST pass sector-aligned offset and length.
	Erase(offset int64, length int64) error

	// Write writes buf to flash starting at offset. The caller guarantees
	// the target range is already in the erased state.
	Write(offset int64, buf []byte) error
}

// ErrOutOfRange is returned when a read/erase/write range falls outside a
// partition's bounds.
type ErrOutOfRange struct {
	Partition string
	Offset    int64
	Length    int64
	Bound     int64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("flash: %s: range [%d,%d) exceeds partition bound %d",
		e.Partition, e.Offset, e.Offset+e.Length, e.Bound)
}

// ErrNotAligned is returned when Erase is called with an offset or length
// that is not a whole multiple of the partition's sector size.
type ErrNotAligned struct {
	Partition string
	Offset    int64
	Length    int64
	Sector    int
}

func (e *ErrNotAligned) Error() string {
	return fmt.Sprintf("flash: %s: erase range [offset=%d len=%d) is not sector-aligned (sector=%d)",
		e.Partition, e.Offset, e.Length, e.Sector)
}

// checkRange validates offset/length against a partition's length.
func checkRange(name string, offset, length, bound int64) error {
	if offset < 0 || length < 0 || offset+length > bound {
		return &ErrOutOfRange{Partition: name, Offset: offset, Length: length, Bound: bound}
	}
	return nil
}

// checkAligned validates that offset and length are whole multiples of sectorSize.
func checkAligned(name string, offset, length int64, sectorSize int) error {
	s := int64(sectorSize)
	if offset%s != 0 || length%s != 0 {
		return &ErrNotAligned{Partition: name, Offset: offset, Length: length, Sector: sectorSize}
	}
	return nil
}

// RoundUpToSector rounds n up to the next whole multiple of sectorSize.
func RoundUpToSector(n int64, sectorSize int) int64 {
	s := int64(sectorSize)
	if s <= 0 {
		return n
	}
	rem := n % s
	if rem == 0 {
		return n
	}
	return n + (s - rem)
}
