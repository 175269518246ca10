package flash

import "fmt"

// MemDevice is an in-memory Partition, used by pkg/patch's unit tests where
// a temp file would only add I/O noise. Semantics match FileDevice: Erase
// sets the erased-state byte (0xFF), Write overwrites directly.
type MemDevice struct {
	name       string
	data       []byte
	sectorSize int
}

// NewMemDevice creates a MemDevice of the given length, pre-filled with data
// (or erased, if data is nil).
func NewMemDevice(name string, data []byte, length int64, sectorSize int) *MemDevice {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf, data)
	return &MemDevice{name: name, data: buf, sectorSize: sectorSize}
}

func (d *MemDevice) Name() string    { return d.name }
func (d *MemDevice) Length() int64   { return int64(len(d.data)) }
func (d *MemDevice) SectorSize() int { return d.sectorSize }

// Bytes returns the partition's full backing buffer. Callers must not
// mutate the returned slice.
func (d *MemDevice) Bytes() []byte { return d.data }

func (d *MemDevice) Read(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), int64(len(d.data))); err != nil {
		return err
	}
	copy(buf, d.data[offset:offset+int64(len(buf))])
	return nil
}

func (d *MemDevice) Erase(offset, length int64) error {
	if err := checkRange(d.name, offset, length, int64(len(d.data))); err != nil {
		return err
	}
	if err := checkAligned(d.name, offset, length, d.sectorSize); err != nil {
		return err
	}
	for i := offset; i < offset+length; i++ {
		d.data[i] = 0xFF
	}
	return nil
}

func (d *MemDevice) Write(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), int64(len(d.data))); err != nil {
		return err
	}
	copy(d.data[offset:offset+int64(len(buf))], buf)
	return nil
}

// TrackingPartition wraps a Partition and records, byte by byte, which
// offsets it has seen written (via Write or Erase). It is used by tests to
// assert the central safety invariant of SPEC_FULL.md §3/§8: no ReadOld call
// may ever target an address below committed_len, i.e. no byte that has
// already been overwritten.
type TrackingPartition struct {
	Partition
	// Overwritten marks, per byte offset, whether a Write or Erase has
	// touched it since the partition was created.
	Overwritten []bool
}

// NewTrackingPartition wraps p, sized for Length() bytes of tracking.
func NewTrackingPartition(p Partition) *TrackingPartition {
	return &TrackingPartition{Partition: p, Overwritten: make([]bool, p.Length())}
}

func (t *TrackingPartition) Erase(offset, length int64) error {
	if err := t.Partition.Erase(offset, length); err != nil {
		return err
	}
	t.mark(offset, length)
	return nil
}

func (t *TrackingPartition) Write(offset int64, buf []byte) error {
	if err := t.Partition.Write(offset, buf); err != nil {
		return err
	}
	t.mark(offset, int64(len(buf)))
	return nil
}

func (t *TrackingPartition) mark(offset, length int64) {
	for i := offset; i < offset+length; i++ {
		t.Overwritten[i] = true
	}
}

// CheckRead reports an error if any byte in [offset, offset+len(buf)) has
// already been overwritten — a violation of the central safety invariant.
func (t *TrackingPartition) CheckRead(offset int64, length int) error {
	for i := offset; i < offset+int64(length); i++ {
		if i >= 0 && i < int64(len(t.Overwritten)) && t.Overwritten[i] {
			return fmt.Errorf("flash: %s: read at offset %d observed a byte already overwritten by a commit", t.Partition.Name(), i)
		}
	}
	return nil
}

func (t *TrackingPartition) Read(offset int64, buf []byte) error {
	if err := t.CheckRead(offset, len(buf)); err != nil {
		return err
	}
	return t.Partition.Read(offset, buf)
}
