package patch

import (
	"fmt"

	"github.com/daschewie/ipatch/pkg/flash"
)

// CommitBuffer is the abstract side-buffer capability spec.md §9 asks for:
// one interface shared by both storage strategies, so commit() and WriteNew
// (§4.5/§4.6) are written once instead of duplicated per variant.
//
//   - Capacity/Fill: current bound and occupancy, mirroring Session State's
//     buffer_capacity/buffer_fill (§3).
//   - Append: stages bytes into the buffer. Callers must never call it with
//     more bytes than Capacity()-Fill() remaining.
//   - DrainTo: transfers all Fill() buffered bytes onto dst at dstOffset.
//     For the flash-swap variant this also re-erases the swap region in the
//     same step (spec.md §9: "drain_to as chunked flash-to-flash copy plus
//     swap re-erase"); for the RAM variant it is a single partition write.
//   - Reset: zeroes Fill(). For RAM this is the only cleanup needed; for
//     flash-swap the swap region was already re-erased inside DrainTo, so
//     Reset here only clears the in-memory counter.
type CommitBuffer interface {
	Capacity() int64
	Fill() int64
	Append(data []byte) error
	DrainTo(dst flash.Partition, dstOffset int64) error
	Reset() error
}

// FlashSwapBuffer is Variant A (spec.md §4.5): a commit buffer backed by a
// dedicated swap partition. Capacity is fixed at construction; Append
// writes directly to the swap partition, DrainTo copies the buffered range
// from swap onto the destination partition through a fixed-size RAM
// scratch buffer and then re-erases the swap region.
type FlashSwapBuffer struct {
	swapPart    flash.Partition
	swapBase    int64
	capacity    int64
	scratchSize int
	fill        int64
}

// NewFlashSwapBuffer wraps swapPart[swapBase:swapBase+capacity) as a commit
// buffer, erasing it once up front as spec.md §4.7 step 1 requires.
func NewFlashSwapBuffer(swapPart flash.Partition, swapBase, capacity int64, scratchSize int) (*FlashSwapBuffer, error) {
	if swapPart == nil {
		return nil, fmt.Errorf("patch: flash-swap buffer requires a swap partition")
	}
	if scratchSize <= 0 {
		scratchSize = 4096
	}
	b := &FlashSwapBuffer{swapPart: swapPart, swapBase: swapBase, capacity: capacity, scratchSize: scratchSize}
	if err := swapPart.Erase(swapBase, capacity); err != nil {
		return nil, fmt.Errorf("patch: initial swap erase: %w", err)
	}
	return b, nil
}

func (b *FlashSwapBuffer) Capacity() int64 { return b.capacity }
func (b *FlashSwapBuffer) Fill() int64     { return b.fill }

func (b *FlashSwapBuffer) Append(data []byte) error {
	if err := b.swapPart.Write(b.swapBase+b.fill, data); err != nil {
		return fmt.Errorf("patch: append to swap buffer: %w", err)
	}
	b.fill += int64(len(data))
	return nil
}

// DrainTo copies the buffered range from the swap partition onto dst
// through a fixed-size scratch buffer (spec.md §4.5 "Flash-to-flash copy"),
// then re-erases the whole swap region so it is ready for the next fill.
func (b *FlashSwapBuffer) DrainTo(dst flash.Partition, dstOffset int64) error {
	scratch := make([]byte, b.scratchSize)
	var copied int64
	for copied < b.fill {
		n := int64(len(scratch))
		if copied+n > b.fill {
			n = b.fill - copied
		}
		chunk := scratch[:n]
		if err := b.swapPart.Read(b.swapBase+copied, chunk); err != nil {
			return fmt.Errorf("patch: read swap buffer at %d: %w", copied, err)
		}
		if err := dst.Write(dstOffset+copied, chunk); err != nil {
			return fmt.Errorf("patch: write %s at %d: %w", dst.Name(), dstOffset+copied, err)
		}
		copied += n
	}
	if err := b.swapPart.Erase(b.swapBase, b.capacity); err != nil {
		return fmt.Errorf("patch: re-erase swap buffer: %w", err)
	}
	return nil
}

func (b *FlashSwapBuffer) Reset() error {
	b.fill = 0
	return nil
}

// RAMBuffer is Variant B (spec.md §4.5): a commit buffer backed by a plain
// in-memory slice. Append is a memcpy; DrainTo is a single partition write.
type RAMBuffer struct {
	data []byte
	fill int64
}

// NewRAMBuffer allocates a capacity-byte RAM buffer. Capacity must be at
// least the old partition's sector size for the commit protocol to
// terminate (spec.md §4.5 Variant B); callers are expected to have checked
// that before construction.
func NewRAMBuffer(capacity int64) *RAMBuffer {
	return &RAMBuffer{data: make([]byte, capacity)}
}

func (b *RAMBuffer) Capacity() int64 { return int64(len(b.data)) }
func (b *RAMBuffer) Fill() int64     { return b.fill }

func (b *RAMBuffer) Append(data []byte) error {
	copy(b.data[b.fill:], data)
	b.fill += int64(len(data))
	return nil
}

func (b *RAMBuffer) DrainTo(dst flash.Partition, dstOffset int64) error {
	if err := dst.Write(dstOffset, b.data[:b.fill]); err != nil {
		return fmt.Errorf("patch: write %s at %d: %w", dst.Name(), dstOffset, err)
	}
	return nil
}

func (b *RAMBuffer) Reset() error {
	b.fill = 0
	return nil
}
