package flash

import (
	"fmt"

	"github.com/daschewie/ipatch/pkg/config"
	"github.com/daschewie/ipatch/pkg/protocol"
)

// debugPort is the subset of *protocol.DebugPort that SerialDevice needs.
// Kept as an interface so tests can exercise SerialDevice without real
// hardware or a serial port.
type debugPort interface {
	ReadBlock(address uint32, length uint16) ([]byte, error)
	WriteBlock(address uint32, data []byte) error
	EraseSector(sector uint8) error
	ProgramSector(sector uint8) error
}

// SerialDevice adapts a debug-port connection into a flash.Partition. It
// generalizes the teacher's cmd/flash.go flashProgramSector loop: Write
// stages bytes into the target's RAM buffer via WriteBlock, then commits
// whole sectors with EraseSector/ProgramSector once the RAM buffer fills.
//
// base is the partition's starting offset in the device's flash address
// space, in bytes; sectorSize is the hardware's erase-sector size in bytes.
type SerialDevice struct {
	name       string
	dp         debugPort
	cfg        *config.Config
	base       int64
	length     int64
	sectorSize int
}

// NewSerialDevice wraps dp as a named Partition of length bytes starting at
// base within the target's flash address space.
func NewSerialDevice(name string, dp *protocol.DebugPort, cfg *config.Config, base, length int64) (*SerialDevice, error) {
	sectorSize := cfg.FlashSectorSize() * 1024
	if sectorSize == 0 {
		return nil, fmt.Errorf("flash: %s: target machine does not support sector programming (use --target)", name)
	}
	return &SerialDevice{name: name, dp: dp, cfg: cfg, base: base, length: length, sectorSize: sectorSize}, nil
}

func (d *SerialDevice) Name() string    { return d.name }
func (d *SerialDevice) Length() int64   { return d.length }
func (d *SerialDevice) SectorSize() int { return d.sectorSize }

func (d *SerialDevice) sectorOf(offset int64) uint8 {
	return uint8((d.base + offset) / int64(d.sectorSize))
}

// Read reads length(buf) bytes at offset, chunked to the configured
// ChunkSize since the debug-port protocol's length field is 16 bits.
func (d *SerialDevice) Read(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), d.length); err != nil {
		return err
	}
	chunk := d.cfg.ChunkSize
	if chunk <= 0 || chunk > 0xFFFF {
		chunk = 0xFFFF
	}
	read := 0
	for read < len(buf) {
		n := chunk
		if read+n > len(buf) {
			n = len(buf) - read
		}
		data, err := d.dp.ReadBlock(uint32(d.base+offset+int64(read)), uint16(n))
		if err != nil {
			return fmt.Errorf("flash: %s: read at %d: %w", d.name, offset+int64(read), err)
		}
		copy(buf[read:read+n], data)
		read += n
	}
	return nil
}

// Erase erases whole sectors covering [offset, offset+length). offset and
// length must be sector-aligned.
func (d *SerialDevice) Erase(offset, length int64) error {
	if err := checkRange(d.name, offset, length, d.length); err != nil {
		return err
	}
	if err := checkAligned(d.name, offset, length, d.sectorSize); err != nil {
		return err
	}
	sectors := length / int64(d.sectorSize)
	first := d.sectorOf(offset)
	for i := int64(0); i < sectors; i++ {
		if err := d.dp.EraseSector(first + uint8(i)); err != nil {
			return fmt.Errorf("flash: %s: erase sector %d: %w", d.name, first+uint8(i), err)
		}
	}
	return nil
}

// Write stages buf into the target's RAM buffer in ChunkSize pieces and
// programs whole sectors as the RAM buffer fills, exactly as the teacher's
// flashProgramSector did for a single fixed sector. offset must be
// sector-aligned; an unaligned offset is rejected with ErrNotAligned. In
// pkg/patch, RAMBuffer.DrainTo writes at committedLen, which stays aligned
// while the buffer is a whole number of sectors; FlashSwapBuffer's Append
// and its scratch-sized DrainTo chunks can pass offsets that are not.
func (d *SerialDevice) Write(offset int64, buf []byte) error {
	if err := checkRange(d.name, offset, int64(len(buf)), d.length); err != nil {
		return err
	}
	if offset%int64(d.sectorSize) != 0 {
		return &ErrNotAligned{Partition: d.name, Offset: offset, Length: int64(len(buf)), Sector: d.sectorSize}
	}

	ramCap := uint32(d.cfg.RAMSize() * 1024)
	currentSector := d.sectorOf(offset)
	ramAddress := uint32(0)

	chunk := d.cfg.ChunkSize
	if chunk <= 0 {
		chunk = 4096
	}

	written := 0
	for written < len(buf) {
		toWrite := chunk
		if toWrite > len(buf)-written {
			toWrite = len(buf) - written
		}
		if err := d.dp.WriteBlock(ramAddress, buf[written:written+toWrite]); err != nil {
			return fmt.Errorf("flash: %s: stage to RAM at %d: %w", d.name, ramAddress, err)
		}
		written += toWrite
		ramAddress += uint32(toWrite)

		if ramAddress >= ramCap {
			if err := d.programSector(currentSector); err != nil {
				return err
			}
			currentSector++
			ramAddress = 0
		}
	}

	if ramAddress > 0 {
		if err := d.programSector(currentSector); err != nil {
			return err
		}
	}

	return nil
}

// programSector commits the staged RAM buffer onto flash. Unlike the
// teacher's flashProgramSector (which always erases immediately before
// programming), this does not erase: Partition.Write's contract (§4.1)
// requires the caller to have already erased the target range, which
// pkg/patch's commit() always does before calling Write.
func (d *SerialDevice) programSector(sector uint8) error {
	if err := d.dp.ProgramSector(sector); err != nil {
		return fmt.Errorf("flash: %s: program sector %d: %w", d.name, sector, err)
	}
	return nil
}
