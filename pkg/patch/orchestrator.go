package patch

import (
	"errors"
	"fmt"

	"github.com/daschewie/ipatch/pkg/config"
	"github.com/daschewie/ipatch/pkg/decoder"
	"github.com/daschewie/ipatch/pkg/flash"
)

// Options carries the compile-time configuration spec.md §6 enumerates:
// which buffer strategy to use and that strategy's parameters. Exactly one
// of the strategy-specific fields is consulted, selected by Strategy.
type Options struct {
	Strategy config.Strategy

	// Flash-swap (Strategy == config.StrategyFlashSwap).
	SwapPart        flash.Partition
	SwapOffset      int64
	CopyScratchSize int

	// RAM-buffer (Strategy == config.StrategyRAMBuffer).
	RAMBufferSize int64

	// Log receives progress and diagnostic lines (spec.md §6 "Observable
	// outputs"); nil discards them.
	Log Logger
}

// ReleasePatch is the core's single public entry point (spec.md §6):
// derive a new image of newerLen bytes by applying the patch found at
// patchPart[patchBase:patchBase+patchLen) against oldPart, committing the
// result onto oldPart in place.
func ReleasePatch(patchPart flash.Partition, patchBase, patchLen int64, oldPart flash.Partition, newerLen int64, opts Options) (Result, error) {
	buf, err := newCommitBuffer(oldPart, opts)
	if err != nil {
		result := ResultBufferAllocFailed
		if opts.Strategy == config.StrategyFlashSwap && opts.SwapPart == nil {
			result = ResultSwapPartitionMissing
		}
		return result, fail(result, err)
	}

	s := &session{
		patchPart:     patchPart,
		patchBase:     patchBase,
		patchTotalLen: patchLen,
		oldPart:       oldPart,
		newerTotalLen: newerLen,
		buffer:        buf,
		progressPercent: -1,
		log:           opts.Log,
	}

	if err := decoder.Run(s); err != nil {
		if s.lastErr != nil {
			return s.lastErr.(*Error).Result, s.lastErr
		}
		return ResultDecoderFailed, fail(ResultDecoderFailed, err)
	}

	if s.buffer.Fill() > 0 {
		if err := s.commit(); err != nil {
			return err.(*Error).Result, err
		}
	}

	if err := s.tailErase(); err != nil {
		s.logf("patch: tail erase warning: %v\n", err)
	}

	if s.committedLen != s.newerTotalLen {
		err := fail(ResultLengthMismatch, fmt.Errorf("committed %d bytes, expected %d", s.committedLen, s.newerTotalLen))
		return ResultLengthMismatch, err
	}

	return ResultOK, nil
}

// tailErase implements spec.md §4.7 step 4: erase the trailing portion of
// oldPart not covered by the (possibly shorter) new image. Failure here is
// a warning, never fatal to the session.
func (s *session) tailErase() error {
	if s.newerTotalLen >= s.oldPart.Length() {
		return nil
	}
	eraseStart := flash.RoundUpToSector(s.newerTotalLen, s.oldPart.SectorSize())
	if eraseStart >= s.oldPart.Length() {
		return nil
	}
	return s.oldPart.Erase(eraseStart, s.oldPart.Length()-eraseStart)
}

// newCommitBuffer constructs the CommitBuffer variant selected by
// opts.Strategy, matching spec.md §4.7 step 1's init algorithm.
func newCommitBuffer(oldPart flash.Partition, opts Options) (CommitBuffer, error) {
	switch opts.Strategy {
	case config.StrategyFlashSwap:
		if opts.SwapPart == nil {
			return nil, errors.New("swap partition not configured")
		}
		capacity := opts.SwapPart.Length() - opts.SwapOffset
		return NewFlashSwapBuffer(opts.SwapPart, opts.SwapOffset, capacity, opts.CopyScratchSize)

	case config.StrategyRAMBuffer:
		if opts.RAMBufferSize < int64(oldPart.SectorSize()) {
			return nil, fmt.Errorf("ram_buffer_size (%d) must be at least the old partition's sector size (%d)", opts.RAMBufferSize, oldPart.SectorSize())
		}
		return NewRAMBuffer(opts.RAMBufferSize), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
}
