// Package patch implements the in-place differential firmware update core:
// it streams a binary patch against an old flash image, derives the new
// image through an external decoder, and commits the result back onto the
// same partition it is reading from, one sector-aligned chunk at a time.
//
// The central guarantee, enforced by the commit buffer (CommitBuffer) and
// the orchestrator's commit protocol, is that no byte of the old image is
// ever overwritten before the decoder has logically advanced past it.
package patch

import (
	"fmt"

	"github.com/daschewie/ipatch/pkg/flash"
)

// Result is the outcome of a patch session. It replaces the inverted
// boolean convention of hand-rolled success codes with an explicit enum,
// so a caller cannot mistake "0" for failure or success by habit.
type Result int

const (
	ResultOK Result = iota
	ResultSwapPartitionMissing
	ResultBufferAllocFailed
	ResultFlashEraseFailed
	ResultFlashWriteFailed
	ResultFlashReadFailed
	ResultDecoderFailed
	ResultLengthMismatch
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultSwapPartitionMissing:
		return "swap-partition-missing"
	case ResultBufferAllocFailed:
		return "buffer-alloc-failed"
	case ResultFlashEraseFailed:
		return "flash-erase-failed"
	case ResultFlashWriteFailed:
		return "flash-write-failed"
	case ResultFlashReadFailed:
		return "flash-read-failed"
	case ResultDecoderFailed:
		return "decoder-failed"
	case ResultLengthMismatch:
		return "length-mismatch"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Error wraps a non-OK Result with the underlying cause, so callers that
// want the plain Result for branching can still get a descriptive message
// via Error().
type Error struct {
	Result Result
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("patch: %s: %v", e.Result, e.Cause)
	}
	return fmt.Sprintf("patch: %s", e.Result)
}

func (e *Error) Unwrap() error { return e.Cause }

func fail(result Result, cause error) error { return &Error{Result: result, Cause: cause} }

// Logger matches the teacher's printInfo/printError shape (cmd/root.go):
// plain Printf-style formatting, with quiet-mode and destination decided by
// the caller rather than by this package.
type Logger func(format string, args ...interface{})

// session is the Session State of spec.md §3: created at session start,
// destroyed at session end, the sole record of in-flight progress.
type session struct {
	patchPart     flash.Partition
	patchBase     int64
	patchTotalLen int64
	patchReadPos  int64

	oldPart flash.Partition

	newerTotalLen int64
	newerWritePos int64
	committedLen  int64

	// buffer is the single source of truth for buffer_capacity/buffer_fill
	// (§3); the session queries it directly rather than shadowing its state.
	buffer CommitBuffer

	progressPercent int

	// lastErr records the first fatal error encountered by a callback, since
	// decoder.Sink's methods can only report failure as a bool (§4.2); the
	// orchestrator surfaces this as the session's real Result after Run
	// returns.
	lastErr error

	log Logger
}

func (s *session) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log(format, args...)
	}
}
