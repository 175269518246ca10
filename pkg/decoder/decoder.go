// Package decoder implements the delta-decoder contract of SPEC_FULL.md
// (spec.md §4.2): a streaming consumer of a patch payload that derives a new
// image from an old one, driven entirely through three caller-supplied
// callbacks. SPEC_FULL.md treats the real decoder as an external library;
// this package is the reference implementation that exercises that contract
// end to end, so pkg/patch has something concrete to run against.
//
// The wire format is a streaming rework of the BPS patch format (see
// _examples/other_examples' mgius-bps/bps.go): the same four action kinds
// and the same variable-length integer encoding, but driven by callbacks
// instead of slurping the whole source and patch into memory.
package decoder

import (
	"fmt"
)

// Sink is the set of callbacks a Decoder drives. It mirrors spec.md §4.2:
// ReadPatch streams the patch payload sequentially, ReadOld is random
// access into the (logically unchanged) old image, and WriteNew is a
// strictly sequential append of new bytes.
type Sink interface {
	// ReadPatch fills buf with up to len(buf) bytes from the patch stream,
	// returning the number of bytes actually read. n==0 with ok==true
	// signals end of stream. ok==false signals a read failure.
	ReadPatch(buf []byte) (n int, ok bool)

	// ReadOld fills buf with length(buf) bytes from the old image starting
	// at the absolute byte address addr. Returns false on failure.
	ReadOld(addr int64, buf []byte) bool

	// WriteNew appends buf to the new image. Returns false on failure.
	WriteNew(buf []byte) bool
}

// Magic is the four-byte signature every patch stream starts with.
var Magic = [4]byte{'B', 'P', 'S', '1'}

// Action kinds, matching the BPS action stream (2 low bits of each action
// header).
const (
	actionSourceRead = iota
	actionTargetRead
	actionSourceCopy
	actionTargetCopy
)

// ErrDecode wraps a failure encountered while interpreting the patch stream
// itself (bad magic, truncated varint, a callback reporting failure).
type ErrDecode struct {
	Msg string
}

func (e *ErrDecode) Error() string { return "decoder: " + e.Msg }

// Run drives sink through one full decode: consumes the patch stream,
// requests old-image bytes as the action stream calls for them, and emits
// exactly TargetSize new bytes via WriteNew. It is invoked once per session,
// matching spec.md §4.2's "the decoder is invoked once per session".
func Run(sink Sink) error {
	r := &streamReader{sink: sink}

	var magic [4]byte
	if err := r.readFull(magic[:]); err != nil {
		return err
	}
	if magic != Magic {
		return &ErrDecode{Msg: "bad magic header"}
	}

	sourceSize, err := r.readVarint()
	if err != nil {
		return err
	}
	targetSize, err := r.readVarint()
	if err != nil {
		return err
	}
	metadataSize, err := r.readVarint()
	if err != nil {
		return err
	}
	if metadataSize > 0 {
		if _, err := r.readN(int(metadataSize)); err != nil {
			return err
		}
	}

	var (
		outputOffset int64
		sourceOffset int64
		targetOffset int64
	)

	for outputOffset < int64(targetSize) {
		header, err := r.readVarint()
		if err != nil {
			return err
		}
		actionNum := header & 0b11
		length := int64(header>>2) + 1
		if outputOffset+length > int64(targetSize) {
			return &ErrDecode{Msg: fmt.Sprintf("action at offset %d overruns target size %d", outputOffset, targetSize)}
		}

		switch actionNum {
		case actionSourceRead:
			buf := make([]byte, length)
			if !sink.ReadOld(outputOffset, buf) {
				return &ErrDecode{Msg: fmt.Sprintf("ReadOld failed at %d", outputOffset)}
			}
			if !sink.WriteNew(buf) {
				return &ErrDecode{Msg: "WriteNew failed"}
			}
			r.emitted = append(r.emitted, buf...)
			outputOffset += length

		case actionTargetRead:
			buf, err := r.readN(int(length))
			if err != nil {
				return err
			}
			if !sink.WriteNew(buf) {
				return &ErrDecode{Msg: "WriteNew failed"}
			}
			r.emitted = append(r.emitted, buf...)
			outputOffset += length

		case actionSourceCopy:
			delta, err := r.readVarint()
			if err != nil {
				return err
			}
			if delta&1 == 1 {
				sourceOffset -= int64(delta >> 1)
			} else {
				sourceOffset += int64(delta >> 1)
			}
			if sourceOffset < 0 || sourceOffset+length > int64(sourceSize) {
				return &ErrDecode{Msg: fmt.Sprintf("sourceCopy out of range: offset=%d length=%d source=%d", sourceOffset, length, sourceSize)}
			}
			buf := make([]byte, length)
			if !sink.ReadOld(sourceOffset, buf) {
				return &ErrDecode{Msg: fmt.Sprintf("ReadOld failed at %d", sourceOffset)}
			}
			if !sink.WriteNew(buf) {
				return &ErrDecode{Msg: "WriteNew failed"}
			}
			r.emitted = append(r.emitted, buf...)
			sourceOffset += length
			outputOffset += length

		case actionTargetCopy:
			delta, err := r.readVarint()
			if err != nil {
				return err
			}
			if delta&1 == 1 {
				targetOffset -= int64(delta >> 1)
			} else {
				targetOffset += int64(delta >> 1)
			}
			// targetCopy may reference bytes written earlier in this same
			// decode (an overlapping run-length copy); the decoder keeps
			// its own record of what it has emitted so far to serve this,
			// since WriteNew (§4.2) is write-only from the sink's side.
			buf := make([]byte, length)
			for i := int64(0); i < length; i++ {
				if targetOffset < 0 || targetOffset >= int64(len(r.emitted)) {
					return &ErrDecode{Msg: fmt.Sprintf("targetCopy out of range: offset=%d", targetOffset)}
				}
				buf[i] = r.emitted[targetOffset]
				r.emitted = append(r.emitted, buf[i])
				targetOffset++
			}
			if !sink.WriteNew(buf) {
				return &ErrDecode{Msg: "WriteNew failed"}
			}
			outputOffset += length

		default:
			return &ErrDecode{Msg: fmt.Sprintf("unknown action %d", actionNum)}
		}
	}

	return nil
}

// streamReader buffers Sink.ReadPatch into a byte-at-a-time cursor and
// records every byte handed to WriteNew (via Run, not here) so targetCopy
// actions can serve overlapping self-references. It is the streaming
// counterpart of bps.go's bps_read_num, which operated on an in-memory
// slice instead of a callback.
type streamReader struct {
	sink    Sink
	pending []byte
	emitted []byte
}

func (r *streamReader) readByte() (byte, error) {
	for len(r.pending) == 0 {
		buf := make([]byte, 4096)
		n, ok := r.sink.ReadPatch(buf)
		if !ok {
			return 0, &ErrDecode{Msg: "ReadPatch failed"}
		}
		if n == 0 {
			return 0, &ErrDecode{Msg: "ReadPatch reached EOF unexpectedly"}
		}
		r.pending = buf[:n]
	}
	b := r.pending[0]
	r.pending = r.pending[1:]
	return b, nil
}

func (r *streamReader) readFull(buf []byte) error {
	got, err := r.readN(len(buf))
	if err != nil {
		return err
	}
	copy(buf, got)
	return nil
}

func (r *streamReader) readN(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// readVarint reads a BPS variable-length encoded integer: 7 data bits per
// byte, high bit set on the terminating byte, with the "add one as you go"
// quirk bps.go documents on bps_read_num.
func (r *streamReader) readVarint() (uint64, error) {
	var data uint64
	var shift uint64 = 1

	for {
		x, err := r.readByte()
		if err != nil {
			return 0, err
		}
		data += uint64(x&0x7f) * shift
		if x&0x80 == 0x80 {
			return data, nil
		}
		shift <<= 7
		data += shift
	}
}

// writeVarint serializes a uint64 using the same encoding readVarint
// expects, matching bps.go's bps_write_num.
func writeVarint(out []byte, num uint64) []byte {
	for {
		x := byte(num & 0x7f)
		num >>= 7
		if num == 0 {
			return append(out, 0x80|x)
		}
		out = append(out, x)
		num--
	}
}
