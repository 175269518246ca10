// Package container implements the update-package wrapper around a patch
// payload: a fixed header carrying the payload's size and CRC32, used to
// detect a truncated or corrupted download before ever handing the payload
// to pkg/patch. spec.md §1 names this "the update-package container
// (wrapping a patch payload with a CRC/size header)" as an external
// collaborator specified only at interface; this package is that
// collaborator, grounded on the {CRC, Size} metadata record
// tinkerator-qftool/qftool.go reads and writes around each flashed section
// (MetaData.CRC/MetaData.Size, validated with xcrc32.NewCRC32).
package container

import (
	"encoding/binary"
	"fmt"

	"zappem.net/pub/debug/xcrc32"
)

// HeaderSize is the on-disk size of Header: two little-endian uint32
// fields, payload size then CRC32.
const HeaderSize = 8

// Header is the fixed-size metadata record prefixed to every patch payload
// shipped to the device.
type Header struct {
	Size uint32
	CRC  uint32
}

// Parse splits data into its Header and payload, validating only that data
// is long enough to hold Size bytes after the header — not that the CRC
// matches (callers that care about integrity call Validate separately, so
// a caller that only wants the payload bounds doesn't pay for a CRC scan).
func Parse(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, fmt.Errorf("container: %d bytes is shorter than the %d-byte header", len(data), HeaderSize)
	}
	h := Header{
		Size: binary.LittleEndian.Uint32(data[0:4]),
		CRC:  binary.LittleEndian.Uint32(data[4:8]),
	}
	payload := data[HeaderSize:]
	if uint32(len(payload)) < h.Size {
		return Header{}, nil, fmt.Errorf("container: header declares %d bytes but only %d are present", h.Size, len(payload))
	}
	return h, payload[:h.Size], nil
}

// Validate recomputes the CRC32 of payload and compares it against h.CRC.
func Validate(h Header, payload []byte) error {
	if uint32(len(payload)) != h.Size {
		return fmt.Errorf("container: payload is %d bytes, header declares %d", len(payload), h.Size)
	}
	_, crc := xcrc32.NewCRC32(payload)
	if crc != h.CRC {
		return fmt.Errorf("container: crc mismatch: got=0x%08x want=0x%08x", crc, h.CRC)
	}
	return nil
}

// Wrap builds a header+payload byte stream for payload, for use by tooling
// that produces update packages (e.g. a `release` command packaging a
// freshly generated patch before it is ever sent to the device).
func Wrap(payload []byte) []byte {
	_, crc := xcrc32.NewCRC32(payload)
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[4:8], crc)
	copy(out[HeaderSize:], payload)
	return out
}
