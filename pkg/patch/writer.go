package patch

import "github.com/daschewie/ipatch/pkg/flash"

// WriteNew implements the New-Writer Callback (C6): it stages decoder
// output into the commit buffer and drains the buffer onto oldPart
// whenever it fills, per the common algorithm in spec.md §4.5 shared by
// both buffer variants.
func (s *session) WriteNew(data []byte) bool {
	originalSize := int64(len(data))

	for len(data) > 0 {
		free := s.buffer.Capacity() - s.buffer.Fill()
		if free < int64(len(data)) {
			if free > 0 {
				if err := s.buffer.Append(data[:free]); err != nil {
					s.logf("patch: buffer append failed: %v\n", err)
					s.lastErr = fail(ResultFlashWriteFailed, err)
					return false
				}
				data = data[free:]
			}
			if err := s.commit(); err != nil {
				s.lastErr = err
				return false
			}
		} else {
			if err := s.buffer.Append(data); err != nil {
				s.logf("patch: buffer append failed: %v\n", err)
				s.lastErr = fail(ResultFlashWriteFailed, err)
				return false
			}
			data = nil
		}
	}

	s.newerWritePos += originalSize
	s.reportProgress()
	return true
}

// commit drains the buffer onto oldPart starting at committedLen, the heart
// of the design per spec.md §4.5: erase the destination range before
// copying into it, so the old bytes there are never visible as "live" once
// the new bytes have landed, then advance committedLen by however many
// bytes were actually buffered.
func (s *session) commit() error {
	fill := s.buffer.Fill()
	if fill == 0 {
		return nil
	}

	eraseLen := flash.RoundUpToSector(fill, s.oldPart.SectorSize())
	if err := s.oldPart.Erase(s.committedLen, eraseLen); err != nil {
		return fail(ResultFlashEraseFailed, err)
	}
	if err := s.buffer.DrainTo(s.oldPart, s.committedLen); err != nil {
		return fail(ResultFlashWriteFailed, err)
	}
	if err := s.buffer.Reset(); err != nil {
		return fail(ResultFlashEraseFailed, err)
	}

	s.committedLen += fill
	s.logf("patch: committed %d bytes (committed_len=%d)\n", fill, s.committedLen)
	return nil
}
