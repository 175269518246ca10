package patch

// ReadPatch implements the Patch Stream Reader (C3): sequential reads of
// the patch payload from patchPart, windowed to [patchBase, patchBase+
// patchTotalLen). Reads past the end of the window are benign and report
// EOF rather than an error, matching spec.md §4.3.
func (s *session) ReadPatch(buf []byte) (int, bool) {
	remaining := s.patchTotalLen - s.patchReadPos
	n := int64(len(buf))
	if n > remaining {
		n = remaining
	}
	if n == 0 {
		return 0, true
	}

	if err := s.patchPart.Read(s.patchBase+s.patchReadPos, buf[:n]); err != nil {
		s.logf("patch: failed to read patch stream at offset %d: %v\n", s.patchReadPos, err)
		s.lastErr = fail(ResultFlashReadFailed, err)
		return 0, false
	}
	s.patchReadPos += n
	return int(n), true
}
