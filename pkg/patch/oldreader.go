package patch

// ReadOld implements the Old Reader (C4): a direct pass-through to
// oldPart.Read. Correctness depends on the central safety invariant
// (spec.md §3/§4.4) holding on the decoder's side — it must never request
// an address below committedLen, since that range has already been
// overwritten by a commit. This implementation does not enforce that
// itself (spec.md §4.4 notes production code need not); tests exercise it
// against flash.TrackingPartition, which does.
func (s *session) ReadOld(addr int64, buf []byte) bool {
	if err := s.oldPart.Read(addr, buf); err != nil {
		s.logf("patch: failed to read old image at offset %d: %v\n", addr, err)
		s.lastErr = fail(ResultFlashReadFailed, err)
		return false
	}
	return true
}
