package decoder

// Encode produces a patch stream that Run will turn back into new when
// handed old as the ReadOld source. It is not a general-purpose diff tool —
// just enough of one to let pkg/patch's tests exercise the sourceRead and
// targetRead action kinds without depending on an external diffing library, which SPEC_FULL.md
// treats as out of scope for the core (§4.2: the decoder is a library the
// core only calls through).
//
// Two cases are handled, covering the shrink/grow firmware-update shapes in
// spec.md §8's scenarios:
//   - new is a prefix of old (a truncating update, or no change at all):
//     one sourceRead action copies the shared prefix straight from the old
//     image.
//   - otherwise: one targetRead action embeds new verbatim in the patch
//     stream. Still a valid, decodable patch; just not a compact one.
func Encode(old, newImg []byte) []byte {
	out := append([]byte{}, Magic[:]...)
	out = writeVarint(out, uint64(len(old)))
	out = writeVarint(out, uint64(len(newImg)))
	out = writeVarint(out, 0) // metadata_size

	if isPrefix(newImg, old) {
		out = writeAction(out, actionSourceRead, len(newImg))
		return out
	}

	out = writeAction(out, actionTargetRead, len(newImg))
	out = append(out, newImg...)
	return out
}

func isPrefix(prefix, full []byte) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}

// writeAction appends a BPS action header encoding kind and the number of
// bytes it covers (length-1, packed into the high bits per the format).
func writeAction(out []byte, kind int, length int) []byte {
	header := uint64(length-1)<<2 | uint64(kind)
	return writeVarint(out, header)
}
