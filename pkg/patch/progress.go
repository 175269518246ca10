package patch

// reportProgress implements spec.md §4.5's progress reporting: quantised to
// integer percent, emitted only when a new 5%-aligned bucket is crossed.
// progressPercent starts at -1 (set in ReleasePatch) so the first bucket
// reached is always emitted, 0% included when the first write is under 5%.
func (s *session) reportProgress() {
	if s.newerTotalLen <= 0 {
		return
	}
	percent := int(s.newerWritePos * 100 / s.newerTotalLen)
	bucket := (percent / 5) * 5
	if bucket <= s.progressPercent {
		return
	}
	s.progressPercent = bucket
	s.logf("Buffering... %d%%\n", bucket)
}
