package decoder

import (
	"bytes"
	"testing"
)

// fakeSink is an in-memory Sink: ReadPatch streams from a fixed buffer,
// ReadOld serves from a fixed old image, WriteNew appends to a growing
// buffer. It mirrors the style of the teacher's table-driven tests that
// stand up a small in-memory fixture rather than touching real hardware.
type fakeSink struct {
	patch   []byte
	old     []byte
	new     []byte
	failOld bool
	failNew bool
}

func (s *fakeSink) ReadPatch(buf []byte) (int, bool) {
	n := copy(buf, s.patch)
	s.patch = s.patch[n:]
	return n, true
}

func (s *fakeSink) ReadOld(addr int64, buf []byte) bool {
	if s.failOld {
		return false
	}
	if addr < 0 || addr+int64(len(buf)) > int64(len(s.old)) {
		return false
	}
	copy(buf, s.old[addr:addr+int64(len(buf))])
	return true
}

func (s *fakeSink) WriteNew(buf []byte) bool {
	if s.failNew {
		return false
	}
	s.new = append(s.new, buf...)
	return true
}

func TestRunSourceReadIdentity(t *testing.T) {
	old := []byte("the quick brown fox")
	patch := Encode(old, old)

	sink := &fakeSink{patch: patch, old: old}
	if err := Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(sink.new, old) {
		t.Fatalf("got %q, want %q", sink.new, old)
	}
}

func TestRunSourceReadTruncate(t *testing.T) {
	old := []byte("the quick brown fox jumps over")
	newImg := old[:10]
	patch := Encode(old, newImg)

	sink := &fakeSink{patch: patch, old: old}
	if err := Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(sink.new, newImg) {
		t.Fatalf("got %q, want %q", sink.new, newImg)
	}
}

func TestRunTargetReadFallback(t *testing.T) {
	old := []byte("aaaaaaaaaa")
	newImg := []byte("completely different content")
	patch := Encode(old, newImg)

	sink := &fakeSink{patch: patch, old: old}
	if err := Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(sink.new, newImg) {
		t.Fatalf("got %q, want %q", sink.new, newImg)
	}
}

func TestRunSourceCopyBackreference(t *testing.T) {
	old := []byte("0123456789ABCDEF")
	newImg := []byte("89ABCDEF")

	out := append([]byte{}, Magic[:]...)
	out = writeVarint(out, uint64(len(old)))
	out = writeVarint(out, uint64(len(newImg)))
	out = writeVarint(out, 0)
	out = writeAction(out, actionSourceCopy, len(newImg))
	out = writeVarint(out, uint64(8)<<1) // +8, forward, even = positive

	sink := &fakeSink{patch: out, old: old}
	if err := Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(sink.new, newImg) {
		t.Fatalf("got %q, want %q", sink.new, newImg)
	}
}

func TestRunTargetCopyRunLength(t *testing.T) {
	// First action emits "A" via targetRead, second replays it 4 more times
	// via a targetCopy starting at offset 0 that overlaps the bytes it is
	// producing, the classic BPS run-length-encoding idiom for repeated bytes.
	old := []byte{}
	newImg := []byte("AAAAA")

	out := append([]byte{}, Magic[:]...)
	out = writeVarint(out, uint64(len(old)))
	out = writeVarint(out, uint64(len(newImg)))
	out = writeVarint(out, 0)
	out = writeAction(out, actionTargetRead, 1)
	out = append(out, 'A')
	out = writeAction(out, actionTargetCopy, 4)
	out = writeVarint(out, uint64(0)<<1) // delta=+0: the target offset starts at 0 and stays there

	sink := &fakeSink{patch: out, old: old}
	if err := Run(sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(sink.new, newImg) {
		t.Fatalf("got %q, want %q", sink.new, newImg)
	}
}

func TestRunBadMagic(t *testing.T) {
	sink := &fakeSink{patch: []byte("NOTA PATCH HEADER...."), old: nil}
	if err := Run(sink); err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestRunReadOldFailurePropagates(t *testing.T) {
	old := []byte("abcdefgh")
	patch := Encode(old, old)
	sink := &fakeSink{patch: patch, old: old, failOld: true}
	if err := Run(sink); err == nil {
		t.Fatal("expected error when ReadOld fails, got nil")
	}
}

func TestRunWriteNewFailurePropagates(t *testing.T) {
	old := []byte("abcdefgh")
	patch := Encode(old, old)
	sink := &fakeSink{patch: patch, old: old, failNew: true}
	if err := Run(sink); err == nil {
		t.Fatal("expected error when WriteNew fails, got nil")
	}
}

func TestRunSourceCopyOutOfRange(t *testing.T) {
	old := []byte("short")
	out := append([]byte{}, Magic[:]...)
	out = writeVarint(out, uint64(len(old)))
	out = writeVarint(out, 4)
	out = writeVarint(out, 0)
	out = writeAction(out, actionSourceCopy, 4)
	out = writeVarint(out, uint64(100)<<1)

	sink := &fakeSink{patch: out, old: old}
	if err := Run(sink); err == nil {
		t.Fatal("expected out-of-range error, got nil")
	}
}
