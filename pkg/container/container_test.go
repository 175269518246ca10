package container

import (
	"bytes"
	"testing"
)

func TestWrapParseRoundTrip(t *testing.T) {
	payload := []byte("a patch payload, just some bytes")
	wrapped := Wrap(payload)

	h, got, err := Parse(wrapped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Size != uint32(len(payload)) {
		t.Fatalf("Size = %d, want %d", h.Size, len(payload))
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
	if err := Validate(h, got); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseTooShort(t *testing.T) {
	if _, _, err := Parse([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for data shorter than the header")
	}
}

func TestParseTruncatedPayload(t *testing.T) {
	wrapped := Wrap([]byte("0123456789"))
	if _, _, err := Parse(wrapped[:HeaderSize+5]); err == nil {
		t.Fatal("expected an error when the payload is shorter than the header declares")
	}
}

func TestValidateCRCMismatch(t *testing.T) {
	payload := []byte("original")
	h, _, err := Parse(Wrap(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Validate(h, []byte("tampered")); err == nil {
		t.Fatal("expected a CRC mismatch error")
	}
}
