package bootjump

import (
	"encoding/binary"
	"testing"
)

func buildImage(sp, reset uint32) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], sp)
	binary.BigEndian.PutUint32(b[4:8], reset)
	return b
}

func TestReadVectors(t *testing.T) {
	img := buildImage(0x20001000, 0x00380010)
	v, err := ReadVectors(img)
	if err != nil {
		t.Fatalf("ReadVectors: %v", err)
	}
	if v.StackPointer != 0x20001000 || v.ResetVector != 0x00380010 {
		t.Fatalf("got %+v", v)
	}
}

func TestReadVectorsTooShort(t *testing.T) {
	if _, err := ReadVectors([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a too-short image")
	}
}

func TestValidate(t *testing.T) {
	ram := []Region{{Name: "ram", Base: 0x20000000, Len: 0x00010000}}
	flashRegions := []Region{{Name: "app", Base: 0x00380000, Len: 0x00080000}}

	good := Vectors{StackPointer: 0x20001000, ResetVector: 0x00380010}
	if err := Validate(good, ram, flashRegions); err != nil {
		t.Fatalf("expected valid vectors to pass, got %v", err)
	}

	badSP := Vectors{StackPointer: 0x00380010, ResetVector: 0x00380010}
	if err := Validate(badSP, ram, flashRegions); err == nil {
		t.Fatal("expected a stack-pointer-out-of-region error")
	}

	badReset := Vectors{StackPointer: 0x20001000, ResetVector: 0xFFFFFFFF}
	if err := Validate(badReset, ram, flashRegions); err == nil {
		t.Fatal("expected a reset-vector-out-of-region error")
	}
}
