package flash

import (
	"os"
	"testing"
)

func TestRoundUpToSector(t *testing.T) {
	cases := []struct{ n, sector, want int64 }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
		{70000, 4096, 73728},
	}
	for _, c := range cases {
		if got := RoundUpToSector(c.n, int(c.sector)); got != c.want {
			t.Errorf("RoundUpToSector(%d,%d) = %d, want %d", c.n, c.sector, got, c.want)
		}
	}
}

func TestMemDeviceReadWriteErase(t *testing.T) {
	d := NewMemDevice("test", nil, 4096, 4096)
	if err := d.Write(0, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 5)
	if err := d.Read(0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}
	if err := d.Erase(0, 4096); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	for i, b := range d.Bytes() {
		if b != 0xFF {
			t.Fatalf("byte %d not erased: 0x%02X", i, b)
		}
	}
}

func TestMemDeviceOutOfRange(t *testing.T) {
	d := NewMemDevice("test", nil, 16, 16)
	if err := d.Read(10, make([]byte, 10)); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestMemDeviceEraseUnaligned(t *testing.T) {
	d := NewMemDevice("test", nil, 8192, 4096)
	if err := d.Erase(1, 4096); err == nil {
		t.Fatal("expected an alignment error")
	}
}

func TestTrackingPartitionDetectsStaleRead(t *testing.T) {
	d := NewMemDevice("test", []byte("0123456789abcdef"), 4096, 4096)
	tp := NewTrackingPartition(d)

	if err := tp.Write(0, []byte("ABCD")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Reading a byte within the overwritten range must fail.
	if err := tp.Read(2, make([]byte, 2)); err == nil {
		t.Fatal("expected a stale-read error after overwrite")
	}
	// Reading past the overwritten range is fine.
	if err := tp.Read(4, make([]byte, 4)); err != nil {
		t.Fatalf("Read past overwritten range: %v", err)
	}
}

func TestFileDeviceReadWriteErase(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "flash-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	d, err := NewFileDevice("test", f, 8192, 4096)
	if err != nil {
		t.Fatalf("NewFileDevice: %v", err)
	}
	if err := d.Write(4096, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 7)
	if err := d.Read(4096, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "payload" {
		t.Fatalf("got %q", buf)
	}
	if err := d.Erase(0, 4096); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	erased := make([]byte, 4096)
	if err := d.Read(0, erased); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range erased {
		if b != 0xFF {
			t.Fatalf("byte %d not erased: 0x%02X", i, b)
		}
	}
}
