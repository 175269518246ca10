package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestIni(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "ipatch.ini")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write test ini: %v", err)
	}
	return path
}

// withIPatchHome points $IPATCH_HOME at dir for the duration of the test,
// restoring the previous value afterward.
func withIPatchHome(t *testing.T, dir string) {
	t.Helper()
	old, hadOld := os.LookupEnv("IPATCH_HOME")
	os.Setenv("IPATCH_HOME", dir)
	t.Cleanup(func() {
		if hadOld {
			os.Setenv("IPATCH_HOME", old)
		} else {
			os.Unsetenv("IPATCH_HOME")
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeTestIni(t, dir, "[DEFAULT]\n")
	withIPatchHome(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "COM3" {
		t.Errorf("Port = %q, want COM3", cfg.Port)
	}
	if cfg.DataRate != 6000000 {
		t.Errorf("DataRate = %d, want 6000000", cfg.DataRate)
	}
	if cfg.FlashSize != 524288 {
		t.Errorf("FlashSize = %d, want 524288", cfg.FlashSize)
	}
	if cfg.Strategy != StrategyRAMBuffer {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, StrategyRAMBuffer)
	}
	if cfg.SwapPartition != "" {
		t.Errorf("SwapPartition = %q, want empty", cfg.SwapPartition)
	}
	if cfg.SwapLength != 0 {
		t.Errorf("SwapLength = %d, want 0", cfg.SwapLength)
	}
	if cfg.RAMBufferSize != 8192 {
		t.Errorf("RAMBufferSize = %d, want 8192", cfg.RAMBufferSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	writeTestIni(t, dir, `[DEFAULT]
port = /dev/ttyUSB2
data_rate = 115200
flash_size = 1048576
address = 500000
strategy = flash-swap
swap_partition = 780000
swap_offset = 100
swap_length = 65536
copy_scratch_size = 512
ram_buffer_size = 16384
`)
	withIPatchHome(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "/dev/ttyUSB2" {
		t.Errorf("Port = %q, want /dev/ttyUSB2", cfg.Port)
	}
	if cfg.DataRate != 115200 {
		t.Errorf("DataRate = %d, want 115200", cfg.DataRate)
	}
	if cfg.FlashSize != 1048576 {
		t.Errorf("FlashSize = %d, want 1048576", cfg.FlashSize)
	}
	if cfg.Strategy != StrategyFlashSwap {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, StrategyFlashSwap)
	}
	if cfg.SwapPartition != "780000" {
		t.Errorf("SwapPartition = %q, want 780000", cfg.SwapPartition)
	}
	if cfg.SwapOffset != 100 {
		t.Errorf("SwapOffset = %d, want 100", cfg.SwapOffset)
	}
	if cfg.SwapLength != 65536 {
		t.Errorf("SwapLength = %d, want 65536", cfg.SwapLength)
	}
	if cfg.CopyScratchSize != 512 {
		t.Errorf("CopyScratchSize = %d, want 512", cfg.CopyScratchSize)
	}
	if cfg.RAMBufferSize != 16384 {
		t.Errorf("RAMBufferSize = %d, want 16384", cfg.RAMBufferSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	withIPatchHome(t, dir)

	// No ipatch.ini written anywhere reachable; Load should fail cleanly.
	// Guard against a stray ipatch.ini in the process's actual working
	// directory by running from a directory we know is empty.
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing ipatch.ini, got nil")
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		name           string
		machine        string
		wantPageSize   int
		wantSectorSize int
		wantRAMSize    int
	}{
		{"fnx1591", "fnx1591", 8, 32, 8},
		{"f256jr", "f256jr", 8, 8, 8},
		{"f256k", "f256k", 8, 8, 8},
		{"unknown falls back to defaults", "a2560", 0, 0, 8},
		{"case insensitive", "F256JR", 8, 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetTarget(tt.machine)
			if got := cfg.FlashPageSize(); got != tt.wantPageSize {
				t.Errorf("FlashPageSize() = %d, want %d", got, tt.wantPageSize)
			}
			if got := cfg.FlashSectorSize(); got != tt.wantSectorSize {
				t.Errorf("FlashSectorSize() = %d, want %d", got, tt.wantSectorSize)
			}
			if got := cfg.RAMSize(); got != tt.wantRAMSize {
				t.Errorf("RAMSize() = %d, want %d", got, tt.wantRAMSize)
			}
		})
	}
}

func TestCPUIsMotorolatype680X0(t *testing.T) {
	tests := []struct {
		cpu  string
		want bool
	}{
		{"m68k", true},
		{"68000", true},
		{"68040", true},
		{"68060", true},
		{"65c02", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := &Config{CPU: tt.cpu}
		if got := cfg.CPUIsMotorolatype680X0(); got != tt.want {
			t.Errorf("CPUIsMotorolatype680X0() for %q = %v, want %v", tt.cpu, got, tt.want)
		}
	}
}

func TestCPUIsM68k32(t *testing.T) {
	tests := []struct {
		cpu  string
		want bool
	}{
		{"68040", true},
		{"68060", true},
		{"68000", false},
		{"m68k", false},
	}

	for _, tt := range tests {
		cfg := &Config{CPU: tt.cpu}
		if got := cfg.CPUIsM68k32(); got != tt.want {
			t.Errorf("CPUIsM68k32() for %q = %v, want %v", tt.cpu, got, tt.want)
		}
	}
}
