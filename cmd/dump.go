package cmd

import (
	"fmt"
	"os"

	"github.com/daschewie/ipatch/pkg/connection"
	"github.com/daschewie/ipatch/pkg/protocol"
	"github.com/daschewie/ipatch/pkg/util"
	"github.com/spf13/cobra"
	"zappem.net/pub/debug/xxd"
)

var (
	dumpAddress string
	dumpCount   string
	dumpFile    string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read and display memory from specified address",
	Long: `Read a block of memory from the Foenix hardware and display it in hex dump format.

With --file, reads from a host file instead of live hardware (no connection
needed) — useful for inspecting a partition image or a verify --out result.

Example:
  ipatch dump --address 380000 --count 100
  ipatch dump --file old.bin --address 0 --count 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpFile != "" {
			return runDumpFile()
		}

		// Validate flags
		if err := validateConnectionFlags(); err != nil {
			return err
		}

		if dumpAddress == "" {
			// Use default address from config
			dumpAddress = cfg.Address
		}

		if dumpCount == "" {
			dumpCount = "10" // Default to 16 bytes (0x10)
		}

		// Parse address and count
		addr, err := util.ParseHexAddress(dumpAddress)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		count, err := util.ParseHexSize(dumpCount)
		if err != nil {
			return fmt.Errorf("invalid count: %w", err)
		}

		// Create connection
		conn := connection.NewConnection(cfg.Port)
		if err := conn.Open(cfg.Port); err != nil {
			return fmt.Errorf("failed to open connection: %w", err)
		}
		defer conn.Close()

		// Create protocol handler
		dp := protocol.NewDebugPort(conn, cfg)

		// Enter debug mode
		isStopped := util.IsStopped()
		if !isStopped {
			if err := dp.EnterDebug(); err != nil {
				return fmt.Errorf("failed to enter debug mode: %w", err)
			}
			defer dp.ExitDebug()
		}

		// Read memory
		data, err := dp.ReadBlock(addr, count)
		if err != nil {
			return fmt.Errorf("failed to read memory: %w", err)
		}

		// Display hex dump
		util.HexDump(data, addr)

		return nil
	},
}

// runDumpFile hex-dumps a range of a host file standing in for a flash
// partition, using xxd.Print for the actual formatting rather than
// util.HexDump — grounded on tinkerator-qftool's --read path, which prints
// unsaved reads the same way.
func runDumpFile() error {
	if dumpAddress == "" {
		dumpAddress = "0"
	}
	if dumpCount == "" {
		dumpCount = "10"
	}

	addr, err := util.ParseHexAddress(dumpAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	count, err := util.ParseHexSize(dumpCount)
	if err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}

	data, err := os.ReadFile(dumpFile)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", dumpFile, err)
	}
	end := int(addr) + int(count)
	if end > len(data) {
		return fmt.Errorf("range [%d,%d) exceeds file length %d", addr, end, len(data))
	}

	xxd.Print(int(addr), data[addr:end])
	return nil
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpAddress, "address", "", "Starting address (hex, e.g., 380000)")
	dumpCmd.Flags().StringVar(&dumpCount, "count", "10", "Number of bytes to read (hex, e.g., 100)")
	dumpCmd.Flags().StringVar(&dumpFile, "file", "", "Dump from a host file instead of live hardware")
}
