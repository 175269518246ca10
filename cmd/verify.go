package cmd

import (
	"fmt"
	"os"

	"github.com/daschewie/ipatch/pkg/config"
	"github.com/daschewie/ipatch/pkg/flash"
	"github.com/daschewie/ipatch/pkg/patch"
	"github.com/daschewie/ipatch/pkg/util"
	"github.com/spf13/cobra"
)

var verifyOutFile string

// verifyCmd runs the patch engine entirely on the host, against ordinary
// files standing in for flash partitions. It lets a patch be validated
// before it is ever shipped to real hardware, without needing a connected
// target — no --port is required, unlike the hardware commands in this tree
// (dump --file likewise needs none).
var verifyCmd = &cobra.Command{
	Use:   "verify <oldimage> <patchfile> <newlen>",
	Short: "Dry-run an in-place patch against file-backed images",
	Long: `Apply a patch file to an old firmware image using ordinary files in
place of flash partitions, to confirm the result before touching real
hardware. <newlen> is the expected length of the resulting image, in hex.

Example:
  ipatch verify old.bin firmware.patch 0x50000 --out new.bin`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(args[0], args[1], args[2])
	},
}

func runVerify(oldImagePath, patchFilePath, newLenHex string) error {
	newLen, err := util.ParseHexLength(newLenHex)
	if err != nil {
		return fmt.Errorf("invalid newlen: %w", err)
	}

	oldData, err := os.ReadFile(oldImagePath)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", oldImagePath, err)
	}
	patchData, err := os.ReadFile(patchFilePath)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", patchFilePath, err)
	}

	sectorSize := cfg.FlashSectorSize() * 1024
	if sectorSize == 0 {
		sectorSize = 4096
	}

	oldPartFile, err := os.CreateTemp("", "ipatch-verify-old-*.bin")
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer os.Remove(oldPartFile.Name())
	defer oldPartFile.Close()

	oldPart, err := flash.NewFileDevice("old", oldPartFile, int64(len(oldData)), sectorSize)
	if err != nil {
		return fmt.Errorf("failed to set up old-image partition: %w", err)
	}
	if err := oldPart.Write(0, oldData); err != nil {
		return fmt.Errorf("failed to load old image: %w", err)
	}

	patchPart := flash.NewMemDevice("patch", patchData, int64(len(patchData)), sectorSize)

	opts := patch.Options{
		Strategy:      config.StrategyRAMBuffer,
		RAMBufferSize: int64(sectorSize) * 2,
		Log:           printInfo,
	}

	printInfo("Verifying patch against %s (expect %d bytes)...\n", oldImagePath, newLen)
	result, err := patch.ReleasePatch(patchPart, 0, int64(len(patchData)), oldPart, newLen, opts)
	if err != nil {
		return fmt.Errorf("verify failed (%s): %w", result, err)
	}
	printInfo("Verify succeeded.\n")

	if verifyOutFile != "" {
		final := make([]byte, newLen)
		if err := oldPart.Read(0, final); err != nil {
			return fmt.Errorf("failed to read back result: %w", err)
		}
		if err := os.WriteFile(verifyOutFile, final, 0644); err != nil {
			return fmt.Errorf("failed to write %q: %w", verifyOutFile, err)
		}
		printInfo("Wrote resulting image to %s\n", verifyOutFile)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyOutFile, "out", "", "Write the resulting image to this path")
}
