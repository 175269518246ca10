package cmd

import (
	"fmt"
	"os"

	"github.com/daschewie/ipatch/pkg/config"
	"github.com/daschewie/ipatch/pkg/connection"
	"github.com/daschewie/ipatch/pkg/container"
	"github.com/daschewie/ipatch/pkg/flash"
	"github.com/daschewie/ipatch/pkg/patch"
	"github.com/daschewie/ipatch/pkg/protocol"
	"github.com/daschewie/ipatch/pkg/util"
	"github.com/spf13/cobra"
)

var (
	releaseNewerLen string
	releaseRaw      bool
)

// releaseCmd drives the in-place patch engine against real hardware: it
// treats the connected target's flash as old_part and applies a patch file
// in place, generalizing flashProgramSector's RAM-staging loop (cmd/flash.go)
// into the sector-by-sector commit protocol pkg/patch implements.
var releaseCmd = &cobra.Command{
	Use:   "release <patchfile>",
	Short: "Apply an in-place differential firmware update",
	Long: `Apply a binary patch to the application partition on connected Foenix
hardware, in place, without staging the whole new image anywhere first.

The patch file is an update-package produced by a packaging tool (size+CRC32
header followed by the raw patch payload) unless --raw is given, in which
case the file is treated as the raw payload directly.

Example:
  ipatch release firmware.patch --newer-len 0x50000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(args[0])
	},
}

func runRelease(patchFile string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}
	if releaseNewerLen == "" {
		return fmt.Errorf("--newer-len is required")
	}
	newerLen, err := util.ParseHexLength(releaseNewerLen)
	if err != nil {
		return fmt.Errorf("invalid --newer-len: %w", err)
	}

	raw, err := os.ReadFile(patchFile)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", patchFile, err)
	}

	payload := raw
	if !releaseRaw {
		h, p, err := container.Parse(raw)
		if err != nil {
			return fmt.Errorf("failed to parse update package: %w", err)
		}
		if err := container.Validate(h, p); err != nil {
			return fmt.Errorf("update package failed integrity check: %w", err)
		}
		payload = p
	}

	addr, err := util.ParseHexAddress(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	dp := protocol.NewDebugPort(conn, cfg)
	if !util.IsStopped() {
		if err := dp.EnterDebug(); err != nil {
			return fmt.Errorf("failed to enter debug mode: %w", err)
		}
		defer dp.ExitDebug()
	}

	oldPart, err := flash.NewSerialDevice("app", dp, cfg, int64(addr), int64(cfg.FlashSize))
	if err != nil {
		return fmt.Errorf("failed to set up target partition: %w", err)
	}

	patchPart := flash.NewMemDevice("patch", payload, int64(len(payload)), 0)

	opts, err := releaseOptions(dp, oldPart)
	if err != nil {
		return err
	}

	if err := util.SetSessionMarker(); err != nil {
		return fmt.Errorf("failed to record session marker: %w", err)
	}

	printInfo("Applying patch (%d bytes) to produce a %d-byte image...\n", len(payload), newerLen)
	result, err := patch.ReleasePatch(patchPart, 0, int64(len(payload)), oldPart, newerLen, opts)
	if err != nil {
		return fmt.Errorf("release failed (%s): %w", result, err)
	}

	if err := util.ClearSessionMarker(); err != nil {
		printError("failed to clear session marker: %v", err)
	}
	printInfo("Release complete.\n")
	return nil
}

// releaseOptions builds patch.Options from the loaded configuration,
// resolving the swap partition against the same debug-port connection as
// old_part when the flash-swap strategy is selected.
func releaseOptions(dp *protocol.DebugPort, oldPart *flash.SerialDevice) (patch.Options, error) {
	opts := patch.Options{Strategy: cfg.Strategy, Log: printInfo}

	switch cfg.Strategy {
	case config.StrategyFlashSwap:
		if cfg.SwapPartition == "" || cfg.SwapLength == 0 {
			return opts, fmt.Errorf("strategy is flash-swap but swap_partition/swap_length are not configured")
		}
		swapBase, err := util.ParseHexAddress(cfg.SwapPartition)
		if err != nil {
			return opts, fmt.Errorf("invalid swap_partition address %q: %w", cfg.SwapPartition, err)
		}
		// The swap region lives in the same flash device as old_part, at a
		// separate base address reachable through the same connection.
		swapPart, err := flash.NewSerialDevice("swap", dp, cfg, int64(swapBase), cfg.SwapLength)
		if err != nil {
			return opts, fmt.Errorf("failed to set up swap partition: %w", err)
		}
		opts.SwapPart = swapPart
		opts.SwapOffset = cfg.SwapOffset
		opts.CopyScratchSize = cfg.CopyScratchSize
		return opts, nil
	case config.StrategyRAMBuffer:
		opts.RAMBufferSize = cfg.RAMBufferSize
		return opts, nil
	default:
		return opts, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().StringVar(&releaseNewerLen, "newer-len", "", "Length of the resulting image, in hex bytes")
	releaseCmd.Flags().BoolVar(&releaseRaw, "raw", false, "Treat patchfile as a raw payload rather than an update package")
}
