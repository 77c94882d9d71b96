// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/pkg/dieselbt"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex-frame>...",
	Short: "Decode captured heater frames",
	Long: `Decode one or more raw frames given as hex strings.

Spaces and colons in the hex input are ignored, so frames can be pasted
straight from btmon or Wireshark. Encrypted CBFF frames need the
heater's MAC address via --address to derive the decryption key.

Example:
  emberctl decode "AA 55 00 01 00 03 00 00 01 05 04 80 00 00 41 00 16 00 00 AB"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		cleaned := strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(arg)
		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return fmt.Errorf("invalid hex %q: %v", arg, err)
		}

		rec, err := dieselbt.Decode(dieselbt.RawFrame{
			Data:      data,
			Address:   deviceAddr,
			Timestamp: time.Now(),
		})
		if err != nil {
			fmt.Printf("% X\n  ERROR: %v\n\n", data, err)
			continue
		}

		fmt.Printf("% X\n", data)
		fmt.Printf("  Variant:  %s\n", rec.Variant)
		fmt.Printf("  Step:     %s (state %d)\n", rec.StepName(), rec.RunningState)
		fmt.Printf("  Mode:     %s\n", rec.ModeName())
		if rec.ErrorCode != 0 {
			fmt.Printf("  Fault:    %s (%d)\n", rec.ErrorName(), rec.ErrorCode)
		}
		if rec.SetLevel > 0 {
			fmt.Printf("  Level:    %d\n", rec.SetLevel)
		}
		if rec.SetTemp > 0 {
			fmt.Printf("  Target:   %d\n", rec.SetTemp)
		}
		fmt.Printf("  Voltage:  %.1f V\n", rec.SupplyVoltage)
		fmt.Printf("  Case:     %.1f\n", rec.CaseTemp)
		fmt.Printf("  Cabin:    %.1f\n", rec.CabinTemp)
		fmt.Printf("  Altitude: %.0f\n", rec.Altitude)
		if !rec.ChecksumValid {
			fmt.Printf("  Checksum: INVALID\n")
		}
		fmt.Println()
	}
	return nil
}
