// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	scanDuration time.Duration
	scanAll      bool
)

// heaterServiceUUIDs are the GATT services the known heater families
// advertise.
var heaterServiceUUIDs = []string{
	"0000ffe0-0000-1000-8000-00805f9b34fb",
	"0000fff0-0000-1000-8000-00805f9b34fb",
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby heaters",
	Long: `Scan for BLE devices advertising a known heater service.

Lists address, name and signal strength for each candidate. Use --all
to list every LE device regardless of advertised services.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 15*time.Second, "How long to scan")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "List all LE devices, not just heaters")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	defer api.Exit()

	a, err := adapter.NewAdapter1FromAdapterID(adapterID)
	if err != nil {
		return fmt.Errorf("adapter %s: %v", adapterID, err)
	}

	filter := adapter.NewDiscoveryFilter()
	filter.Transport = "le"
	if !scanAll {
		filter.AddUUIDs(heaterServiceUUIDs...)
	}
	if err := a.SetDiscoveryFilter(filter.ToMap()); err != nil {
		log.WithError(err).Debug("discovery filter not applied")
	}

	discovery, cancelDiscovery, err := api.Discover(a, nil)
	if err != nil {
		return fmt.Errorf("discover: %v", err)
	}
	defer cancelDiscovery()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning on %s for %s (Ctrl+C to stop)\n\n", adapterID, scanDuration)
	seen := map[string]bool{}
	deadline := time.After(scanDuration)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			if len(seen) == 0 {
				fmt.Println("No heaters found. Is the vendor app still connected?")
			}
			return nil
		case ev, ok := <-discovery:
			if !ok {
				return nil
			}
			dev, err := device.NewDevice1(ev.Path)
			if err != nil || dev == nil || dev.Properties == nil {
				continue
			}
			props := dev.Properties
			if seen[props.Address] {
				continue
			}
			seen[props.Address] = true

			name := props.Name
			if name == "" {
				name = props.Alias
			}
			if name == "" {
				name = "(no name)"
			}
			fmt.Printf("  %s  %-20s  RSSI %d  services [%s]\n",
				props.Address, name, props.RSSI, strings.Join(props.UUIDs, " "))
		}
	}
}
