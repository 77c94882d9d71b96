// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/internal/store"
	"github.com/emberworks/emberctl/pkg/dieselbt"
	"github.com/emberworks/emberctl/pkg/fueltrack"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream decoded heater telemetry",
	Long: `Continuously print decoded status frames as they arrive.

Each status update is logged with the running step, set level or target
temperature, supply voltage and temperatures. Fuel consumption and
runtime are estimated from the power level and persisted across runs,
so the fuel command can report daily and lifetime figures.

Supports BLE, WebSocket and serial connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	sess, info, err := newSession()
	if err != nil {
		return err
	}

	path, err := statePath()
	if err != nil {
		return err
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	estimator, err := fueltrack.NewEstimator(db.Fuel(deviceAddr))
	if err != nil {
		return err
	}
	defer func() { _ = estimator.Flush() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Emberctl - Heater Monitor\n")
	fmt.Printf("Connection: %s\n", info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sess.Start(ctx)
	defer sess.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-sess.Updates():
			if !u.Available {
				log.Warn("heater unavailable")
				continue
			}
			if u.Stale {
				log.Warn("telemetry stale")
				continue
			}
			estimator.Observe(u.Record)
			report := estimator.Report()

			entry := log.WithFields(log.Fields{
				"step":    u.Record.StepName(),
				"level":   u.Record.SetLevel,
				"voltage": u.Record.SupplyVoltage,
				"cabin":   u.Record.CabinTemp,
				"case":    u.Record.CaseTemp,
				"rate":    report.HourlyRate,
			})
			if u.Record.RunningMode == dieselbt.ModeTemperature {
				entry = entry.WithField("target", u.Record.SetTemp)
			}
			if u.Record.ErrorCode != 0 {
				entry = entry.WithField("fault", u.Record.ErrorName())
				entry.Warn(u.Record.String())
				continue
			}
			entry.Info(u.Record.String())
		}
	}
}
