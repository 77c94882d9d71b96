// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/internal/store"
	"github.com/emberworks/emberctl/pkg/fueltrack"
)

var fuelCmd = &cobra.Command{
	Use:   "fuel",
	Short: "Fuel consumption ledgers",
	Long: `Inspect and manage the estimated fuel figures.

Consumption is estimated while monitoring from the commanded power
level, since the heaters report no fuel data of their own. Figures are
kept per device address in the state database.`,
}

var fuelReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show daily and lifetime fuel and runtime figures",
	RunE:  runFuelReport,
}

var fuelResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Mark the tank as refueled",
	RunE:  runFuelReset,
}

var fuelTankCmd = &cobra.Command{
	Use:   "tank <liters>",
	Short: "Set the tank capacity in liters (1-100)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFuelTank,
}

func init() {
	fuelCmd.AddCommand(fuelReportCmd, fuelResetCmd, fuelTankCmd)
	rootCmd.AddCommand(fuelCmd)
}

func openEstimator() (*fueltrack.Estimator, func(), error) {
	if deviceAddr == "" {
		return nil, nil, fmt.Errorf("--address is required to select the device ledger")
	}
	path, err := statePath()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	estimator, err := fueltrack.NewEstimator(db.Fuel(deviceAddr))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return estimator, func() { _ = db.Close() }, nil
}

func runFuelReport(cmd *cobra.Command, args []string) error {
	estimator, done, err := openEstimator()
	if err != nil {
		return err
	}
	defer done()

	r := estimator.Report()
	fmt.Printf("Device: %s\n\n", deviceAddr)
	fmt.Printf("Today:        %.2f L, %.2f h\n", r.DailyFuel, r.DailyRuntimeHours)
	fmt.Printf("Lifetime:     %.2f L, %.2f h\n", r.TotalFuel, r.TotalRuntimeHours)
	fmt.Printf("Since refuel: %.2f L\n", r.SinceRefuel)
	if r.RemainingLiters != nil {
		fmt.Printf("Remaining:    %.2f L of %d L\n", *r.RemainingLiters, r.TankCapacity)
	} else {
		fmt.Printf("Remaining:    unknown (set a capacity with 'fuel tank')\n")
	}
	if !r.LastRefueled.IsZero() {
		fmt.Printf("Last refuel:  %s\n", r.LastRefueled.Format("2006-01-02 15:04"))
	}

	if len(r.FuelHistory) > 0 {
		fmt.Printf("\nDaily history:\n")
		days := make([]string, 0, len(r.FuelHistory))
		for day := range r.FuelHistory {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			fmt.Printf("  %s  %5.2f L  %5.2f h\n", day, r.FuelHistory[day], r.RuntimeHistory[day])
		}
	}
	return nil
}

func runFuelReset(cmd *cobra.Command, args []string) error {
	estimator, done, err := openEstimator()
	if err != nil {
		return err
	}
	defer done()

	if err := estimator.ResetFuelLevel(); err != nil {
		return err
	}
	fmt.Println("Fuel level reset")
	return nil
}

func runFuelTank(cmd *cobra.Command, args []string) error {
	liters, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("capacity must be a number: %v", err)
	}

	estimator, done, err := openEstimator()
	if err != nil {
		return err
	}
	defer done()

	if err := estimator.SetTankCapacity(liters); err != nil {
		return err
	}
	fmt.Printf("Tank capacity set to %d L\n", estimator.Report().TankCapacity)
	return nil
}
