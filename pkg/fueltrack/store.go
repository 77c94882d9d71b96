// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package fueltrack

import "time"

// Snapshot is the persistent state of one estimator.
type Snapshot struct {
	TotalFuelLiters     float64            `cbor:"total_fuel"`
	DailyFuelLiters     float64            `cbor:"daily_fuel"`
	FuelHistory         map[string]float64 `cbor:"fuel_history"`
	SinceRefuelLiters   float64            `cbor:"since_refuel"`
	LastRefueled        time.Time          `cbor:"last_refueled,omitempty"`
	TankCapacityLiters  int                `cbor:"tank_capacity"`
	TotalRuntimeSeconds float64            `cbor:"total_runtime"`
	DailyRuntimeSeconds float64            `cbor:"daily_runtime"`
	RuntimeHistory      map[string]float64 `cbor:"runtime_history"`

	// Date is the local calendar day the daily counters belong to,
	// formatted 2006-01-02.
	Date string `cbor:"date"`
}

// Store persists estimator snapshots across restarts.
type Store interface {
	// Load returns the last saved snapshot. A store with no prior state
	// returns a zero snapshot and ok false.
	Load() (Snapshot, bool, error)

	Save(Snapshot) error
}
