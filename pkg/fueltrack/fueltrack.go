// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

// Package fueltrack estimates diesel consumption and burner runtime
// from the telemetry stream. The heaters report no fuel figures of
// their own, so consumption is derived from the commanded power level
// and the time spent in the running step, using the pump calibration
// table the vendor app ships.
package fueltrack

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emberworks/emberctl/pkg/dieselbt"
)

// consumptionTable maps power level to liters per hour. Levels outside
// the table fall back to the level-1 rate.
var consumptionTable = map[int]float64{
	1:  0.16,
	2:  0.20,
	3:  0.24,
	4:  0.28,
	5:  0.32,
	6:  0.36,
	7:  0.40,
	8:  0.44,
	9:  0.48,
	10: 0.52,
}

// RateForLevel returns the hourly consumption rate for a power level.
func RateForLevel(level int) float64 {
	if rate, ok := consumptionTable[level]; ok {
		return rate
	}
	return consumptionTable[1]
}

// MaxHistoryEntries bounds both daily ledgers to the newest entries.
const MaxHistoryEntries = 30

const dateLayout = "2006-01-02"

// Report is a point-in-time view of the estimator's figures. Fuel is
// in liters, runtime in hours. RemainingLiters is nil until a tank
// capacity has been set.
type Report struct {
	HourlyRate        float64
	DailyFuel         float64
	TotalFuel         float64
	SinceRefuel       float64
	RemainingLiters   *float64
	TankCapacity      int
	LastRefueled      time.Time
	DailyRuntimeHours float64
	TotalRuntimeHours float64
	FuelHistory       map[string]float64
	RuntimeHistory    map[string]float64
}

// Estimator accumulates fuel and runtime from successive status
// records. Safe for concurrent use.
type Estimator struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time

	totalFuel      float64
	dailyFuel      float64
	fuelHistory    map[string]float64
	sinceRefuel    float64
	lastRefueled   time.Time
	tankCapacity   int
	totalRuntime   float64            // seconds
	dailyRuntime   float64            // seconds
	runtimeHistory map[string]float64 // hours per day

	date        string
	lastUpdate  time.Time
	lastRunning bool
	lastLevel   int
}

// NewEstimator restores state from the store and rolls the daily
// counters over if the process was down across a date boundary.
func NewEstimator(store Store) (*Estimator, error) {
	return newEstimator(store, time.Now)
}

func newEstimator(store Store, now func() time.Time) (*Estimator, error) {
	e := &Estimator{
		store:          store,
		now:            now,
		fuelHistory:    map[string]float64{},
		runtimeHistory: map[string]float64{},
	}

	snap, ok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("fueltrack: load: %w", err)
	}
	if ok {
		e.totalFuel = snap.TotalFuelLiters
		e.dailyFuel = snap.DailyFuelLiters
		e.sinceRefuel = snap.SinceRefuelLiters
		e.lastRefueled = snap.LastRefueled
		e.tankCapacity = snap.TankCapacityLiters
		e.totalRuntime = snap.TotalRuntimeSeconds
		e.dailyRuntime = snap.DailyRuntimeSeconds
		e.date = snap.Date
		for d, v := range snap.FuelHistory {
			e.fuelHistory[d] = v
		}
		for d, v := range snap.RuntimeHistory {
			e.runtimeHistory[d] = v
		}
	}

	e.mu.Lock()
	e.rollover(e.now())
	e.mu.Unlock()
	return e, nil
}

// Observe folds one status record into the ledgers. Fuel and runtime
// accrue for the interval since the previous observation, and only
// while the previous observation had the burner in the running step.
func (e *Estimator) Observe(rec dieselbt.StatusRecord) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rollover(now)

	if !e.lastUpdate.IsZero() && e.lastRunning {
		elapsed := now.Sub(e.lastUpdate).Seconds()
		if elapsed > 0 {
			burned := RateForLevel(e.lastLevel) * elapsed / 3600
			e.totalFuel += burned
			e.dailyFuel += burned
			e.sinceRefuel += burned
			e.totalRuntime += elapsed
			e.dailyRuntime += elapsed
		}
	}

	e.lastUpdate = now
	e.lastRunning = rec.RunningStep == dieselbt.StepRunning
	e.lastLevel = rec.SetLevel
}

// rollover closes out the daily counters when the local date changes.
// Caller holds the lock.
func (e *Estimator) rollover(now time.Time) {
	today := now.Format(dateLayout)
	if e.date == today {
		return
	}
	if e.date != "" {
		if e.dailyFuel > 0 {
			e.fuelHistory[e.date] = e.dailyFuel
		}
		if e.dailyRuntime > 0 {
			e.runtimeHistory[e.date] = e.dailyRuntime / 3600
		}
		log.WithFields(log.Fields{
			"day":     e.date,
			"liters":  e.dailyFuel,
			"runtime": e.dailyRuntime,
		}).Info("daily ledgers rolled over")
	}
	e.dailyFuel = 0
	e.dailyRuntime = 0
	e.date = today
	e.pruneHistory()
	e.save()
}

// pruneHistory trims both ledgers to the MaxHistoryEntries most recent
// days. Date keys sort lexicographically in calendar order. Caller
// holds the lock.
func (e *Estimator) pruneHistory() {
	trim(e.fuelHistory)
	trim(e.runtimeHistory)
}

func trim(ledger map[string]float64) {
	if len(ledger) <= MaxHistoryEntries {
		return
	}
	days := make([]string, 0, len(ledger))
	for d := range ledger {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days[:len(days)-MaxHistoryEntries] {
		delete(ledger, d)
	}
}

// Report returns the current figures. The history maps are copies.
func (e *Estimator) Report() Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := Report{
		DailyFuel:         e.dailyFuel,
		TotalFuel:         e.totalFuel,
		SinceRefuel:       e.sinceRefuel,
		TankCapacity:      e.tankCapacity,
		LastRefueled:      e.lastRefueled,
		DailyRuntimeHours: e.dailyRuntime / 3600,
		TotalRuntimeHours: e.totalRuntime / 3600,
		FuelHistory:       map[string]float64{},
		RuntimeHistory:    map[string]float64{},
	}
	if e.lastRunning {
		r.HourlyRate = RateForLevel(e.lastLevel)
	}
	if e.tankCapacity > 0 {
		remaining := float64(e.tankCapacity) - e.sinceRefuel
		if remaining < 0 {
			remaining = 0
		}
		r.RemainingLiters = &remaining
	}
	for d, v := range e.fuelHistory {
		r.FuelHistory[d] = v
	}
	for d, v := range e.runtimeHistory {
		r.RuntimeHistory[d] = v
	}
	return r
}

// SetTankCapacity records the tank size in liters, clamped to 1-100.
func (e *Estimator) SetTankCapacity(liters int) error {
	if liters < 1 {
		liters = 1
	}
	if liters > 100 {
		liters = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tankCapacity = liters
	return e.save()
}

// ResetFuelLevel marks a refuel: consumption since the last reset is
// zeroed and the refuel time recorded. Lifetime totals are untouched.
func (e *Estimator) ResetFuelLevel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinceRefuel = 0
	e.lastRefueled = e.now()
	log.WithField("at", e.lastRefueled).Info("fuel level reset")
	return e.save()
}

// Flush persists the current state.
func (e *Estimator) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save()
}

// save writes a snapshot to the store. Caller holds the lock.
func (e *Estimator) save() error {
	if e.store == nil {
		return nil
	}
	snap := Snapshot{
		TotalFuelLiters:     e.totalFuel,
		DailyFuelLiters:     e.dailyFuel,
		FuelHistory:         map[string]float64{},
		SinceRefuelLiters:   e.sinceRefuel,
		LastRefueled:        e.lastRefueled,
		TankCapacityLiters:  e.tankCapacity,
		TotalRuntimeSeconds: e.totalRuntime,
		DailyRuntimeSeconds: e.dailyRuntime,
		RuntimeHistory:      map[string]float64{},
		Date:                e.date,
	}
	for d, v := range e.fuelHistory {
		snap.FuelHistory[d] = v
	}
	for d, v := range e.runtimeHistory {
		snap.RuntimeHistory[d] = v
	}
	if err := e.store.Save(snap); err != nil {
		log.WithError(err).Error("fuel snapshot save failed")
		return err
	}
	return nil
}
