// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RawFrame is one notification as delivered by the transport. The Data
// slice is owned by the frame and never mutated by the codec.
type RawFrame struct {
	Data      []byte
	Address   string
	Timestamp time.Time
}

// StatusRecord is the canonical, variant-independent view of one
// telemetry frame. Required fields are always set by a successful
// decode; optional fields are nil unless the variant carries them.
//
// SetLevel and SetTemp are zero when the frame's running mode does not
// report them (for example level in temperature mode on some firmware).
type StatusRecord struct {
	Variant       Variant
	RunningState  int
	RunningStep   int
	RunningMode   int
	ErrorCode     int
	SetLevel      int
	SetTemp       int
	SupplyVoltage float64
	CaseTemp      float64
	CabinTemp     float64
	Altitude      float64

	// ChecksumValid is a diagnostic only. Several firmware batches ship
	// wrong trailer checksums, so a mismatch never rejects the frame.
	ChecksumValid bool

	// Optional fields, variant dependent.
	CabinTempRaw     *float64
	HeaterOffset     *int
	Backlight        *int
	COppm            *float64
	Language         *int
	TankVolume       *int
	PumpType         *int
	RF433Enabled     *bool
	AutoStartStop    *bool
	TempUnit         *int
	AltitudeUnit     *int
	HeaterMode       *int
	HighAltitude     *bool
	HardwareVersion  *int
	SoftwareVersion  *int
	PartNumber       string
	MotherboardVer   *int
	StartupTempDiff  *int
	ShutdownTempDiff *int
	WifiEnabled      *bool
	RemainRunTime    *int
	ProtocolVersion  *int
	PowerOnOff       *int
}

// UsesFahrenheit reports whether the device displays temperatures in
// Fahrenheit. Defaults to Celsius when the variant does not carry the
// unit.
func (r *StatusRecord) UsesFahrenheit() bool {
	return r.TempUnit != nil && *r.TempUnit == UnitFahrenheit
}

// Running reports whether the heater is actively burning fuel.
func (r *StatusRecord) Running() bool {
	return r.RunningStep == StepRunning
}

// StepName returns the display name for the running step.
func (r *StatusRecord) StepName() string {
	if name, ok := StepNames[r.RunningStep]; ok {
		return name
	}
	return fmt.Sprintf("step-%d", r.RunningStep)
}

// ModeName returns the display name for the running mode.
func (r *StatusRecord) ModeName() string {
	if name, ok := ModeNames[r.RunningMode]; ok {
		return name
	}
	return fmt.Sprintf("mode-%d", r.RunningMode)
}

// ErrorName returns the display name for the fault code.
func (r *StatusRecord) ErrorName() string {
	if name, ok := ErrorNames[r.ErrorCode]; ok {
		return name
	}
	return fmt.Sprintf("fault-%d", r.ErrorCode)
}

func (r *StatusRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s state=%d step=%s mode=%s err=%d",
		r.Variant, r.RunningState, StepNames[r.RunningStep], ModeNames[r.RunningMode], r.ErrorCode)
	if r.SetLevel > 0 {
		fmt.Fprintf(&b, " level=%d", r.SetLevel)
	}
	if r.SetTemp > 0 {
		fmt.Fprintf(&b, " target=%d", r.SetTemp)
	}
	fmt.Fprintf(&b, " v=%.1f case=%.1f cabin=%.1f alt=%.0f",
		r.SupplyVoltage, r.CaseTemp, r.CabinTemp, r.Altitude)
	if !r.ChecksumValid {
		b.WriteString(" checksum=bad")
	}
	return b.String()
}

// validate enforces the per-variant field domains. Values outside their
// documented range mean the frame was misclassified or corrupted, and
// the whole decode fails rather than clamping.
func (r *StatusRecord) validate() error {
	if r.SetLevel != 0 && (r.SetLevel < MinLevel || r.SetLevel > MaxLevel) {
		return &DecodeError{Variant: r.Variant, Field: "set_level", Value: float64(r.SetLevel)}
	}
	if r.SetTemp != 0 && (r.SetTemp < MinTempCelsius || r.SetTemp > MaxTempCelsius) {
		return &DecodeError{Variant: r.Variant, Field: "set_temperature", Value: float64(r.SetTemp)}
	}
	if r.SupplyVoltage < 0 || r.SupplyVoltage > 100 {
		return &DecodeError{Variant: r.Variant, Field: "supply_voltage", Value: r.SupplyVoltage}
	}
	if r.CabinTemp > 500 || r.CabinTemp < -500 {
		return &DecodeError{Variant: r.Variant, Field: "interior_temperature", Value: r.CabinTemp}
	}
	if r.CaseTemp > 7000 || r.CaseTemp < -500 {
		return &DecodeError{Variant: r.Variant, Field: "case_temperature", Value: r.CaseTemp}
	}
	if r.ErrorCode < 0 || r.ErrorCode > 255 {
		return &DecodeError{Variant: r.Variant, Field: "error_code", Value: float64(r.ErrorCode)}
	}
	return nil
}

// celsiusFromDisplay converts a set temperature reported in the display
// unit to whole degrees Celsius. Canonical records hold Celsius;
// rounding avoids the systematic off-by-one a truncating conversion
// would introduce.
func celsiusFromDisplay(raw, unit int) int {
	if unit == UnitFahrenheit {
		return int(math.Round(float64(raw-32) * 5 / 9))
	}
	return raw
}

// u16le and u16be assemble 16-bit fields. Each decoder picks per field;
// endianness genuinely differs between variants and within frames.
func u16le(lo, hi byte) int { return int(lo) | int(hi)<<8 }
func u16be(hi, lo byte) int { return int(hi)<<8 | int(lo) }

// s16 converts an assembled 16-bit value to its signed interpretation.
func s16(v int) int {
	if v >= 32768 {
		v -= 65536
	}
	return v
}

// s8 converts a single byte to its signed interpretation.
func s8(v byte) int {
	if v > 127 {
		return int(v) - 256
	}
	return int(v)
}

func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
