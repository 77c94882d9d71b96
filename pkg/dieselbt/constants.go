// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

// Package dieselbt implements the wire codec for BLE-controlled diesel
// cabin heaters (Vevor, BYD, HeaterCC and Sunster lines).
//
// The package covers six incompatible frame variants, the XOR transforms
// used by the encrypted ones, classification of raw notification bytes,
// decoding into a canonical StatusRecord, and command frame encoding.
// All functions are pure; failures are typed error values, never panics.
package dieselbt

// Frame headers, big-endian over the first two bytes of a frame.
const (
	HeaderAA55 = 0xAA55
	HeaderAA66 = 0xAA66
	HeaderAA77 = 0xAA77 // command ACK from Sunster firmware, not telemetry
	HeaderABBA = 0xABBA
	HeaderBAAB = 0xBAAB // ABBA family outgoing command header
	HeaderCBFF = 0xCBFF
)

// Frame lengths per variant.
const (
	FrameLenAA55Min   = 18
	FrameLenAA55Max   = 20
	FrameLenEncrypted = 48
	FrameLenABBAMin   = 21
	FrameLenCBFF      = 47
	FrameLenCBFFMin   = 46
	CommandLen        = 8
)

// Running state values.
const (
	RunningStateOff = 0
	RunningStateOn  = 1
)

// Running step values. The heater reports its combustion phase; fuel is
// burned only during StepRunning.
const (
	StepStandby     = 0
	StepSelfTest    = 1
	StepIgnition    = 2
	StepRunning     = 3
	StepCooldown    = 4
	StepVentilation = 5
)

// Running mode values.
const (
	ModeManual      = 0
	ModeLevel       = 1
	ModeTemperature = 2
)

// Temperature and altitude unit values as reported in telemetry.
const (
	UnitCelsius    = 0
	UnitFahrenheit = 1
	UnitMeters     = 0
	UnitFeet       = 1
)

// Command identifiers shared by the AA55/AA66/CBFF families. ABBA
// devices use their own opcode table; EncodeCommand translates.
const (
	CmdStatus       = 1
	CmdSetMode      = 2
	CmdPower        = 3
	CmdSetLevelTemp = 4
	CmdTimeSync     = 10
	CmdSetLanguage  = 14
	CmdSetTempUnit  = 15
	CmdSetTank      = 16
	CmdSetPump      = 17
	CmdSetAutoStart = 18
	CmdSetAltUnit   = 19
	CmdSetOffset    = 20
	CmdSetBacklight = 21
	CmdHighAltitude = 99 // ABBA only
)

// Argument domains enforced before encoding.
const (
	MinLevel       = 1
	MaxLevel       = 10
	MinTempCelsius = 8
	MaxTempCelsius = 36
	MinOffset      = -9
	MaxOffset      = 9
	MinPasskey     = 0
	MaxPasskey     = 9999
)

// Command type byte: keyed commands carry the decomposed passkey,
// pairing commands carry two random bytes instead.
const (
	cmdTypeKeyed   = 0x55
	cmdTypePairing = 0x88
)

// cbffRunStateOff lists the CBFF run_state values that mean "off".
var cbffRunStateOff = map[uint8]bool{2: true, 5: true, 6: true}

// abbaStepMap translates the ABBA status byte to canonical steps.
// 0=off, 1=heating, 2=cooldown, 4=ventilation, 6=standby.
var abbaStepMap = map[uint8]int{
	0x00: StepStandby,
	0x01: StepRunning,
	0x02: StepCooldown,
	0x04: StepVentilation,
	0x06: StepStandby,
}

// pump byte values 20/21 report the RF433 remote state instead of a
// pump model index.
const (
	pumpRF433Off = 20
	pumpRF433On  = 21
)

const notApplicableByte = 255

// StepNames maps canonical running steps to display names.
var StepNames = map[int]string{
	StepStandby:     "Standby",
	StepSelfTest:    "Self test",
	StepIgnition:    "Ignition",
	StepRunning:     "Running",
	StepCooldown:    "Cooldown",
	StepVentilation: "Ventilation",
}

// ModeNames maps running modes to display names.
var ModeNames = map[int]string{
	ModeManual:      "Manual",
	ModeLevel:       "Level",
	ModeTemperature: "Temperature",
}

// ErrorNames maps heater fault codes to display names. Code 0 means no
// fault; the rest follow the table printed in the Vevor manual.
var ErrorNames = map[int]string{
	0:  "No fault",
	1:  "Supply undervoltage",
	2:  "Supply overvoltage",
	3:  "Glow plug failure",
	4:  "Fuel pump failure",
	5:  "Overheat",
	6:  "Fan motor failure",
	7:  "Control link failure",
	8:  "Flame out",
	9:  "Temperature sensor failure",
	10: "Ignition failure",
}
