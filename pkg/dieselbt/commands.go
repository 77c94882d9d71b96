// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"crypto/rand"
	"math"
)

// CommandIntent is one outgoing control action. Argument semantics
// depend on the command id; use NewLevelCommand / NewTemperatureCommand
// for the dual-purpose set command so the right range is enforced.
type CommandIntent struct {
	Command  int
	Argument int
	Passkey  int
}

// NewLevelCommand builds a power-level intent. Levels run 1-10.
func NewLevelCommand(level, passkey int) (CommandIntent, error) {
	if level < MinLevel || level > MaxLevel {
		return CommandIntent{}, &InvalidArgumentError{Command: CmdSetLevelTemp, Argument: level, Reason: "level must be 1-10"}
	}
	return CommandIntent{Command: CmdSetLevelTemp, Argument: level, Passkey: passkey}, nil
}

// NewTemperatureCommand builds a target-temperature intent from degrees
// Celsius. When the device last reported Fahrenheit the argument is
// converted to its display unit, rounded rather than truncated so
// repeated round trips do not drift.
func NewTemperatureCommand(tempC, passkey int, fahrenheit bool) (CommandIntent, error) {
	if tempC < MinTempCelsius || tempC > MaxTempCelsius {
		return CommandIntent{}, &InvalidArgumentError{Command: CmdSetLevelTemp, Argument: tempC, Reason: "temperature must be 8-36 C"}
	}
	arg := tempC
	if fahrenheit {
		arg = int(math.Round(float64(tempC)*9/5)) + 32
	}
	return CommandIntent{Command: CmdSetLevelTemp, Argument: arg, Passkey: passkey}, nil
}

// backlightLevels is the discrete set the display accepts: off, 1-10,
// then 20-100 in steps of ten.
func validBacklight(v int) bool {
	if v >= 0 && v <= 10 {
		return true
	}
	return v >= 20 && v <= 100 && v%10 == 0
}

// Validate checks the argument against the command's legal set. It runs
// before any bytes are produced; an invalid intent never reaches the
// radio.
func (c CommandIntent) Validate() error {
	fail := func(reason string) error {
		return &InvalidArgumentError{Command: c.Command, Argument: c.Argument, Reason: reason}
	}
	if c.Passkey < MinPasskey || c.Passkey > MaxPasskey {
		return &InvalidArgumentError{Command: c.Command, Argument: c.Passkey, Reason: "passkey must be 0-9999"}
	}
	switch c.Command {
	case CmdStatus, CmdHighAltitude:
		// Argument ignored.
	case CmdSetMode:
		if c.Argument < ModeManual || c.Argument > ModeTemperature {
			return fail("mode must be 0-2")
		}
	case CmdPower, CmdSetTempUnit, CmdSetAltUnit, CmdSetAutoStart:
		if c.Argument != 0 && c.Argument != 1 {
			return fail("argument must be 0 or 1")
		}
	case CmdSetLevelTemp:
		if c.Argument < MinLevel || c.Argument > 97 { // 36 C == 97 F
			return fail("argument outside level/temperature range")
		}
	case CmdTimeSync:
		if c.Argument < 0 || c.Argument > math.MaxUint16 {
			return fail("time value must fit 16 bits")
		}
	case CmdSetLanguage:
		if c.Argument < 0 || c.Argument > 4 {
			return fail("language index must be 0-4")
		}
	case CmdSetTank:
		if c.Argument < 0 || c.Argument > 10 {
			return fail("tank volume index must be 0-10")
		}
	case CmdSetPump:
		if c.Argument < 0 || c.Argument > 3 {
			return fail("pump type index must be 0-3")
		}
	case CmdSetOffset:
		if c.Argument < MinOffset || c.Argument > MaxOffset {
			return fail("offset must be -9..9")
		}
	case CmdSetBacklight:
		if !validBacklight(c.Argument) {
			return fail("backlight must be 0-10 or 20-100 in tens")
		}
	default:
		return fail("unknown command id")
	}
	return nil
}

// EncodeCommand produces the wire bytes for an intent on the given
// variant. Devices with encrypted telemetry still expect plain AA55
// commands, so only ABBA gets its native shape.
func EncodeCommand(variant Variant, intent CommandIntent) ([]byte, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if variant == VariantABBA {
		return encodeABBACommand(intent), nil
	}
	return encodeKeyedCommand(intent), nil
}

// encodeKeyedCommand builds the 8-byte AA55-shape frame:
// header, type, passkey hi/lo, command, argument LE, checksum.
func encodeKeyedCommand(intent CommandIntent) []byte {
	arg := uint16(int16(intent.Argument))
	pkt := []byte{
		0xAA,
		cmdTypeKeyed,
		byte(intent.Passkey / 100),
		byte(intent.Passkey % 100),
		byte(intent.Command),
		byte(arg & 0xFF),
		byte(arg >> 8),
		0,
	}
	pkt[7] = sum8(pkt[2:7])
	return pkt
}

// EncodePairingCommand builds the pairing-mode frame: type byte 0x88
// and two random bytes in place of the decomposed passkey.
func EncodePairingCommand(intent CommandIntent) ([]byte, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	var rnd [2]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return nil, err
	}
	arg := uint16(int16(intent.Argument))
	pkt := []byte{
		0xAA,
		cmdTypePairing,
		rnd[0],
		rnd[1],
		byte(intent.Command),
		byte(arg & 0xFF),
		byte(arg >> 8),
		0,
	}
	pkt[7] = sum8(pkt[2:7])
	return pkt, nil
}

// encodeABBACommand translates shared command ids into the HeaterCC
// opcode table. These frames carry no passkey; the trailer is a mod-256
// sum over the whole body.
func encodeABBACommand(intent CommandIntent) []byte {
	body := func(b ...byte) []byte {
		pkt := append([]byte{0xBA, 0xAB, 0x04}, b...)
		return append(pkt, sum8(pkt))
	}

	switch intent.Command {
	case CmdStatus:
		return body(0xCC, 0x00, 0x00, 0x00)
	case CmdPower:
		// Single toggle opcode: the firmware has no explicit off.
		return body(0xBB, 0xA1, 0x00, 0x00)
	case CmdSetLevelTemp:
		return body(0xDB, byte(intent.Argument), 0x00, 0x00)
	case CmdSetMode:
		if intent.Argument == ModeTemperature {
			return body(0xBB, 0xAC, 0x00, 0x00)
		}
		return body(0xBB, 0xAD, 0x00, 0x00)
	case CmdSetTempUnit:
		if intent.Argument == UnitFahrenheit {
			return body(0xBB, 0xA8, 0x00, 0x00)
		}
		return body(0xBB, 0xA7, 0x00, 0x00)
	case CmdSetAltUnit:
		if intent.Argument == UnitFeet {
			return body(0xBB, 0xAA, 0x00, 0x00)
		}
		return body(0xBB, 0xA9, 0x00, 0x00)
	case CmdHighAltitude:
		return body(0xBB, 0xA5, 0x00, 0x00)
	default:
		// Unsupported ids fall back to a status request.
		return body(0xCC, 0x00, 0x00, 0x00)
	}
}
