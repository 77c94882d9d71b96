// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

// decodeABBA parses the 21+ byte ABBA frame (HeaterCC firmware).
//
// Byte table (0-indexed):
//
//	0-3   header AB BA 11 CC
//	4     status: 0 off, 1 heating, 2 cooldown, 4 ventilation, 6 standby
//	5     mode: 0 level, 1 temperature, 0xFF error
//	6     gear or target temperature, or error code when byte 5 is 0xFF
//	8     auto start/stop flag
//	9     supply voltage, whole volts
//	10    temperature unit
//	11    environment temperature, offset-encoded (-30 C, -22 F)
//	12-13 case temperature, u16 BE
//	14    altitude unit
//	15    high-altitude mode flag
//	16-17 altitude, u16 LE
//	20    checksum, sum of bytes 0..19 mod 256
func decodeABBA(data []byte) (*StatusRecord, error) {
	if len(data) < FrameLenABBAMin {
		return nil, &UnknownProtocolError{Length: len(data)}
	}
	rec := &StatusRecord{Variant: VariantABBA}

	status := data[4]
	if status == 0x01 {
		rec.RunningState = RunningStateOn
	}
	if step, ok := abbaStepMap[status]; ok {
		rec.RunningStep = step
	} else {
		rec.RunningStep = int(status)
	}

	// Byte 5 doubles as an error marker. In the error state byte 6 holds
	// the fault code, not the gear, and the mode is unreported.
	modeByte := data[5]
	rawTarget := -1
	if modeByte == 0xFF {
		rec.ErrorCode = int(data[6])
	} else {
		switch modeByte {
		case 0x00:
			rec.RunningMode = ModeLevel
			rec.SetLevel = int(data[6])
		case 0x01:
			rec.RunningMode = ModeTemperature
			rawTarget = int(data[6])
		default:
			rec.RunningMode = int(modeByte)
		}
	}

	rec.AutoStartStop = boolPtr(data[8] == 1)
	rec.SupplyVoltage = float64(data[9])
	rec.TempUnit = intPtr(int(data[10]))

	// The target temperature is reported in the display unit, which is
	// only known once byte 10 is read.
	if rawTarget >= 0 {
		rec.SetTemp = celsiusFromDisplay(rawTarget, *rec.TempUnit)
	}

	envOffset := 30
	if *rec.TempUnit == UnitFahrenheit {
		envOffset = 22
	}
	env := float64(int(data[11]) - envOffset)
	rec.CabinTemp = env
	rec.CabinTempRaw = floatPtr(env)

	rec.CaseTemp = float64(u16be(data[12], data[13]))
	rec.AltitudeUnit = intPtr(int(data[14]))
	rec.HighAltitude = boolPtr(data[15] == 1)
	rec.Altitude = float64(u16le(data[16], data[17]))

	rec.ChecksumValid = data[20] == sum8(data[:20])
	return rec, nil
}
