// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

// decodeAA66 parses the unencrypted 20-byte AA66 frame (BYD firmware).
// The layout tracks AA55 except altitude is a single byte and the case
// temperature scale is auto-detected: raw values above 350 are reported
// in tenths of a degree. That heuristic matches shipped firmware and
// must not be replaced with a fixed scale.
func decodeAA66(data []byte) (*StatusRecord, error) {
	if len(data) < FrameLenAA55Min {
		return nil, &UnknownProtocolError{Length: len(data)}
	}
	rec := &StatusRecord{
		Variant:      VariantAA66,
		RunningState: int(data[3]),
		ErrorCode:    int(data[4]),
		RunningStep:  int(data[5]),
		Altitude:     float64(data[6]),
		RunningMode:  int(data[8]),
	}

	switch rec.RunningMode {
	case ModeLevel:
		rec.SetLevel = int(data[9])
	case ModeTemperature:
		rec.SetTemp = int(data[9])
	}

	rec.SupplyVoltage = float64(u16le(data[11], data[12])) / 10

	caseRaw := u16le(data[13], data[14])
	if caseRaw > 350 {
		rec.CaseTemp = float64(caseRaw) / 10
	} else {
		rec.CaseTemp = float64(caseRaw)
	}
	rec.CabinTemp = float64(data[15])

	rec.ChecksumValid = data[len(data)-1] == sum8(data[2:len(data)-1])
	return rec, nil
}

// decodeAA66Encrypted parses the 48-byte AA66 frame after single-XOR
// decryption. It shares the AA55-encrypted layout plus a configuration
// block (language, tank, pump, units), and places the error code at
// offset 35 instead of 4.
func decodeAA66Encrypted(data []byte) (*StatusRecord, error) {
	if len(data) < 36 {
		return nil, &UnknownProtocolError{Length: len(data)}
	}
	rec := &StatusRecord{
		Variant:      VariantAA66Encrypted,
		RunningState: int(data[3]),
		ErrorCode:    int(data[35]),
		RunningStep:  int(data[5]),
		Altitude:     float64(u16be(data[6], data[7])) / 10,
		RunningMode:  int(data[8]),
		SetLevel:     int(data[10]),
	}

	unit := int(data[27])
	rec.TempUnit = intPtr(unit)

	rec.SetTemp = celsiusFromDisplay(int(data[9]), unit)
	if rec.SetTemp < MinTempCelsius || rec.SetTemp > MaxTempCelsius {
		return nil, &DecodeError{Variant: rec.Variant, Field: "set_temperature", Value: float64(rec.SetTemp)}
	}

	rec.Language = intPtr(int(data[26]))
	rec.TankVolume = intPtr(int(data[28]))
	decodePumpByte(rec, data[29])
	rec.AltitudeUnit = intPtr(int(data[30]))
	rec.AutoStartStop = boolPtr(data[31] == 1)

	rec.SupplyVoltage = float64(u16be(data[11], data[12])) / 10
	rec.CaseTemp = float64(s16(u16be(data[13], data[14])))
	rec.CabinTemp = float64(s16(u16be(data[32], data[33]))) / 10
	rec.ChecksumValid = true

	decodeEncryptedExtras(rec, data)
	return rec, nil
}

// decodePumpByte splits the dual-purpose pump field: values 20/21
// report the RF433 remote state, anything else is a pump model index.
func decodePumpByte(rec *StatusRecord, b byte) {
	switch b {
	case pumpRF433Off:
		rec.RF433Enabled = boolPtr(false)
	case pumpRF433On:
		rec.RF433Enabled = boolPtr(true)
	default:
		rec.PumpType = intPtr(int(b))
	}
}
