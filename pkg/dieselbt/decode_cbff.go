// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

// decodeCBFF parses the 47-byte CBFF frame (Sunster v2.1 firmware).
// Some units encrypt the payload with the double-XOR transform while
// keeping the marker readable, so the raw fields are parsed first and
// the decryption retried only when physically impossible values show up
// in the stable fields. The byte table is partially reverse-engineered;
// treat offsets as provisional and validate against captured frames.
func decodeCBFF(data []byte, addressKey []byte) (*StatusRecord, error) {
	if len(data) < FrameLenCBFFMin {
		return nil, &UnknownProtocolError{Length: len(data)}
	}

	rec := parseCBFFFields(data)
	if !cbffSuspect(rec) {
		return rec, nil
	}

	if len(addressKey) > 0 {
		dec := parseCBFFFields(DecryptCBFF(data, addressKey))
		if !cbffSuspect(dec) {
			return dec, nil
		}
	}

	return nil, &DecodeError{Variant: VariantCBFF, Field: "supply_voltage", Value: rec.SupplyVoltage}
}

// cbffSuspect reports physically impossible values in the fields that
// are stable across firmware: a sign the payload is still encrypted.
func cbffSuspect(rec *StatusRecord) bool {
	return rec.SupplyVoltage > 100 || rec.SupplyVoltage < 0 ||
		rec.CabinTemp > 500 || rec.CabinTemp < -500
}

func parseCBFFFields(data []byte) *StatusRecord {
	rec := &StatusRecord{
		Variant:         VariantCBFF,
		ProtocolVersion: intPtr(int(data[2])),
		RunningStep:     int(data[14]),
	}

	if cbffRunStateOff[data[10]] {
		rec.RunningState = RunningStateOff
	} else {
		rec.RunningState = RunningStateOn
	}

	// run_mode 1/3/4 are level-style modes, 2 is thermostat.
	switch data[11] {
	case 1, 3, 4:
		rec.RunningMode = ModeLevel
	case 2:
		rec.RunningMode = ModeTemperature
	default:
		rec.RunningMode = ModeManual
	}

	runParam := int(data[12])
	if rec.RunningMode == ModeLevel {
		rec.SetLevel = runParam
	} else {
		// now_gear reports the working gear even in thermostat mode.
		rec.SetLevel = int(data[13])
	}

	rec.ErrorCode = int(data[15]) & 0x3F
	rec.TempUnit = intPtr(int(data[17]) & 0x0F)

	// The run parameter is a target temperature in the display unit
	// outside the level modes, and the unit byte sits after it.
	if rec.RunningMode != ModeLevel {
		rec.SetTemp = celsiusFromDisplay(runParam, *rec.TempUnit)
	}
	rec.CabinTemp = float64(s16(u16le(data[18], data[19])))
	rec.AltitudeUnit = intPtr(int(data[20]) & 0x0F)
	rec.Altitude = float64(u16le(data[21], data[22]))
	rec.SupplyVoltage = float64(u16le(data[23], data[24])) / 10
	rec.CaseTemp = float64(s16(u16le(data[25], data[26]))) / 10

	if co := float64(u16le(data[27], data[28])) / 10; co < 6553 {
		rec.COppm = floatPtr(co)
	}

	rec.PowerOnOff = intPtr(int(data[29]))
	if hw := u16le(data[30], data[31]); hw != 0 {
		rec.HardwareVersion = intPtr(hw)
	}
	if sw := u16le(data[32], data[33]); sw != 0 {
		rec.SoftwareVersion = intPtr(sw)
	}

	rec.HeaterOffset = intPtr(s8(data[34]))
	if data[35] != notApplicableByte {
		rec.Language = intPtr(int(data[35]))
	}
	if data[36] != notApplicableByte {
		rec.TankVolume = intPtr(int(data[36]))
	}
	if data[37] != notApplicableByte {
		decodePumpByte(rec, data[37])
	}
	if data[38] != notApplicableByte {
		rec.Backlight = intPtr(int(data[38]))
	}
	if data[39] != notApplicableByte {
		rec.StartupTempDiff = intPtr(int(data[39]))
	}
	if data[40] != notApplicableByte {
		rec.ShutdownTempDiff = intPtr(int(data[40]))
	}
	if data[41] != notApplicableByte {
		rec.WifiEnabled = boolPtr(data[41] == 1)
	}
	rec.AutoStartStop = boolPtr(data[42] == 1)
	rec.HeaterMode = intPtr(int(data[43]))

	if remain := u16le(data[44], data[45]); remain != 65535 {
		rec.RemainRunTime = intPtr(remain)
	}

	// No trailer checksum is documented for this variant.
	rec.ChecksumValid = true
	return rec
}
