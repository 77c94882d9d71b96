// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import "fmt"

// decodeAA55 parses the unencrypted 18-20 byte AA55 frame.
//
// Byte table (0-indexed):
//
//	0-1   header 0xAA55
//	2     passkey high digit pair
//	3     running state
//	4     error code
//	5     running step
//	6-7   altitude, u16 LE, meters
//	8     running mode
//	9     set level (level mode) or set temperature (temp mode)
//	10    level index, offset by one (manual and temp modes)
//	11-12 supply voltage x10, u16 LE
//	13-14 case temperature, s16 BE
//	15-16 interior temperature, s16 BE
//	17-18 reserved
//	last  checksum, sum of bytes 2..n-2 mod 256
func decodeAA55(data []byte) (*StatusRecord, error) {
	if len(data) < FrameLenAA55Min {
		return nil, &UnknownProtocolError{Length: len(data)}
	}
	rec := &StatusRecord{
		Variant:      VariantAA55,
		RunningState: int(data[3]),
		ErrorCode:    int(data[4]),
		RunningStep:  int(data[5]),
		Altitude:     float64(u16le(data[6], data[7])),
		RunningMode:  int(data[8]),
	}

	switch rec.RunningMode {
	case ModeLevel:
		rec.SetLevel = int(data[9])
	case ModeTemperature:
		rec.SetTemp = int(data[9])
		rec.SetLevel = int(data[10]) + 1
	case ModeManual:
		rec.SetLevel = int(data[10]) + 1
	}

	rec.SupplyVoltage = float64(u16le(data[11], data[12])) / 10
	rec.CaseTemp = float64(s16(u16be(data[13], data[14])))
	rec.CabinTemp = float64(s16(u16be(data[15], data[16])))

	rec.ChecksumValid = data[len(data)-1] == sum8(data[2:len(data)-1])
	return rec, nil
}

// decodeAA55Encrypted parses the 48-byte AA55 frame after single-XOR
// decryption. The logical fields match the short frame but the 16-bit
// fields are big-endian, altitude and interior temperature are in
// tenths, and a block of optional diagnostics follows at offset 34.
func decodeAA55Encrypted(data []byte) (*StatusRecord, error) {
	if len(data) < 34 {
		return nil, &UnknownProtocolError{Length: len(data)}
	}
	rec := &StatusRecord{
		Variant:      VariantAA55Encrypted,
		RunningState: int(data[3]),
		ErrorCode:    int(data[4]),
		RunningStep:  int(data[5]),
		Altitude:     float64(u16be(data[6], data[7])) / 10,
		RunningMode:  int(data[8]),
		SetTemp:      int(data[9]),
		SetLevel:     int(data[10]),
	}

	rec.SupplyVoltage = float64(u16be(data[11], data[12])) / 10
	rec.CaseTemp = float64(s16(u16be(data[13], data[14])))
	rec.CabinTemp = float64(s16(u16be(data[32], data[33]))) / 10
	rec.ChecksumValid = true // 48-byte firmware carries no trailer checksum

	decodeEncryptedExtras(rec, data)
	return rec, nil
}

// decodeEncryptedExtras reads the optional diagnostic block shared by
// both 48-byte variants.
func decodeEncryptedExtras(rec *StatusRecord, data []byte) {
	if len(data) > 34 {
		rec.HeaterOffset = intPtr(s8(data[34]))
	}
	if len(data) > 36 {
		rec.Backlight = intPtr(int(data[36]))
	}
	// CO sensor presence flag, then PPM big-endian.
	if len(data) > 39 && data[37] == 1 {
		rec.COppm = floatPtr(float64(u16be(data[38], data[39])))
	}
	if len(data) > 43 {
		part := uint32(data[40]) | uint32(data[41])<<8 | uint32(data[42])<<16 | uint32(data[43])<<24
		if part != 0 {
			rec.PartNumber = fmt.Sprintf("%x", part)
		}
	}
	if len(data) > 44 && data[44] != 0 {
		rec.MotherboardVer = intPtr(int(data[44]))
	}
}
