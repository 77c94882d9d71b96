// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"errors"
	"testing"
	"time"
)

func frame(data []byte) RawFrame {
	return RawFrame{Data: data, Address: "AA:BB:CC:DD:EE:FF", Timestamp: time.Now()}
}

// ============================================================
// AA55 unencrypted
// ============================================================

// Captured sample: level mode, level 5, running, 12.8 V, case 65 C,
// cabin 22 C. The trailer checksum on this unit is wrong, which must
// not reject the frame.
var sampleAA55 = []byte{
	0xAA, 0x55, 0x00, 0x01, 0x00, 0x03, 0x00, 0x00, 0x01, 0x05,
	0x04, 0x80, 0x00, 0x00, 0x41, 0x00, 0x16, 0x00, 0x00, 0xAB,
}

func TestDecodeAA55_Sample(t *testing.T) {
	rec, err := Decode(frame(sampleAA55))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantAA55 {
		t.Errorf("variant = %s, want AA55", rec.Variant)
	}
	if rec.RunningState != RunningStateOn {
		t.Errorf("running_state = %d, want on", rec.RunningState)
	}
	if rec.RunningStep != StepRunning {
		t.Errorf("running_step = %d, want %d", rec.RunningStep, StepRunning)
	}
	if rec.ErrorCode != 0 {
		t.Errorf("error_code = %d, want 0", rec.ErrorCode)
	}
	if rec.RunningMode != ModeLevel {
		t.Errorf("running_mode = %d, want level", rec.RunningMode)
	}
	if rec.SetLevel != 5 {
		t.Errorf("set_level = %d, want 5", rec.SetLevel)
	}
	if rec.SupplyVoltage != 12.8 {
		t.Errorf("supply_voltage = %v, want 12.8", rec.SupplyVoltage)
	}
	if rec.CaseTemp != 65 {
		t.Errorf("case_temperature = %v, want 65", rec.CaseTemp)
	}
	if rec.CabinTemp != 22 {
		t.Errorf("interior_temperature = %v, want 22", rec.CabinTemp)
	}
	if rec.ChecksumValid {
		t.Error("checksum should be flagged invalid on this sample")
	}
}

func TestDecodeAA55_ValidChecksum(t *testing.T) {
	data := append([]byte(nil), sampleAA55...)
	data[len(data)-1] = sum8(data[2 : len(data)-1])

	rec, err := Decode(frame(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !rec.ChecksumValid {
		t.Error("checksum should validate")
	}
}

func TestDecodeAA55_Modes(t *testing.T) {
	tests := []struct {
		name      string
		mode      byte
		byte9     byte
		byte10    byte
		wantLevel int
		wantTemp  int
	}{
		{"level mode", ModeLevel, 7, 0, 7, 0},
		{"temperature mode", ModeTemperature, 22, 4, 5, 22},
		{"manual mode", ModeManual, 0, 3, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), sampleAA55...)
			data[8] = tt.mode
			data[9] = tt.byte9
			data[10] = tt.byte10

			rec, err := Decode(frame(data))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if rec.SetLevel != tt.wantLevel {
				t.Errorf("set_level = %d, want %d", rec.SetLevel, tt.wantLevel)
			}
			if rec.SetTemp != tt.wantTemp {
				t.Errorf("set_temp = %d, want %d", rec.SetTemp, tt.wantTemp)
			}
		})
	}
}

func TestDecodeAA55_OutOfDomain(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"level 11", func(d []byte) { d[8] = ModeLevel; d[9] = 11 }},
		{"level 0", func(d []byte) { d[8] = ModeLevel; d[9] = 0 }},
		{"voltage 6553.5", func(d []byte) { d[11] = 0xFF; d[12] = 0xFF }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), sampleAA55...)
			tt.mutate(data)

			_, err := Decode(frame(data))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
		})
	}
}

// ============================================================
// AA66 unencrypted
// ============================================================

func makeAA66() []byte {
	data := make([]byte, 20)
	data[0], data[1] = 0xAA, 0x66
	data[3] = 1   // running
	data[4] = 0   // no fault
	data[5] = 3   // running step
	data[6] = 100 // altitude, single byte
	data[8] = ModeLevel
	data[9] = 7
	data[11], data[12] = 245, 0 // 24.5 V
	data[15] = 23
	data[19] = sum8(data[2:19])
	return data
}

func TestDecodeAA66_CaseTempAutoScale(t *testing.T) {
	tests := []struct {
		name string
		raw  int
		want float64
	}{
		{"whole degrees", 300, 300},
		{"tenths above threshold", 400, 40},
		{"boundary stays whole", 350, 350},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := makeAA66()
			data[13] = byte(tt.raw & 0xFF)
			data[14] = byte(tt.raw >> 8)

			rec, err := Decode(frame(data))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if rec.CaseTemp != tt.want {
				t.Errorf("case_temperature = %v, want %v", rec.CaseTemp, tt.want)
			}
		})
	}
}

func TestDecodeAA66_Fields(t *testing.T) {
	rec, err := Decode(frame(makeAA66()))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantAA66 {
		t.Errorf("variant = %s, want AA66", rec.Variant)
	}
	if rec.Altitude != 100 {
		t.Errorf("altitude = %v, want 100", rec.Altitude)
	}
	if rec.SupplyVoltage != 24.5 {
		t.Errorf("supply_voltage = %v, want 24.5", rec.SupplyVoltage)
	}
	if rec.SetLevel != 7 {
		t.Errorf("set_level = %d, want 7", rec.SetLevel)
	}
	if rec.CabinTemp != 23 {
		t.Errorf("interior_temperature = %v, want 23", rec.CabinTemp)
	}
}

// ============================================================
// Encrypted 48-byte family
// ============================================================

func makeEncryptedPlain(header uint16) []byte {
	data := make([]byte, FrameLenEncrypted)
	data[0], data[1] = byte(header>>8), byte(header&0xFF)
	data[3] = 1                  // running
	data[5] = 3                  // running step
	data[6], data[7] = 0x03, 0xE8 // altitude 1000 tenths -> 100 m
	data[8] = ModeTemperature
	data[9] = 22                // set temp
	data[10] = 5                // set level
	data[11], data[12] = 0, 128 // 12.8 V
	data[13], data[14] = 0, 65  // case 65
	data[32], data[33] = 0, 235 // cabin 23.5
	data[34] = 253              // offset -3
	data[36] = 50               // backlight
	data[37] = 1                // CO sensor present
	data[38], data[39] = 0, 100 // 100 ppm
	data[40], data[41], data[42], data[43] = 0x78, 0x56, 0x34, 0x12
	data[44] = 5
	return data
}

func TestDecodeAA55Encrypted(t *testing.T) {
	wire := Encrypt(makeEncryptedPlain(HeaderAA55))

	rec, err := Decode(frame(wire))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantAA55Encrypted {
		t.Fatalf("variant = %s, want AA55-encrypted", rec.Variant)
	}
	if rec.Altitude != 100 {
		t.Errorf("altitude = %v, want 100", rec.Altitude)
	}
	if rec.SetTemp != 22 || rec.SetLevel != 5 {
		t.Errorf("set_temp/set_level = %d/%d, want 22/5", rec.SetTemp, rec.SetLevel)
	}
	if rec.SupplyVoltage != 12.8 {
		t.Errorf("supply_voltage = %v, want 12.8", rec.SupplyVoltage)
	}
	if rec.CabinTemp != 23.5 {
		t.Errorf("interior_temperature = %v, want 23.5", rec.CabinTemp)
	}
	if rec.HeaterOffset == nil || *rec.HeaterOffset != -3 {
		t.Errorf("heater_offset = %v, want -3", rec.HeaterOffset)
	}
	if rec.Backlight == nil || *rec.Backlight != 50 {
		t.Errorf("backlight = %v, want 50", rec.Backlight)
	}
	if rec.COppm == nil || *rec.COppm != 100 {
		t.Errorf("co_ppm = %v, want 100", rec.COppm)
	}
	if rec.PartNumber != "12345678" {
		t.Errorf("part_number = %q, want 12345678", rec.PartNumber)
	}
	if rec.MotherboardVer == nil || *rec.MotherboardVer != 5 {
		t.Errorf("motherboard = %v, want 5", rec.MotherboardVer)
	}
}

func TestDecodeAA66Encrypted_ErrorOffsetAndUnits(t *testing.T) {
	plain := makeEncryptedPlain(HeaderAA66)
	plain[4] = 9   // would be the AA55 error position; must be ignored
	plain[35] = 7  // actual error position for this variant
	plain[26] = 0  // language
	plain[27] = 1  // Fahrenheit
	plain[9] = 72  // 72 F -> 22 C
	plain[28] = 3  // tank index
	plain[29] = 21 // RF433 on
	plain[31] = 1  // auto start/stop

	rec, err := Decode(frame(Encrypt(plain)))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantAA66Encrypted {
		t.Fatalf("variant = %s, want AA66-encrypted", rec.Variant)
	}
	if rec.ErrorCode != 7 {
		t.Errorf("error_code = %d, want 7 (offset 35, not 4)", rec.ErrorCode)
	}
	if rec.SetTemp != 22 {
		t.Errorf("set_temp = %d C, want 22 (converted from 72 F with rounding)", rec.SetTemp)
	}
	if rec.RF433Enabled == nil || !*rec.RF433Enabled {
		t.Error("rf433 should be on for pump byte 21")
	}
	if rec.PumpType != nil {
		t.Error("pump type should be nil when byte reports RF433 state")
	}
	if rec.AutoStartStop == nil || !*rec.AutoStartStop {
		t.Error("auto start/stop should be set")
	}
}

// ============================================================
// ABBA
// ============================================================

func makeABBA() []byte {
	data := make([]byte, 21)
	data[0], data[1], data[2], data[3] = 0xAB, 0xBA, 0x11, 0xCC
	data[4] = 0x01 // heating
	data[5] = 0x00 // level mode
	data[6] = 4    // gear
	data[8] = 1    // auto start/stop
	data[9] = 12   // volts
	data[10] = UnitCelsius
	data[11] = 53 // 53 - 30 = 23 C
	data[12], data[13] = 0x00, 0x50
	data[16], data[17] = 0xE8, 0x03 // 1000 m
	data[20] = sum8(data[:20])
	return data
}

func TestDecodeABBA(t *testing.T) {
	rec, err := Decode(frame(makeABBA()))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantABBA {
		t.Fatalf("variant = %s, want ABBA", rec.Variant)
	}
	if rec.RunningState != RunningStateOn || rec.RunningStep != StepRunning {
		t.Errorf("state/step = %d/%d, want on/running", rec.RunningState, rec.RunningStep)
	}
	if rec.RunningMode != ModeLevel || rec.SetLevel != 4 {
		t.Errorf("mode/level = %d/%d, want level/4", rec.RunningMode, rec.SetLevel)
	}
	if rec.SupplyVoltage != 12 {
		t.Errorf("supply_voltage = %v, want 12", rec.SupplyVoltage)
	}
	if rec.CabinTemp != 23 {
		t.Errorf("interior_temperature = %v, want 23", rec.CabinTemp)
	}
	if rec.CabinTempRaw == nil || *rec.CabinTempRaw != 23 {
		t.Error("raw cabin temperature should match, uncalibrated")
	}
	if rec.CaseTemp != 80 {
		t.Errorf("case_temperature = %v, want 80", rec.CaseTemp)
	}
	if rec.Altitude != 1000 {
		t.Errorf("altitude = %v, want 1000", rec.Altitude)
	}
	if !rec.ChecksumValid {
		t.Error("checksum should validate")
	}
}

func TestDecodeABBA_ErrorState(t *testing.T) {
	data := makeABBA()
	data[5] = 0xFF // error marker
	data[6] = 8    // fault code, not gear
	data[20] = sum8(data[:20])

	rec, err := Decode(frame(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.ErrorCode != 8 {
		t.Errorf("error_code = %d, want 8", rec.ErrorCode)
	}
	if rec.SetLevel != 0 || rec.SetTemp != 0 {
		t.Error("gear byte must not be parsed as level/temp in error state")
	}
}

func TestDecodeABBA_FahrenheitTarget(t *testing.T) {
	data := makeABBA()
	data[5] = 0x01 // temperature mode
	data[6] = 72   // 72 F -> 22 C
	data[10] = UnitFahrenheit
	data[11] = 45
	data[20] = sum8(data[:20])

	rec, err := Decode(frame(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.SetTemp != 22 {
		t.Errorf("set_temp = %d C, want 22 (converted from 72 F with rounding)", rec.SetTemp)
	}
	if rec.SetLevel != 0 {
		t.Errorf("set_level = %d, want 0 in temperature mode", rec.SetLevel)
	}
}

func TestDecodeABBA_FahrenheitEnvOffset(t *testing.T) {
	data := makeABBA()
	data[10] = UnitFahrenheit
	data[11] = 45 // 45 - 22 = 23
	data[20] = sum8(data[:20])

	rec, err := Decode(frame(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.CabinTemp != 23 {
		t.Errorf("interior_temperature = %v, want 23 (offset 22 in F mode)", rec.CabinTemp)
	}
}

// ============================================================
// CBFF
// ============================================================

func makeCBFF() []byte {
	data := make([]byte, FrameLenCBFF)
	data[0], data[1] = 0xCB, 0xFF
	data[2] = 2  // protocol version
	data[10] = 1 // running (2/5/6 mean off)
	data[11] = 2 // thermostat mode
	data[12] = 25
	data[13] = 6 // now_gear
	data[14] = 3 // running step
	data[15] = 0x05
	data[17] = UnitCelsius
	data[18], data[19] = 23, 0
	data[21], data[22] = 0x2C, 0x01 // 300 m
	data[23], data[24] = 123, 0     // 12.3 V
	data[25], data[26] = 0x2A, 0x01 // 29.8 C
	data[27], data[28] = 0xC8, 0x00 // 20.0 ppm
	data[29] = 1
	data[30], data[31] = 1, 0
	data[32], data[33] = 2, 0
	data[34] = 0xFE // offset -2
	data[35] = 0
	data[36] = 2
	data[37] = 20 // RF433 off
	data[38] = 80
	data[39] = 2
	data[40] = 1
	data[41] = 1
	data[42] = 1
	data[43] = 1                    // heater mode
	data[44], data[45] = 0xFF, 0xFF // remaining time n/a
	return data
}

func TestDecodeCBFF(t *testing.T) {
	rec, err := Decode(frame(makeCBFF()))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.Variant != VariantCBFF {
		t.Fatalf("variant = %s, want CBFF", rec.Variant)
	}
	if rec.ProtocolVersion == nil || *rec.ProtocolVersion != 2 {
		t.Errorf("protocol version = %v, want 2", rec.ProtocolVersion)
	}
	if rec.RunningState != RunningStateOn {
		t.Errorf("running_state = %d, want on", rec.RunningState)
	}
	if rec.RunningMode != ModeTemperature || rec.SetTemp != 25 {
		t.Errorf("mode/set_temp = %d/%d, want temperature/25", rec.RunningMode, rec.SetTemp)
	}
	if rec.SetLevel != 6 {
		t.Errorf("set_level = %d, want 6 (now_gear in thermostat mode)", rec.SetLevel)
	}
	if rec.ErrorCode != 5 {
		t.Errorf("error_code = %d, want 5", rec.ErrorCode)
	}
	if rec.SupplyVoltage != 12.3 {
		t.Errorf("supply_voltage = %v, want 12.3", rec.SupplyVoltage)
	}
	if rec.CaseTemp != 29.8 {
		t.Errorf("case_temperature = %v, want 29.8", rec.CaseTemp)
	}
	if rec.COppm == nil || *rec.COppm != 20 {
		t.Errorf("co_ppm = %v, want 20", rec.COppm)
	}
	if rec.HeaterOffset == nil || *rec.HeaterOffset != -2 {
		t.Errorf("heater_offset = %v, want -2", rec.HeaterOffset)
	}
	if rec.RF433Enabled == nil || *rec.RF433Enabled {
		t.Error("rf433 should be off for pump byte 20")
	}
	if rec.WifiEnabled == nil || !*rec.WifiEnabled {
		t.Error("wifi flag should be set")
	}
	if rec.RemainRunTime != nil {
		t.Error("remaining run time 65535 means not applicable")
	}
	if rec.HardwareVersion == nil || *rec.HardwareVersion != 1 {
		t.Errorf("hardware version = %v, want 1", rec.HardwareVersion)
	}
	if rec.HeaterMode == nil || *rec.HeaterMode != 1 {
		t.Errorf("heater_mode = %v, want 1", rec.HeaterMode)
	}
}

func TestDecodeCBFF_FahrenheitTarget(t *testing.T) {
	data := makeCBFF()
	data[12] = 72 // 72 F -> 22 C
	data[17] = UnitFahrenheit

	rec, err := Decode(frame(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if rec.SetTemp != 22 {
		t.Errorf("set_temp = %d C, want 22 (converted from 72 F with rounding)", rec.SetTemp)
	}
}

func TestDecodeCBFF_FahrenheitTargetOutOfDomain(t *testing.T) {
	data := makeCBFF()
	data[12] = 120 // 120 F -> 49 C, past the 36 C ceiling
	data[17] = UnitFahrenheit

	_, err := Decode(frame(data))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError for converted target out of range, got %v", err)
	}
}

func TestDecodeCBFF_RunStateOff(t *testing.T) {
	for _, off := range []byte{2, 5, 6} {
		data := makeCBFF()
		data[10] = off

		rec, err := Decode(frame(data))
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if rec.RunningState != RunningStateOff {
			t.Errorf("run_state %d should decode as off", off)
		}
	}
}

func TestDecodeCBFF_EncryptedRetry(t *testing.T) {
	plain := makeCBFF()
	key := AddressKey("AA:BB:CC:DD:EE:FF")
	wire := EncryptCBFF(plain, key)

	rec, err := DecodeAs(VariantCBFF, wire, "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("DecodeAs error: %v", err)
	}
	if rec.SupplyVoltage != 12.3 {
		t.Errorf("supply_voltage = %v, want 12.3 after double-XOR retry", rec.SupplyVoltage)
	}
	if rec.SetTemp != 25 {
		t.Errorf("set_temp = %d, want 25 after double-XOR retry", rec.SetTemp)
	}
}

func TestDecodeCBFF_SuspectWithoutKey(t *testing.T) {
	plain := makeCBFF()
	wire := EncryptCBFF(plain, AddressKey("AA:BB:CC:DD:EE:FF"))

	_, err := DecodeAs(VariantCBFF, wire, "")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError without an address key, got %v", err)
	}
}
