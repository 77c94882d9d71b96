// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeKeyedCommand_Shape(t *testing.T) {
	pkt, err := EncodeCommand(VariantAA55, CommandIntent{Command: CmdSetLevelTemp, Argument: 5, Passkey: 1234})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if len(pkt) != CommandLen {
		t.Fatalf("length = %d, want %d", len(pkt), CommandLen)
	}
	if pkt[0] != 0xAA || pkt[1] != 0x55 {
		t.Errorf("header = %02X %02X, want AA 55", pkt[0], pkt[1])
	}
	if pkt[2] != 12 || pkt[3] != 34 {
		t.Errorf("passkey bytes = %d %d, want 12 34", pkt[2], pkt[3])
	}
	if pkt[4] != CmdSetLevelTemp {
		t.Errorf("command byte = %d, want %d", pkt[4], CmdSetLevelTemp)
	}
	if pkt[5] != 5 || pkt[6] != 0 {
		t.Errorf("argument bytes = %d %d, want 5 0", pkt[5], pkt[6])
	}
}

// Property: a freshly encoded command always carries checksum equal to
// sum(bytes[2..6]) mod 256.
func TestEncodeCommand_ChecksumProperty(t *testing.T) {
	intents := []CommandIntent{
		{Command: CmdStatus, Argument: 0, Passkey: 0},
		{Command: CmdPower, Argument: 1, Passkey: 9999},
		{Command: CmdSetLevelTemp, Argument: 36, Passkey: 1},
		{Command: CmdSetOffset, Argument: -9, Passkey: 4321},
		{Command: CmdTimeSync, Argument: 1440, Passkey: 1234},
		{Command: CmdSetBacklight, Argument: 100, Passkey: 77},
	}
	for _, intent := range intents {
		pkt, err := EncodeCommand(VariantCBFF, intent)
		if err != nil {
			t.Fatalf("encode %v: %v", intent, err)
		}
		if got := sum8(pkt[2:7]); pkt[7] != got {
			t.Errorf("cmd %d: checksum = %d, computed %d", intent.Command, pkt[7], got)
		}
	}
}

func TestEncodeCommand_NegativeArgument(t *testing.T) {
	pkt, err := EncodeCommand(VariantAA55, CommandIntent{Command: CmdSetOffset, Argument: -9, Passkey: 0})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	// -9 as little-endian int16 two's complement.
	if pkt[5] != 0xF7 || pkt[6] != 0xFF {
		t.Errorf("argument bytes = %02X %02X, want F7 FF", pkt[5], pkt[6])
	}
}

func TestEncodeCommand_InvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		intent CommandIntent
	}{
		{"mode 3", CommandIntent{Command: CmdSetMode, Argument: 3}},
		{"power 2", CommandIntent{Command: CmdPower, Argument: 2}},
		{"offset 10", CommandIntent{Command: CmdSetOffset, Argument: 10}},
		{"offset -10", CommandIntent{Command: CmdSetOffset, Argument: -10}},
		{"language 5", CommandIntent{Command: CmdSetLanguage, Argument: 5}},
		{"tank 11", CommandIntent{Command: CmdSetTank, Argument: 11}},
		{"pump 4", CommandIntent{Command: CmdSetPump, Argument: 4}},
		{"backlight 15", CommandIntent{Command: CmdSetBacklight, Argument: 15}},
		{"backlight 101", CommandIntent{Command: CmdSetBacklight, Argument: 101}},
		{"passkey 10000", CommandIntent{Command: CmdStatus, Passkey: 10000}},
		{"unknown command", CommandIntent{Command: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeCommand(VariantAA55, tt.intent)
			var invalid *InvalidArgumentError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidArgumentError, got %v", err)
			}
		})
	}
}

func TestNewLevelCommand_Range(t *testing.T) {
	for _, level := range []int{0, 11} {
		if _, err := NewLevelCommand(level, 0); err == nil {
			t.Errorf("level %d should be rejected", level)
		}
	}
	intent, err := NewLevelCommand(10, 1234)
	if err != nil {
		t.Fatalf("level 10 rejected: %v", err)
	}
	if intent.Command != CmdSetLevelTemp || intent.Argument != 10 {
		t.Errorf("unexpected intent %+v", intent)
	}
}

func TestNewTemperatureCommand_Range(t *testing.T) {
	for _, temp := range []int{7, 37} {
		if _, err := NewTemperatureCommand(temp, 0, false); err == nil {
			t.Errorf("temperature %d should be rejected", temp)
		}
	}
	for _, temp := range []int{8, 36} {
		if _, err := NewTemperatureCommand(temp, 0, false); err != nil {
			t.Errorf("temperature %d rejected: %v", temp, err)
		}
	}
}

func TestNewTemperatureCommand_FahrenheitRounding(t *testing.T) {
	tests := []struct {
		celsius int
		wantF   int
	}{
		{22, 72}, // 71.6 rounds up
		{8, 46},  // 46.4 rounds down
		{36, 97}, // 96.8 rounds up
	}
	for _, tt := range tests {
		intent, err := NewTemperatureCommand(tt.celsius, 0, true)
		if err != nil {
			t.Fatalf("encode %d C: %v", tt.celsius, err)
		}
		if intent.Argument != tt.wantF {
			t.Errorf("%d C = %d F, want %d", tt.celsius, intent.Argument, tt.wantF)
		}
	}
}

func TestEncodeABBACommand(t *testing.T) {
	tests := []struct {
		name   string
		intent CommandIntent
		want   []byte
	}{
		{
			name:   "status request",
			intent: CommandIntent{Command: CmdStatus},
			want:   []byte{0xBA, 0xAB, 0x04, 0xCC, 0x00, 0x00, 0x00},
		},
		{
			name:   "power toggle opcode A1",
			intent: CommandIntent{Command: CmdPower, Argument: 1},
			want:   []byte{0xBA, 0xAB, 0x04, 0xBB, 0xA1, 0x00, 0x00},
		},
		{
			name:   "set temperature 21",
			intent: CommandIntent{Command: CmdSetLevelTemp, Argument: 21},
			want:   []byte{0xBA, 0xAB, 0x04, 0xDB, 0x15, 0x00, 0x00},
		},
		{
			name:   "thermostat mode",
			intent: CommandIntent{Command: CmdSetMode, Argument: ModeTemperature},
			want:   []byte{0xBA, 0xAB, 0x04, 0xBB, 0xAC, 0x00, 0x00},
		},
		{
			name:   "high altitude toggle",
			intent: CommandIntent{Command: CmdHighAltitude},
			want:   []byte{0xBA, 0xAB, 0x04, 0xBB, 0xA5, 0x00, 0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := EncodeCommand(VariantABBA, tt.intent)
			if err != nil {
				t.Fatalf("encode error: %v", err)
			}
			body, ck := pkt[:len(pkt)-1], pkt[len(pkt)-1]
			if !bytes.Equal(body, tt.want) {
				t.Errorf("body = % X, want % X", body, tt.want)
			}
			if ck != sum8(body) {
				t.Errorf("checksum = %02X, want %02X", ck, sum8(body))
			}
		})
	}
}

func TestEncodePairingCommand(t *testing.T) {
	pkt, err := EncodePairingCommand(CommandIntent{Command: CmdStatus})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if pkt[1] != cmdTypePairing {
		t.Errorf("type byte = %02X, want %02X", pkt[1], cmdTypePairing)
	}
	if pkt[7] != sum8(pkt[2:7]) {
		t.Error("pairing checksum must cover the random bytes")
	}
}
