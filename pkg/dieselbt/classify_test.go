// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"errors"
	"math/rand"
	"testing"
)

func TestClassify_Variants(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Variant
	}{
		{
			name: "AA55 20 bytes",
			data: append([]byte{0xAA, 0x55}, make([]byte, 18)...),
			want: VariantAA55,
		},
		{
			name: "AA55 18 bytes",
			data: append([]byte{0xAA, 0x55}, make([]byte, 16)...),
			want: VariantAA55,
		},
		{
			name: "AA66 20 bytes",
			data: append([]byte{0xAA, 0x66}, make([]byte, 18)...),
			want: VariantAA66,
		},
		{
			name: "ABBA 21 bytes",
			data: append([]byte{0xAB, 0xBA, 0x11, 0xCC}, make([]byte, 17)...),
			want: VariantABBA,
		},
		{
			name: "CBFF 47 bytes",
			data: append([]byte{0xCB, 0xFF}, make([]byte, 45)...),
			want: VariantCBFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, payload, err := Classify(tt.data)
			if err != nil {
				t.Fatalf("Classify error: %v", err)
			}
			if got != tt.want {
				t.Errorf("variant = %s, want %s", got, tt.want)
			}
			if len(payload) != len(tt.data) {
				t.Errorf("payload length = %d, want %d", len(payload), len(tt.data))
			}
		})
	}
}

func TestClassify_EncryptedFamily(t *testing.T) {
	for _, header := range [][2]byte{{0xAA, 0x55}, {0xAA, 0x66}} {
		plain := make([]byte, FrameLenEncrypted)
		plain[0], plain[1] = header[0], header[1]
		wire := Encrypt(plain)

		variant, payload, err := Classify(wire)
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}
		if !variant.Encrypted() {
			t.Errorf("header %02X%02X: variant %s not encrypted", header[0], header[1], variant)
		}
		if payload[0] != header[0] || payload[1] != header[1] {
			t.Error("payload was not decrypted")
		}
	}
}

func TestClassify_CommandAck(t *testing.T) {
	data := []byte{0xAA, 0x77, 0, 0, 0, 0, 0, 0, 0, 0}
	_, _, err := Classify(data)
	if !errors.Is(err, ErrCommandAck) {
		t.Errorf("expected ErrCommandAck, got %v", err)
	}
}

func TestClassify_Unknown(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0xAA}},
		{"wrong header right length", append([]byte{0xDE, 0xAD}, make([]byte, 18)...)},
		{"AA55 wrong length", append([]byte{0xAA, 0x55}, make([]byte, 10)...)},
		{"48 bytes decrypting to garbage", make([]byte, FrameLenEncrypted)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, _, err := Classify(tt.data)
			var unknown *UnknownProtocolError
			if !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownProtocolError, got %v (variant %s)", err, variant)
			}
			if unknown.Length != len(tt.data) {
				t.Errorf("diagnostic length = %d, want %d", unknown.Length, len(tt.data))
			}
		})
	}
}

// Classification must be total: arbitrary input yields a variant or a
// typed failure, never a panic.
func TestClassify_Total(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)

		variant, _, err := Classify(data)
		if err == nil && variant == VariantUnknown {
			t.Fatalf("nil error with unknown variant for %x", data)
		}
		if err != nil && !errors.Is(err, ErrCommandAck) {
			var unknown *UnknownProtocolError
			if !errors.As(err, &unknown) {
				t.Fatalf("untyped classification failure: %v", err)
			}
		}
	}
}
