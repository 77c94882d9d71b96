// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDecryptEncrypt_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		frame := make([]byte, FrameLenEncrypted)
		rng.Read(frame)

		out := Decrypt(Encrypt(frame))
		if !bytes.Equal(out, frame) {
			t.Fatalf("round trip changed frame at iteration %d", i)
		}
	}
}

func TestDecrypt_DoesNotMutateInput(t *testing.T) {
	frame := make([]byte, FrameLenEncrypted)
	for i := range frame {
		frame[i] = byte(i)
	}
	saved := append([]byte(nil), frame...)

	Decrypt(frame)
	if !bytes.Equal(frame, saved) {
		t.Error("Decrypt mutated its input")
	}
}

func TestDecrypt_KnownKey(t *testing.T) {
	// An all-zero frame decrypts to the repeating key itself.
	frame := make([]byte, 16)
	out := Decrypt(frame)
	want := []byte("passwordpassword")
	if !bytes.Equal(out, want) {
		t.Errorf("expected key bytes, got %q", out)
	}
}

func TestAddressKey(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"aa:bb:cc:dd:ee:ff", "AABBCCDDEEFF"},
		{"12:34:56:78:9A:BC", "123456789ABC"},
		{"AABBCCDDEEFF", "AABBCCDDEEFF"},
	}
	for _, tt := range tests {
		if got := string(AddressKey(tt.address)); got != tt.want {
			t.Errorf("AddressKey(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestDecryptCBFF_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	addresses := []string{
		"AA:BB:CC:DD:EE:FF",
		"00:11:22:33:44:55",
		"c8:47:8c:12:34:56",
	}
	for _, addr := range addresses {
		key := AddressKey(addr)
		frame := make([]byte, FrameLenCBFF)
		rng.Read(frame)

		out := DecryptCBFF(EncryptCBFF(frame, key), key)
		if !bytes.Equal(out, frame) {
			t.Errorf("double-XOR round trip failed for address %s", addr)
		}
	}
}

func TestDecryptCBFF_EmptyAddressKey(t *testing.T) {
	// Without an address key only the static pass applies; it must
	// still round-trip.
	frame := make([]byte, FrameLenCBFF)
	for i := range frame {
		frame[i] = byte(i * 3)
	}
	out := DecryptCBFF(DecryptCBFF(frame, nil), nil)
	if !bytes.Equal(out, frame) {
		t.Error("single-pass round trip failed")
	}
}
