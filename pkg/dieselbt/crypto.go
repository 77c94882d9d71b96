// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import "strings"

// encryptionKey is the static XOR key shared by all encrypted AA55/AA66
// firmware ("password" in ASCII).
var encryptionKey = [8]byte{112, 97, 115, 115, 119, 111, 114, 100}

// cbffKey1 is the first CBFF double-XOR key, hardcoded in the vendor
// app. The second key is derived from the device address.
var cbffKey1 = []byte("passwordA2409PW")

// Decrypt applies the static single-XOR transform over six 8-byte
// blocks, matching the 48-byte encrypted AA55/AA66 frames. The
// transform is its own inverse.
func Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for block := 0; block < 6; block++ {
		base := 8 * block
		for i := 0; i < 8; i++ {
			if base+i < len(out) {
				out[base+i] ^= encryptionKey[i]
			}
		}
	}
	return out
}

// Encrypt is the companion of Decrypt. XOR is symmetric, so it simply
// reapplies the same transform.
func Encrypt(data []byte) []byte {
	return Decrypt(data)
}

// AddressKey derives the second CBFF XOR key from a link-layer address:
// the MAC with separators removed, upper-cased ("AA:BB:CC:DD:EE:FF"
// becomes "AABBCCDDEEFF", 12 ASCII bytes).
func AddressKey(address string) []byte {
	clean := strings.ToUpper(strings.ReplaceAll(address, ":", ""))
	return []byte(clean)
}

// DecryptCBFF applies the CBFF double-XOR transform: the whole frame is
// XORed with the repeating 15-byte static key, then with the repeating
// address key. Both passes are involutions, so the same call encrypts.
// The pass order matches what the device firmware applies.
func DecryptCBFF(data []byte, addressKey []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for i := range out {
		out[i] ^= cbffKey1[i%len(cbffKey1)]
	}
	if len(addressKey) > 0 {
		for i := range out {
			out[i] ^= addressKey[i%len(addressKey)]
		}
	}
	return out
}

// EncryptCBFF is the companion of DecryptCBFF.
func EncryptCBFF(data []byte, addressKey []byte) []byte {
	return DecryptCBFF(data, addressKey)
}
