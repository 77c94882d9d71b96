// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

// Decode classifies a raw frame and runs the matching variant decoder.
// The returned record is fully validated against the variant's field
// domains; a checksum mismatch alone never rejects a frame.
func Decode(frame RawFrame) (*StatusRecord, error) {
	variant, payload, err := Classify(frame.Data)
	if err != nil {
		return nil, err
	}
	return DecodeAs(variant, payload, frame.Address)
}

// DecodeAs runs a specific variant decoder over an already classified
// (and, for the 48-byte family, already decrypted) payload. Sessions
// use it once the variant has been pinned for the connection.
func DecodeAs(variant Variant, payload []byte, address string) (*StatusRecord, error) {
	var (
		rec *StatusRecord
		err error
	)
	switch variant {
	case VariantAA55:
		rec, err = decodeAA55(payload)
	case VariantAA66:
		rec, err = decodeAA66(payload)
	case VariantAA55Encrypted:
		rec, err = decodeAA55Encrypted(payload)
	case VariantAA66Encrypted:
		rec, err = decodeAA66Encrypted(payload)
	case VariantABBA:
		rec, err = decodeABBA(payload)
	case VariantCBFF:
		rec, err = decodeCBFF(payload, AddressKey(address))
	default:
		return nil, &UnknownProtocolError{Length: len(payload)}
	}
	if err != nil {
		return nil, err
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
