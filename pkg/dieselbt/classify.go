// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import "errors"

// Variant identifies one of the six incompatible wire formats. It is a
// closed set: detection happens once per connection and the decoder for
// the detected tag is used until the link drops.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantAA55
	VariantAA55Encrypted
	VariantAA66
	VariantAA66Encrypted
	VariantABBA
	VariantCBFF
)

func (v Variant) String() string {
	switch v {
	case VariantAA55:
		return "AA55"
	case VariantAA55Encrypted:
		return "AA55-encrypted"
	case VariantAA66:
		return "AA66"
	case VariantAA66Encrypted:
		return "AA66-encrypted"
	case VariantABBA:
		return "ABBA"
	case VariantCBFF:
		return "CBFF"
	default:
		return "unknown"
	}
}

// Encrypted reports whether the variant's telemetry arrives encrypted.
func (v Variant) Encrypted() bool {
	return v == VariantAA55Encrypted || v == VariantAA66Encrypted
}

// ErrCommandAck marks an AA77 acknowledgement frame. It is not
// telemetry and carries no status, but it is not a protocol failure
// either; sessions use it to complete an in-flight command.
var ErrCommandAck = errors.New("command acknowledgement frame")

// Classify inspects a raw frame's length and header and selects the
// wire variant. For 48-byte frames the header is only readable after a
// trial single-XOR decryption; the decrypted payload is returned so the
// caller does not decrypt twice. Classification is total: every input
// yields a variant or a typed failure, never a panic.
func Classify(data []byte) (Variant, []byte, error) {
	if len(data) < 2 {
		return VariantUnknown, nil, &UnknownProtocolError{Length: len(data)}
	}
	header := uint16(u16be(data[0], data[1]))

	switch {
	case header == HeaderAA77:
		return VariantUnknown, nil, ErrCommandAck

	case header == HeaderCBFF && len(data) >= FrameLenCBFFMin:
		// Possibly double-XOR encrypted past the marker; the decoder
		// retries with decryption when the stable fields look wrong.
		return VariantCBFF, data, nil

	case header == HeaderABBA && len(data) >= FrameLenABBAMin:
		return VariantABBA, data, nil

	case header == HeaderAA55 && len(data) >= FrameLenAA55Min && len(data) <= FrameLenAA55Max:
		return VariantAA55, data, nil

	case header == HeaderAA66 && len(data) == FrameLenAA55Max:
		return VariantAA66, data, nil

	case len(data) == FrameLenEncrypted:
		decrypted := Decrypt(data)
		switch uint16(u16be(decrypted[0], decrypted[1])) {
		case HeaderAA55:
			return VariantAA55Encrypted, decrypted, nil
		case HeaderAA66:
			return VariantAA66Encrypted, decrypted, nil
		}
		return VariantUnknown, nil, &UnknownProtocolError{Length: len(data), Header: header}
	}

	return VariantUnknown, nil, &UnknownProtocolError{Length: len(data), Header: header}
}

// sum8 is the trailer checksum used by the AA55/AA66 and ABBA families:
// a modulo-256 sum over the given byte range.
func sum8(data []byte) byte {
	var s byte
	for _, b := range data {
		s += b
	}
	return s
}
