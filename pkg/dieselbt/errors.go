// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import "fmt"

// UnknownProtocolError reports a frame whose length and header match no
// known variant. It carries enough of the raw frame for diagnostics.
type UnknownProtocolError struct {
	Length int
	Header uint16
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol: length=%d header=0x%04X", e.Length, e.Header)
}

// DecodeError reports a frame that matched a variant but carried a
// field outside its documented domain.
type DecodeError struct {
	Variant Variant
	Field   string
	Value   float64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode: field %s out of domain (value %g)", e.Variant, e.Field, e.Value)
}

// InvalidArgumentError reports a command argument outside the legal
// range for its command id. Encoding fails before any bytes are built.
type InvalidArgumentError struct {
	Command  int
	Argument int
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %d for command %d: %s", e.Argument, e.Command, e.Reason)
}
