// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package session

import (
	"context"
	"errors"
)

// Transport carries raw heater frames over some link (BLE, WebSocket
// bridge, serial). Implementations own their read loop and deliver
// complete notification payloads on Frames.
type Transport interface {
	// Connect establishes the link. It blocks until the link is usable
	// or the context is cancelled.
	Connect(ctx context.Context) error

	// Send writes one complete command packet.
	Send(ctx context.Context, data []byte) error

	// Frames returns the channel of inbound notification payloads. The
	// channel closes when the link drops.
	Frames() <-chan []byte

	// Address is the peer identity, used for frame decryption. For BLE
	// this is the MAC address; other links may return "".
	Address() string

	Close() error
}

var (
	// ErrCommandTimedOut is returned when a command got no response
	// within the deadline, including the retry attempt.
	ErrCommandTimedOut = errors.New("session: command timed out")

	// ErrTransportClosed is returned when the link dropped mid-exchange.
	ErrTransportClosed = errors.New("session: transport closed")

	// ErrSessionClosed is returned when the session is no longer running.
	ErrSessionClosed = errors.New("session: closed")
)
