// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package link

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Serial talks to a heater through a UART bridge that forwards each
// BLE notification as one write. Reads are passed along chunk by
// chunk; bridges are expected to keep frame boundaries.
type Serial struct {
	portName string
	baudRate int

	// peerAddress is the bridged heater's MAC, when known.
	peerAddress string
	logger      *log.Entry

	mu     sync.Mutex
	port   serial.Port
	frames chan []byte
	stop   chan struct{}
}

// NewSerial builds a transport for a serial bridge port.
func NewSerial(portName string, baudRate int, peerAddress string) *Serial {
	return &Serial{
		portName:    portName,
		baudRate:    baudRate,
		peerAddress: peerAddress,
		logger:      log.WithField("port", portName),
	}
}

func (s *Serial) Address() string { return s.peerAddress }

func (s *Serial) Frames() <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Serial) Connect(ctx context.Context) error {
	s.teardown()

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.portName, err)
	}

	frames := make(chan []byte, 16)
	stop := make(chan struct{})
	go func() {
		defer close(frames)
		buf := make([]byte, 512)
		for {
			n, err := port.Read(buf)
			if err != nil {
				s.logger.WithError(err).Debug("serial read ended")
				return
			}
			if n == 0 {
				continue
			}
			frame := append([]byte(nil), buf[:n]...)
			// Block rather than drop when the consumer lags.
			select {
			case frames <- frame:
			case <-stop:
				return
			}
		}
	}()

	s.mu.Lock()
	s.port = port
	s.frames = frames
	s.stop = stop
	s.mu.Unlock()

	s.logger.Info("serial link up")
	return nil
}

func (s *Serial) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return fmt.Errorf("serial: not connected")
	}
	if _, err := port.Write(data); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (s *Serial) teardown() {
	s.mu.Lock()
	port := s.port
	stop := s.stop
	s.port = nil
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if port != nil {
		_ = port.Close()
	}
}

func (s *Serial) Close() error {
	s.teardown()
	return nil
}
