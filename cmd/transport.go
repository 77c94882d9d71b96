// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/emberworks/emberctl/internal/link"
	"github.com/emberworks/emberctl/pkg/session"
)

// openTransport picks the link from the connection flags. A bridge
// (--url, then --port) takes precedence over a direct BLE connection,
// since giving one is an explicit choice while the address is also
// needed for frame decryption.
func openTransport() (session.Transport, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, "", err
			}
		}
		ws, err := link.NewWebSocket(wsURL, wsUsername, password, deviceAddr, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return ws, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		return link.NewSerial(portName, baudRate, deviceAddr),
			fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	if deviceAddr != "" {
		return link.NewBLE(adapterID, deviceAddr),
			fmt.Sprintf("BLE: %s via %s", deviceAddr, adapterID), nil
	}

	return nil, "", fmt.Errorf("one of --address, --url or --port must be specified")
}

// getPassword retrieves the bridge password from the environment or
// prompts without echo.
func getPassword() (string, error) {
	if pw := os.Getenv("EMBERCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	if raw, err := term.ReadPassword(int(syscall.Stdin)); err == nil {
		fmt.Fprintln(os.Stderr)
		return string(raw), nil
	}

	// Stdin is not a terminal, read a plain line instead.
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", fmt.Errorf("reading password: unexpected end of input")
	}
	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(sc.Text()), nil
}

// newSession wires a transport into a session with the shared flags.
func newSession() (*session.Session, string, error) {
	transport, info, err := openTransport()
	if err != nil {
		return nil, "", err
	}
	return session.New(transport, session.Config{Passkey: passkey}), info, nil
}
