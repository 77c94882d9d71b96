// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WebSocket talks to a heater through a bridge that forwards BLE
// notifications as binary WebSocket messages, one frame per message.
type WebSocket struct {
	url        string
	username   string
	password   string
	skipVerify bool

	// peerAddress is the bridged heater's MAC, needed for decryption of
	// address-keyed frames.
	peerAddress string
	logger      *log.Entry

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan []byte
	stop   chan struct{}
}

// NewWebSocket builds a transport for a ws:// or wss:// bridge URL.
// username and password may be empty when the bridge is open.
func NewWebSocket(wsURL, username, password, peerAddress string, skipVerify bool) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}
	return &WebSocket{
		url:         wsURL,
		username:    username,
		password:    password,
		skipVerify:  skipVerify,
		peerAddress: peerAddress,
		logger:      log.WithField("bridge", wsURL),
	}, nil
}

func (w *WebSocket) Address() string { return w.peerAddress }

func (w *WebSocket) Frames() <-chan []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

func (w *WebSocket) Connect(ctx context.Context) error {
	w.teardown()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if w.skipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	headers := http.Header{}
	if w.username != "" && w.password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.username + ":" + w.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, w.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("bridge connection failed: %w", err)
	}

	frames := make(chan []byte, 16)
	stop := make(chan struct{})
	go func() {
		defer close(frames)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				w.logger.WithError(err).Debug("bridge read ended")
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			// Block rather than drop when the consumer lags.
			select {
			case frames <- data:
			case <-stop:
				return
			}
		}
	}()

	w.mu.Lock()
	w.conn = conn
	w.frames = frames
	w.stop = stop
	w.mu.Unlock()

	w.logger.Info("bridge link up")
	return nil
}

func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket: not connected")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *WebSocket) teardown() {
	w.mu.Lock()
	conn := w.conn
	stop := w.stop
	w.conn = nil
	w.stop = nil
	w.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if conn != nil {
		_ = conn.Close()
	}
}

func (w *WebSocket) Close() error {
	w.teardown()
	return nil
}
