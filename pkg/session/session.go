// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

// Package session maintains a long-lived exchange with one heater over
// a Transport. It owns connection recovery with staged backoff, a
// periodic status poll, command send/acknowledge tracking with one
// retry, and staleness detection when telemetry stops arriving.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emberworks/emberctl/pkg/dieselbt"
)

// State is where the session currently stands with its device.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateAwaitingResponse
	StateReconnecting
)

var stateNames = map[State]string{
	StateDisconnected:     "disconnected",
	StateConnecting:       "connecting",
	StateIdle:             "idle",
	StateAwaitingResponse: "awaiting-response",
	StateReconnecting:     "reconnecting",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Update is one event on the session's outbound channel. Available
// reports whether the device link is up; Stale is set when the link is
// up but no telemetry arrived for the configured number of poll cycles.
type Update struct {
	Record    dieselbt.StatusRecord
	Available bool
	Stale     bool
}

// Defaults for Config zero values.
const (
	DefaultPollInterval    = 30 * time.Second
	DefaultConnectDeadline = 5 * time.Second
	DefaultCommandDeadline = 2 * time.Second
	DefaultCommandRetries  = 1
	DefaultStaleCycles     = 3
)

// backoffSchedule is the per-stage reconnect delay. Stages beyond the
// end of the schedule stay clamped at the final entry.
var backoffSchedule = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
}

// Config tunes one Session. Zero values take the defaults above.
type Config struct {
	// Passkey is the four-digit pairing code sent with keyed commands.
	Passkey int

	PollInterval    time.Duration
	ConnectDeadline time.Duration
	CommandDeadline time.Duration
	CommandRetries  int
	StaleCycles     int

	// Backoff overrides the reconnect delay schedule.
	Backoff []time.Duration
}

func (c *Config) fill() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ConnectDeadline <= 0 {
		c.ConnectDeadline = DefaultConnectDeadline
	}
	if c.CommandDeadline <= 0 {
		c.CommandDeadline = DefaultCommandDeadline
	}
	if c.CommandRetries < 0 {
		c.CommandRetries = DefaultCommandRetries
	}
	if c.StaleCycles <= 0 {
		c.StaleCycles = DefaultStaleCycles
	}
	if len(c.Backoff) == 0 {
		c.Backoff = backoffSchedule
	}
}

func (c *Config) backoffDelay(stage int) time.Duration {
	if stage >= len(c.Backoff) {
		stage = len(c.Backoff) - 1
	}
	return c.Backoff[stage]
}

type cmdRequest struct {
	intent  dieselbt.CommandIntent
	pairing bool
	reply   chan error
}

// Session drives one heater connection. Create with New, then Start.
type Session struct {
	cfg       Config
	transport Transport
	logger    *log.Entry

	updates chan Update
	cmds    chan cmdRequest

	mu      sync.Mutex
	state   State
	variant dieselbt.Variant
	last    dieselbt.StatusRecord
	seen    bool
	frameAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a session over the given transport. The session does not
// touch the transport until Start.
func New(transport Transport, cfg Config) *Session {
	cfg.fill()
	return &Session{
		cfg:       cfg,
		transport: transport,
		logger:    log.WithField("peer", transport.Address()),
		updates:   make(chan Update, 16),
		cmds:      make(chan cmdRequest),
		state:     StateDisconnected,
		variant:   dieselbt.VariantUnknown,
		done:      make(chan struct{}),
	}
}

// Updates returns the session's event channel. The channel is bounded;
// when the consumer falls behind, the oldest pending update is dropped.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Variant reports the wire variant pinned for the current connection,
// or VariantUnknown before the first decoded frame.
func (s *Session) Variant() dieselbt.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant
}

// Last returns the most recent decoded status and whether one exists.
func (s *Session) Last() (dieselbt.StatusRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.seen
}

// Start launches the session loop. It returns immediately; connection
// progress is visible via State and Updates.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Stop tears the session down and waits for the loop to exit.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Send issues a command and waits for the device to acknowledge it,
// retrying once on deadline. Any telemetry frame or an explicit ack
// counts as the response.
func (s *Session) Send(ctx context.Context, intent dieselbt.CommandIntent) error {
	return s.submit(ctx, cmdRequest{intent: intent, reply: make(chan error, 1)})
}

// Pair issues the pairing handshake used to register this client with
// the heater before keyed commands are accepted.
func (s *Session) Pair(ctx context.Context, intent dieselbt.CommandIntent) error {
	return s.submit(ctx, cmdRequest{intent: intent, pairing: true, reply: make(chan error, 1)})
}

func (s *Session) submit(ctx context.Context, req cmdRequest) error {
	select {
	case s.cmds <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.logger.WithField("state", state).Debug("session state change")
	}
}

// publish never blocks the loop; the oldest queued update gives way.
func (s *Session) publish(u Update) {
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.transport.Close()

	stage := 0
	var g *graceState
	for {
		s.setState(StateConnecting)
		connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectDeadline)
		err := s.transport.Connect(connectCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return
			}
			if g == nil {
				g = s.beginGrace()
			}
			delay := s.cfg.backoffDelay(stage)
			s.logger.WithError(err).WithField("retry_in", delay).Warn("connect failed")
			stage++
			s.setState(StateReconnecting)
			if !s.graceWait(ctx, g, delay) {
				s.setState(StateDisconnected)
				return
			}
			continue
		}
		stage = 0
		g = nil

		err = s.serve(ctx)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.logger.WithError(err).Info("connection lost, reconnecting")
		g = s.beginGrace()
		s.setState(StateReconnecting)
		if !s.graceWait(ctx, g, s.cfg.backoffDelay(0)) {
			s.setState(StateDisconnected)
			return
		}
	}
}

// graceState tracks a lost link through reconnect attempts. The last
// decoded status keeps being presented as stale but valid until
// StaleCycles poll intervals have elapsed since the loss; only then
// does the unavailable update go out.
type graceState struct {
	lostAt     time.Time
	missed     int
	downgraded bool
}

func (s *Session) beginGrace() *graceState {
	g := &graceState{lostAt: time.Now()}
	s.mu.Lock()
	last, seen := s.last, s.seen
	s.mu.Unlock()
	if !seen {
		// Nothing decoded yet, so there is no record worth keeping.
		g.downgraded = true
		s.publish(Update{Available: false})
		return g
	}
	s.publish(Update{Record: last, Available: true, Stale: true})
	return g
}

// graceWait sleeps out one reconnect backoff delay while advancing the
// grace clock. Each poll interval elapsed since the loss counts one
// missed cycle and republishes the last record as stale; exhausting
// StaleCycles downgrades to unavailable. Returns false when the
// context ended.
func (s *Session) graceWait(ctx context.Context, g *graceState, delay time.Duration) bool {
	wake := time.NewTimer(delay)
	defer wake.Stop()
	for {
		if g.downgraded {
			select {
			case <-ctx.Done():
				return false
			case <-wake.C:
				return true
			}
		}

		next := time.Until(g.lostAt.Add(time.Duration(g.missed+1) * s.cfg.PollInterval))
		if next < 0 {
			next = 0
		}
		cycle := time.NewTimer(next)
		select {
		case <-ctx.Done():
			cycle.Stop()
			return false
		case <-wake.C:
			cycle.Stop()
			return true
		case <-cycle.C:
			g.missed++
			if g.missed >= s.cfg.StaleCycles {
				g.downgraded = true
				s.logger.Warn("device unavailable")
				s.publish(Update{Available: false})
				continue
			}
			s.mu.Lock()
			last := s.last
			s.mu.Unlock()
			s.publish(Update{Record: last, Available: true, Stale: true})
		}
	}
}

// serve runs one connection until the link drops or the context ends.
// The variant pin and last-seen bookkeeping reset here so a device that
// reboots into a different protocol mode is picked up fresh.
func (s *Session) serve(ctx context.Context) error {
	s.mu.Lock()
	s.variant = dieselbt.VariantUnknown
	s.mu.Unlock()
	s.setState(StateIdle)

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()
	staleAfter := time.Duration(s.cfg.StaleCycles) * s.cfg.PollInterval
	stale := time.NewTimer(staleAfter)
	defer stale.Stop()

	s.pollStatus(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data, ok := <-s.transport.Frames():
			if !ok {
				return ErrTransportClosed
			}
			if s.handleFrame(data) {
				rearm(stale, staleAfter)
			}

		case <-poll.C:
			s.pollStatus(ctx)

		case <-stale.C:
			s.mu.Lock()
			last := s.last
			s.mu.Unlock()
			s.logger.Warn("telemetry stale")
			s.publish(Update{Record: last, Available: true, Stale: true})

		case req := <-s.cmds:
			before := s.frameSeenAt()
			req.reply <- s.command(ctx, req)
			// Frames consumed while waiting on the command count as
			// telemetry for staleness purposes.
			if s.frameSeenAt().After(before) {
				rearm(stale, staleAfter)
			}
			s.setState(StateIdle)
		}
	}
}

// rearm stops, drains and resets a timer from the goroutine that owns
// its channel.
func rearm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// handleFrame decodes one inbound payload and reports whether it was a
// usable response (telemetry or ack). Frames of a foreign variant are
// dropped once a variant is pinned.
func (s *Session) handleFrame(data []byte) bool {
	rec, err := dieselbt.Decode(dieselbt.RawFrame{
		Data:      data,
		Address:   s.transport.Address(),
		Timestamp: time.Now(),
	})
	if errors.Is(err, dieselbt.ErrCommandAck) {
		s.logger.Debug("command ack frame")
		s.markFrame()
		return true
	}
	if err != nil {
		s.logger.WithError(err).Debug("dropping frame")
		return false
	}

	s.mu.Lock()
	if s.variant == dieselbt.VariantUnknown {
		s.variant = rec.Variant
		s.logger.WithField("variant", rec.Variant).Info("protocol variant pinned")
	} else if rec.Variant != s.variant {
		s.mu.Unlock()
		s.logger.WithField("variant", rec.Variant).Debug("dropping foreign variant frame")
		return false
	}
	s.last = *rec
	s.seen = true
	s.frameAt = time.Now()
	s.mu.Unlock()

	s.publish(Update{Record: *rec, Available: true})
	return true
}

func (s *Session) markFrame() {
	s.mu.Lock()
	s.frameAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) frameSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameAt
}

func (s *Session) pollStatus(ctx context.Context) {
	pkt, err := dieselbt.EncodeCommand(s.Variant(), dieselbt.CommandIntent{
		Command: dieselbt.CmdStatus,
		Passkey: s.cfg.Passkey,
	})
	if err != nil {
		s.logger.WithError(err).Error("status poll encode")
		return
	}
	if err := s.transport.Send(ctx, pkt); err != nil {
		s.logger.WithError(err).Warn("status poll send")
	}
}

// command sends one packet and waits for a response, retrying once on
// deadline. It owns the frames channel while it waits, so telemetry
// arriving in the window is still decoded and published.
func (s *Session) command(ctx context.Context, req cmdRequest) error {
	intent := req.intent
	if intent.Passkey == 0 {
		intent.Passkey = s.cfg.Passkey
	}

	var pkt []byte
	var err error
	if req.pairing {
		pkt, err = dieselbt.EncodePairingCommand(intent)
	} else {
		pkt, err = dieselbt.EncodeCommand(s.Variant(), intent)
	}
	if err != nil {
		return err
	}

	s.setState(StateAwaitingResponse)
	for attempt := 0; attempt <= s.cfg.CommandRetries; attempt++ {
		if attempt > 0 {
			s.logger.WithField("command", intent.Command).Debug("retrying command")
		}
		if err := s.transport.Send(ctx, pkt); err != nil {
			return err
		}

		deadline := time.NewTimer(s.cfg.CommandDeadline)
	wait:
		for {
			select {
			case <-ctx.Done():
				deadline.Stop()
				return ctx.Err()
			case data, ok := <-s.transport.Frames():
				if !ok {
					deadline.Stop()
					return ErrTransportClosed
				}
				if s.handleFrame(data) {
					deadline.Stop()
					return nil
				}
			case <-deadline.C:
				break wait
			}
		}
	}
	return ErrCommandTimedOut
}
