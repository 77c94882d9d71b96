// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/internal/store"
	"github.com/emberworks/emberctl/pkg/dieselbt"
	"github.com/emberworks/emberctl/pkg/fueltrack"
	"github.com/emberworks/emberctl/pkg/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive TUI for monitoring and controlling a heater",
	Long: `Live dashboard for one heater.

Shows the running state, temperatures, supply voltage and estimated
fuel figures, refreshed from the telemetry stream. The heater can be
controlled directly:

  p       toggle power
  + / -   adjust power level
  q       quit

Supports BLE, WebSocket and serial connections.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Event log entry
type watchLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type watchUpdateMsg session.Update
type watchClosedMsg struct{}
type watchCmdResultMsg struct {
	label string
	err   error
}

type watchModel struct {
	sess      *session.Session
	estimator *fueltrack.Estimator
	connInfo  string

	spin     spinner.Model
	record   *dieselbt.StatusRecord
	stale    bool
	fuel     fueltrack.Report
	eventLog []watchLogEntry
	width    int
	height   int
	quitting bool
}

func initialWatchModel(sess *session.Session, estimator *fueltrack.Estimator, connInfo string) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	return watchModel{
		sess:      sess,
		estimator: estimator,
		connInfo:  connInfo,
		spin:      sp,
		width:     80,
		height:    24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tea.EnterAltScreen)
}

// sendCommand runs a session command off the UI loop.
func (m watchModel) sendCommand(label string, intent dieselbt.CommandIntent) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return watchCmdResultMsg{label: label, err: sess.Send(ctx, intent)}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "p":
			return m, m.sendCommand("power toggle", dieselbt.CommandIntent{Command: dieselbt.CmdPower, Argument: 1})
		case "+", "=":
			if level := m.currentLevel(); level > 0 && level < dieselbt.MaxLevel {
				intent, err := dieselbt.NewLevelCommand(level+1, 0)
				if err == nil {
					return m, m.sendCommand(fmt.Sprintf("level %d", level+1), intent)
				}
			}
		case "-":
			if level := m.currentLevel(); level > dieselbt.MinLevel {
				intent, err := dieselbt.NewLevelCommand(level-1, 0)
				if err == nil {
					return m, m.sendCommand(fmt.Sprintf("level %d", level-1), intent)
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case watchUpdateMsg:
		u := session.Update(msg)
		if !u.Available {
			m.record = nil
			m.addLogEntry("connection lost", true)
			return m, nil
		}
		m.stale = u.Stale
		if u.Stale {
			m.addLogEntry("telemetry stale", true)
			return m, nil
		}
		rec := u.Record
		m.record = &rec
		m.estimator.Observe(rec)
		m.fuel = m.estimator.Report()
		if rec.ErrorCode != 0 {
			m.addLogEntry(fmt.Sprintf("fault: %s", rec.ErrorName()), true)
		}
		return m, nil

	case watchCmdResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.label, msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("%s acknowledged", msg.label), false)
		}
		return m, nil

	case watchClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m watchModel) currentLevel() int {
	if m.record == nil {
		return 0
	}
	return m.record.SetLevel
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, watchLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > 100 {
		m.eventLog = m.eventLog[len(m.eventLog)-100:]
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("EMBERCTL - HEATER DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | p: power  +/-: level  q: quit", m.connInfo)))
	s.WriteString("\n\n")

	if m.record == nil {
		s.WriteString(fmt.Sprintf("%s %s\n\n", m.spin.View(), warningStyle.Render("Waiting for heater...")))
		s.WriteString(m.renderLog(headerStyle, errorStyle, warningStyle, boxStyle))
		return s.String()
	}

	rec := m.record
	status := strings.Builder{}
	stepValue := valueStyle.Render(rec.StepName())
	if m.stale {
		stepValue = warningStyle.Render(rec.StepName() + " (stale)")
	}
	status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Step:"), stepValue,
		labelStyle.Render("Mode:"), valueStyle.Render(rec.ModeName()),
		labelStyle.Render("Protocol:"), headerStyle.Render(rec.Variant.String()),
	))

	if rec.ErrorCode != 0 {
		status.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Fault:"), errorStyle.Render(rec.ErrorName()),
		))
	}

	if rec.RunningMode == dieselbt.ModeTemperature {
		status.WriteString(fmt.Sprintf("%s %s   ",
			labelStyle.Render("Target:"), valueStyle.Render(fmt.Sprintf("%d°", rec.SetTemp))))
	}
	status.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("Level:"), valueStyle.Render(fmt.Sprintf("%d/10", rec.SetLevel))))

	status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Cabin:"), valueStyle.Render(fmt.Sprintf("%.1f°", rec.CabinTemp)),
		labelStyle.Render("Case:"), valueStyle.Render(fmt.Sprintf("%.1f°", rec.CaseTemp)),
		labelStyle.Render("Supply:"), valueStyle.Render(fmt.Sprintf("%.1f V", rec.SupplyVoltage)),
	))

	s.WriteString(boxStyle.Render(status.String()))
	s.WriteString("\n\n")

	fuel := strings.Builder{}
	fuel.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.2f L/h", m.fuel.HourlyRate)),
		labelStyle.Render("Today:"), valueStyle.Render(fmt.Sprintf("%.2f L", m.fuel.DailyFuel)),
		labelStyle.Render("Lifetime:"), valueStyle.Render(fmt.Sprintf("%.2f L", m.fuel.TotalFuel)),
	))
	remaining := "unknown"
	if m.fuel.RemainingLiters != nil {
		remaining = fmt.Sprintf("%.2f L", *m.fuel.RemainingLiters)
	}
	fuel.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("In tank:"), valueStyle.Render(remaining),
		labelStyle.Render("Runtime today:"), valueStyle.Render(fmt.Sprintf("%.1f h", m.fuel.DailyRuntimeHours)),
	))

	s.WriteString(boxStyle.Render(fuel.String()))
	s.WriteString("\n\n")

	s.WriteString(m.renderLog(headerStyle, errorStyle, warningStyle, boxStyle))
	return s.String()
}

func (m watchModel) renderLog(headerStyle, errorStyle, warningStyle, boxStyle lipgloss.Style) string {
	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}

	return boxStyle.Width(m.width - 4).Render(logContent.String())
}

func runWatch(cmd *cobra.Command, args []string) error {
	sess, info, err := newSession()
	if err != nil {
		return err
	}

	path, err := statePath()
	if err != nil {
		return err
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	estimator, err := fueltrack.NewEstimator(db.Fuel(deviceAddr))
	if err != nil {
		return err
	}
	defer func() { _ = estimator.Flush() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess.Start(ctx)
	defer sess.Stop()

	p := tea.NewProgram(initialWatchModel(sess, estimator, info), tea.WithAltScreen())

	// Forward session updates into the UI loop.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-sess.Updates():
				if !ok {
					p.Send(watchClosedMsg{})
					return
				}
				p.Send(watchUpdateMsg(u))
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
