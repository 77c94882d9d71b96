// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/pkg/dieselbt"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single command to the heater",
	Long: `Send one command and wait for the heater to acknowledge it.

The connection is held just long enough for the command round trip. The
set-temp unit is Celsius; conversion to the device unit happens
automatically when the heater reports Fahrenheit.`,
}

var (
	sendTimeout      time.Duration
	fahrenheitDevice bool
)

func init() {
	sendCmd.PersistentFlags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "Overall command timeout")
	sendCmd.PersistentFlags().BoolVar(&fahrenheitDevice, "fahrenheit", false, "Device displays Fahrenheit (affects temp encoding)")

	sendCmd.AddCommand(
		sendIntentCmd("power <on|off|toggle>", "Turn the heater on or off", 1, parsePower),
		sendIntentCmd("level <1-10>", "Set the power level", 1, parseLevel),
		sendIntentCmd("temp <8-36>", "Set the target temperature in Celsius", 1, parseTemp),
		sendIntentCmd("mode <level|temp>", "Switch between level and thermostat mode", 1, parseMode),
		sendIntentCmd("unit <c|f>", "Set the display temperature unit", 1, parseTempUnit),
		sendIntentCmd("altitude-unit <m|ft>", "Set the altitude unit", 1, parseAltUnit),
		sendIntentCmd("offset <-9..9>", "Set the thermostat temperature offset", 1, parseOffset),
		sendIntentCmd("tank <0-10>", "Set the configured tank size index", 1, parseArgCommand(dieselbt.CmdSetTank)),
		sendIntentCmd("pump <0-3>", "Set the fuel pump type", 1, parseArgCommand(dieselbt.CmdSetPump)),
		sendIntentCmd("language <0-4>", "Set the controller language", 1, parseArgCommand(dieselbt.CmdSetLanguage)),
		sendIntentCmd("backlight <0-10|20-100>", "Set the display backlight", 1, parseArgCommand(dieselbt.CmdSetBacklight)),
		sendIntentCmd("auto-start <on|off>", "Toggle automatic start/stop", 1, parseToggle(dieselbt.CmdSetAutoStart)),
		sendIntentCmd("high-altitude", "Toggle high altitude mode (HeaterCC only)", 0, parseHighAltitude),
		sendIntentCmd("time-sync", "Sync the controller clock to local time", 0, parseTimeSync),
		sendIntentCmd("status", "Request an immediate status report", 0, parseStatus),
	)
	rootCmd.AddCommand(sendCmd)
}

// sendIntentCmd wraps a parser into a cobra subcommand that opens the
// session, delivers the command and exits.
func sendIntentCmd(use, short string, arity int, parse func(args []string) (dieselbt.CommandIntent, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(arity),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := parse(args)
			if err != nil {
				return err
			}
			return deliver(intent)
		},
	}
}

func deliver(intent dieselbt.CommandIntent) error {
	sess, info, err := newSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	log.WithField("connection", info).Debug("delivering command")
	sess.Start(ctx)
	defer sess.Stop()

	if err := sess.Send(ctx, intent); err != nil {
		return fmt.Errorf("command %d: %w", intent.Command, err)
	}
	fmt.Println("OK")
	return nil
}

func parsePower(args []string) (dieselbt.CommandIntent, error) {
	switch args[0] {
	case "on", "toggle":
		return dieselbt.CommandIntent{Command: dieselbt.CmdPower, Argument: 1}, nil
	case "off":
		return dieselbt.CommandIntent{Command: dieselbt.CmdPower, Argument: 0}, nil
	}
	return dieselbt.CommandIntent{}, fmt.Errorf("power takes on, off or toggle, got %q", args[0])
}

func parseLevel(args []string) (dieselbt.CommandIntent, error) {
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return dieselbt.CommandIntent{}, fmt.Errorf("level must be a number: %v", err)
	}
	return dieselbt.NewLevelCommand(level, 0)
}

func parseTemp(args []string) (dieselbt.CommandIntent, error) {
	temp, err := strconv.Atoi(args[0])
	if err != nil {
		return dieselbt.CommandIntent{}, fmt.Errorf("temperature must be a number: %v", err)
	}
	return dieselbt.NewTemperatureCommand(temp, 0, fahrenheitDevice)
}

func parseMode(args []string) (dieselbt.CommandIntent, error) {
	switch args[0] {
	case "level":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetMode, Argument: dieselbt.ModeLevel}, nil
	case "temp", "thermostat":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetMode, Argument: dieselbt.ModeTemperature}, nil
	}
	return dieselbt.CommandIntent{}, fmt.Errorf("mode takes level or temp, got %q", args[0])
}

func parseTempUnit(args []string) (dieselbt.CommandIntent, error) {
	switch args[0] {
	case "c", "C", "celsius":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetTempUnit, Argument: dieselbt.UnitCelsius}, nil
	case "f", "F", "fahrenheit":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetTempUnit, Argument: dieselbt.UnitFahrenheit}, nil
	}
	return dieselbt.CommandIntent{}, fmt.Errorf("unit takes c or f, got %q", args[0])
}

func parseAltUnit(args []string) (dieselbt.CommandIntent, error) {
	switch args[0] {
	case "m", "meters":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetAltUnit, Argument: dieselbt.UnitMeters}, nil
	case "ft", "feet":
		return dieselbt.CommandIntent{Command: dieselbt.CmdSetAltUnit, Argument: dieselbt.UnitFeet}, nil
	}
	return dieselbt.CommandIntent{}, fmt.Errorf("altitude-unit takes m or ft, got %q", args[0])
}

func parseOffset(args []string) (dieselbt.CommandIntent, error) {
	offset, err := strconv.Atoi(args[0])
	if err != nil {
		return dieselbt.CommandIntent{}, fmt.Errorf("offset must be a number: %v", err)
	}
	return dieselbt.CommandIntent{Command: dieselbt.CmdSetOffset, Argument: offset}, nil
}

func parseArgCommand(command int) func(args []string) (dieselbt.CommandIntent, error) {
	return func(args []string) (dieselbt.CommandIntent, error) {
		arg, err := strconv.Atoi(args[0])
		if err != nil {
			return dieselbt.CommandIntent{}, fmt.Errorf("argument must be a number: %v", err)
		}
		return dieselbt.CommandIntent{Command: command, Argument: arg}, nil
	}
}

func parseToggle(command int) func(args []string) (dieselbt.CommandIntent, error) {
	return func(args []string) (dieselbt.CommandIntent, error) {
		switch args[0] {
		case "on":
			return dieselbt.CommandIntent{Command: command, Argument: 1}, nil
		case "off":
			return dieselbt.CommandIntent{Command: command, Argument: 0}, nil
		}
		return dieselbt.CommandIntent{}, fmt.Errorf("takes on or off, got %q", args[0])
	}
}

func parseHighAltitude(args []string) (dieselbt.CommandIntent, error) {
	return dieselbt.CommandIntent{Command: dieselbt.CmdHighAltitude}, nil
}

func parseTimeSync(args []string) (dieselbt.CommandIntent, error) {
	now := time.Now()
	return dieselbt.CommandIntent{
		Command:  dieselbt.CmdTimeSync,
		Argument: now.Hour()*60 + now.Minute(),
	}, nil
}

func parseStatus(args []string) (dieselbt.CommandIntent, error) {
	return dieselbt.CommandIntent{Command: dieselbt.CmdStatus}, nil
}
