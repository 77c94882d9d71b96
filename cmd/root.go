// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	// BLE connection flags
	adapterID  string
	deviceAddr string

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Serial bridge flags
	portName string
	baudRate int

	// Device pairing code
	passkey int

	// State database
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "emberctl",
	Short: "BLE diesel heater controller",
	Long: `Emberctl - monitor and control BLE diesel cabin heaters.

Works with the common Chinese diesel heater controllers (AA55, AA66,
HeaterCC and CBFF protocol families), over direct BLE or through a
WebSocket or serial bridge.

Connection modes:
  BLE:       --address AA:BB:CC:DD:EE:FF [--adapter hci0]
  WebSocket: --url ws://host/path [--username user]
  Serial:    --port /dev/ttyUSB0 [--baud 115200]

For WebSocket authentication, the password is read from the
EMBERCTL_PASSWORD environment variable, or prompted interactively if
not set. The --password flag is intentionally not provided to avoid
leaking credentials in shell history.`,
	Version: "1.2.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.emberctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	// BLE connection flags
	rootCmd.PersistentFlags().StringVarP(&deviceAddr, "address", "a", "", "Heater MAC address")
	rootCmd.PersistentFlags().StringVar(&adapterID, "adapter", "hci0", "Bluetooth adapter")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Serial bridge flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial bridge device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().IntVar(&passkey, "passkey", 1234, "Device pairing code (0-9999)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "State database path (default ~/.emberctl.db)")

	for _, flag := range []string{"address", "adapter", "url", "username", "no-ssl-verify", "port", "baud", "passkey", "db"} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}
}

// initConfig loads the optional config file and wires flag defaults
// through viper, so persistent settings like address and passkey do
// not need repeating on every invocation.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".emberctl")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("EMBERCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		log.WithField("file", viper.ConfigFileUsed()).Debug("config loaded")
	}

	deviceAddr = viper.GetString("address")
	adapterID = viper.GetString("adapter")
	wsURL = viper.GetString("url")
	wsUsername = viper.GetString("username")
	wsNoSSLVerify = viper.GetBool("no-ssl-verify")
	portName = viper.GetString("port")
	baudRate = viper.GetInt("baud")
	passkey = viper.GetInt("passkey")
	dbPath = viper.GetString("db")

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return nil
}

// statePath resolves the database location.
func statePath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".emberctl.db"), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
