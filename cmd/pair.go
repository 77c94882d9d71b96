// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberworks/emberctl/pkg/dieselbt"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Register this client with the heater",
	Long: `Perform the pairing handshake.

Heaters that enforce a pairing code reject keyed commands from unknown
clients. Pairing sends a randomized handshake frame carrying the code
from --passkey; once the controller accepts it, regular commands work.`,
	RunE: runPair,
}

func init() {
	pairCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "Overall pairing timeout")
	rootCmd.AddCommand(pairCmd)
}

func runPair(cmd *cobra.Command, args []string) error {
	sess, info, err := newSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	fmt.Printf("Pairing via %s\n", info)
	sess.Start(ctx)
	defer sess.Stop()

	if err := sess.Pair(ctx, dieselbt.CommandIntent{Command: dieselbt.CmdStatus, Passkey: passkey}); err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	fmt.Println("Paired")
	return nil
}
