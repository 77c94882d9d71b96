// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works
//
// Emberctl - BLE diesel heater controller
//
// A CLI tool for monitoring and controlling BLE diesel cabin heaters
// across the common controller protocol families.

package main

import (
	"os"

	"github.com/emberworks/emberctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
