// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the arionc CLI.
package main

import (
	"os"

	"github.com/GeoRetina/arion-connectors/cmd/arionc/app"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
