// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the arionc command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "arionc",
	DisableAutoGenTag: true,
	Short:             "arionc manages and executes geospatial connector capabilities",
	Long: `arionc is the command-line surface of the connector execution core.
It routes capability requests across native and remote (MCP) backends, gated
by a configurable policy with approval flows, and keeps a bounded log of runs.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the arionc CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("failed to bind flag: %v", err)
	}

	rootCmd.AddCommand(capabilitiesCommand())
	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(logsCommand())
	rootCmd.AddCommand(policyCommand())
	rootCmd.AddCommand(approveCommand())
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(newSecretCommand())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
