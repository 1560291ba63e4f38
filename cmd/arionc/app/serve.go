// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GeoRetina/arion-connectors/pkg/api"
)

var serveAddressFlag string

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the connector REST API server",
		Long: `Run the HTTP server exposing capability execution, the run log, the
policy document, approvals, and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bundle, err := buildService(ctx, true)
			if err != nil {
				return err
			}
			defer bundle.Close()

			return api.Serve(ctx, serveAddressFlag, bundle.Service, bundle.Registry)
		},
	}

	cmd.Flags().StringVar(&serveAddressFlag, "address", "127.0.0.1:8090", "Listen address")
	return cmd
}
