// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage integration configurations and their secrets",
		Long: `Manage integration configurations. Secret fields are split off and stored
in the OS keyring; only the public part lands in the config file.`,
	}
	cmd.AddCommand(secretSetCommand())
	cmd.AddCommand(secretGetCommand())
	cmd.AddCommand(secretDeleteCommand())
	return cmd
}

func secretSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <integration> <config.json>",
		Short: "Validate and store an integration configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := connector.IntegrationID(args[0])
			if !id.Valid() {
				return fmt.Errorf("unknown integration %q", args[0])
			}

			// #nosec G304: the path is supplied by the operator.
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read config document: %w", err)
			}
			var cfg map[string]any
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("config document must be a JSON object: %w", err)
			}

			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			if err := bundle.Provider.SetIntegrationConfig(id, cfg); err != nil {
				return err
			}
			fmt.Printf("stored configuration for %s\n", id)
			return nil
		},
	}
}

func secretGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <integration>",
		Short: "Print the public half of an integration configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := connector.IntegrationID(args[0])
			if !id.Valid() {
				return fmt.Errorf("unknown integration %q", args[0])
			}

			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			merged, err := bundle.Provider.GetIntegrationConfig(id)
			if err != nil {
				return err
			}
			if merged == nil {
				fmt.Printf("%s is not configured\n", id)
				return nil
			}

			// Secret fields are redacted; only their presence is shown.
			public, secret := config.SplitIntegrationConfig(id, merged)
			for key := range secret {
				public[key] = "<redacted>"
			}
			encoded, err := json.MarshalIndent(public, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
}

func secretDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <integration>",
		Short: "Delete an integration configuration and its secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := connector.IntegrationID(args[0])
			if !id.Valid() {
				return fmt.Errorf("unknown integration %q", args[0])
			}

			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			if err := bundle.Provider.DeleteIntegrationConfig(id); err != nil {
				return err
			}
			fmt.Printf("deleted configuration for %s\n", id)
			return nil
		},
	}
}
