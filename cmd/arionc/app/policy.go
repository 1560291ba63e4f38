// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
)

func policyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect or change the connector policy",
	}
	cmd.AddCommand(policyShowCommand())
	cmd.AddCommand(policySetCommand())
	cmd.AddCommand(policyResetCommand())
	return cmd
}

func policyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the normalised policy document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			encoded, err := json.MarshalIndent(bundle.Service.Policy().GetConfig(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode policy: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
}

func policySetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <policy.json>",
		Short: "Replace the policy with the given JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// #nosec G304: the path is supplied by the operator.
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read policy document: %w", err)
			}
			var cfg policy.Config
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("invalid policy document: %w", err)
			}

			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			if err := bundle.Service.Policy().SetConfig(&cfg); err != nil {
				return err
			}
			fmt.Println("policy updated")
			return nil
		},
	}
}

func policyResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the policy to the defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			if err := bundle.Service.Policy().SetConfig(policy.DefaultConfig()); err != nil {
				return err
			}
			fmt.Println("policy reset to defaults")
			return nil
		},
	}
}
