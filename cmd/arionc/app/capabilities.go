// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func capabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List the registered connector capabilities",
		Long:  `List every (integration, capability) routing key with its backends and sensitivity.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			encoded, err := json.MarshalIndent(bundle.Service.GetCapabilities(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode capabilities: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
}
