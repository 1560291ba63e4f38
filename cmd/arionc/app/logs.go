// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var logsLimitFlag int

func logsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the run log",
		Long:  `Print the newest-first connector run records as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			encoded, err := json.MarshalIndent(bundle.Service.GetRunLogs(logsLimitFlag), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode run records: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}

	cmd.Flags().IntVar(&logsLimitFlag, "limit", 0, "Maximum records to print (0 means all retained)")
	return cmd
}
