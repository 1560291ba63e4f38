// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

var (
	runInputFlag   string
	runChatFlag    string
	runTimeoutFlag int64
	runBackends    []string
)

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <integration> <capability>",
		Short: "Execute a connector capability",
		Long: `Execute one capability request through policy evaluation, routing, and
the backend attempt loop, printing the result envelope as JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: runCmdFunc,
	}

	cmd.Flags().StringVarP(&runInputFlag, "input", "i", "{}", "Capability input as a JSON object")
	cmd.Flags().StringVar(&runChatFlag, "chat-id", "", "Chat session scoping approvals")
	cmd.Flags().Int64Var(&runTimeoutFlag, "timeout-ms", 0, "Per-attempt timeout override in milliseconds")
	cmd.Flags().StringSliceVar(&runBackends, "backend", nil, "Preferred backend order (native, mcp, plugin)")

	return cmd
}

func runCmdFunc(cmd *cobra.Command, args []string) error {
	integration := connector.IntegrationID(args[0])
	if !integration.Valid() {
		return fmt.Errorf("unknown integration %q", args[0])
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(runInputFlag), &input); err != nil {
		return fmt.Errorf("--input must be a JSON object: %w", err)
	}

	var preferred []connector.Backend
	for _, b := range runBackends {
		backend := connector.Backend(b)
		if !backend.Valid() {
			return fmt.Errorf("unknown backend %q", b)
		}
		preferred = append(preferred, backend)
	}

	bundle, err := buildService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer bundle.Close()

	result := bundle.Service.Execute(cmd.Context(), &connector.ExecutionRequest{
		Integration:       integration,
		Capability:        connector.Capability(args[1]),
		Input:             input,
		ChatID:            runChatFlag,
		TimeoutMs:         runTimeoutFlag,
		PreferredBackends: preferred,
	})

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(encoded))

	if !result.Success {
		return fmt.Errorf("execution failed: %s", result.Error.Message)
	}
	return nil
}
