// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
)

var (
	approveModeFlag string
	approveChatFlag string
)

func approveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <integration> <capability>",
		Short: "Grant an approval for a gated capability",
		Long: `Grant a session or one-shot approval so the next matching execution
passes the policy's approval gate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			integration := connector.IntegrationID(args[0])
			if !integration.Valid() {
				return fmt.Errorf("unknown integration %q", args[0])
			}
			mode := policy.ApprovalMode(approveModeFlag)
			if mode != policy.ApprovalSession && mode != policy.ApprovalOnce {
				return fmt.Errorf("--mode must be session or once")
			}
			if mode == policy.ApprovalSession && approveChatFlag == "" {
				return fmt.Errorf("--chat-id is required for session approvals")
			}

			bundle, err := buildService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer bundle.Close()

			bundle.Service.GrantApproval(mode, integration, connector.Capability(args[1]), approveChatFlag)
			fmt.Printf("granted %s approval for %s/%s\n", mode, args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&approveModeFlag, "mode", "once", "Approval mode (session or once)")
	cmd.Flags().StringVar(&approveChatFlag, "chat-id", "", "Chat session the approval is scoped to")
	return cmd
}
