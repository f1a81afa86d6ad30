package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Send this week's review once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()

			result := agent.Service().SendWeeklyReview(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("weekly review failed: %s", result.Message)
			}
			return nil
		},
	}
}
