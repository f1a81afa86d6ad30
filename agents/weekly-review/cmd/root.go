package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	weeklyreview "progress-dashboard/agents/weekly-review"
	"progress-dashboard/shared/config"
	"progress-dashboard/shared/logging"
)

// commandContext loads configuration and the logger once per invocation.
type commandContext struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func (c *commandContext) ensure() error {
	if c.cfg != nil {
		return nil
	}
	if c.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", c.configFile); err != nil {
			return fmt.Errorf("failed to set config file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *commandContext) newAgent(cmd *cobra.Command) (*weeklyreview.WeeklyReviewAgent, error) {
	agent := weeklyreview.NewWeeklyReviewAgent(c.cfg, c.logger)
	if err := agent.Initialize(cmd.Context()); err != nil {
		_ = agent.Close()
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}
	return agent, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "weekly-review",
		Short:         "Weekly episode progress review for the production dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.ensure()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.logger != nil {
				_ = ctx.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path (overrides CONFIG_FILE)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))

	return rootCmd
}
