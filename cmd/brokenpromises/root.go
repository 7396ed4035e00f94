package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"BrokenPromises/internal/app"
	"BrokenPromises/internal/config"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/logging"
)

type commandContext struct {
	configPath string
}

func (c *commandContext) config() config.Config {
	return config.Load(c.configPath)
}

// open builds the application; callers must Close it.
func (c *commandContext) open(ctx context.Context) (*app.Application, error) {
	cfg := c.config()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(ctx, cfg, logger)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "brokenpromises",
		Short:         "Collect news articles that refer to dates before their publication",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (default $BROKEN_PROMISES_CONFIG)")

	rootCmd.AddCommand(newCollectCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newArticlesCommand(ctx))
	rootCmd.AddCommand(newReportsCommand(ctx))
	rootCmd.AddCommand(newCountCommand(ctx))
	rootCmd.AddCommand(newLastScrapeCommand(ctx))
	rootCmd.AddCommand(newChannelsCommand(ctx))

	return rootCmd
}

func scopeArgs(args []string) (domain.Scope, error) {
	scope, err := domain.ParseScope(args...)
	if err != nil {
		return domain.Scope{}, fmt.Errorf("invalid date: %w", err)
	}
	return scope, nil
}
