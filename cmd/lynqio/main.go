// lynqio is the headless Lynqio client: tenant activation, outreach runs,
// prospects, chat, and plan gating from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lynqio/client/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "lynqio",
	Short:         "Lynqio outreach client",
	Long:          "Headless client for the Lynqio LinkedIn-outreach platform: organizations, runs, prospects, and chat.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(
		newMigrateCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newOrgsCmd(),
		newRunsCmd(),
		newProspectsCmd(),
		newChatCmd(),
		newUsageCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lynqio: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig is shared by every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// withApp wires the full client for a command and tears it down afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}
