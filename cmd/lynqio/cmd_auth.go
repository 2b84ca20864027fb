package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lynqio/client/internal/state"
	statemigrate "lynqio/client/internal/state/migrate"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply local state store migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Open creates the state dir and db file if missing.
			st, err := state.Open(cfg.StateDir)
			if err != nil {
				return err
			}
			_ = st.Close()
			if err := statemigrate.Run(state.DBPath(cfg.StateDir), args[0]); err != nil {
				if errors.Is(err, statemigrate.ErrNoChange) {
					fmt.Println("state store already up to date")
					return nil
				}
				return err
			}
			fmt.Printf("state store migrated %s\n", args[0])
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the identity provider",
		Long:  "Log in with --email; the password is read from LYNQIO_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("LYNQIO_PASSWORD")
			if email == "" || password == "" {
				return errors.New("login requires --email and LYNQIO_PASSWORD")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.provider.Login(ctx, email, password); err != nil {
					return err
				}
				if err := a.store.SetSessionKey(ctx, a.provider.SessionKey()); err != nil {
					a.logger.Warn("persisting session failed")
				}
				fmt.Println("logged in")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				a.provider.Logout()
				a.session.Clear()
				if err := a.store.SetSessionKey(ctx, ""); err != nil {
					return err
				}
				fmt.Println("logged out")
				return nil
			})
		},
	}
}
