package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show plan usage for the active organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				u, err := a.usage.Current(ctx, t.ID)
				if err != nil {
					return err
				}
				fmt.Printf("organization: %s (%s)\n", t.Name, t.ID)
				fmt.Printf("plan:         %s\n", t.Plan)
				fmt.Printf("seats:        %d/%d\n", u.SeatsUsed, u.SeatsTotal)
				fmt.Printf("runs:         %d/%d\n", u.RunsUsed, u.RunsQuota)
				return nil
			})
		},
	}
}
