package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lynqio/client/internal/api"
)

func newProspectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prospects",
		Short: "Manage pipeline prospects",
	}
	cmd.AddCommand(newProspectsListCmd(), newProspectsMoveCmd())
	return cmd
}

func newProspectsListCmd() *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prospects in the active organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				prospects, err := a.prospects.List(ctx, t.ID, page)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTAGE\tHEADLINE\t")
				for _, p := range prospects {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", p.ID, p.FullName, p.Stage, p.Headline)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "page cursor")
	return cmd
}

func newProspectsMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <prospect-id> <stage>",
		Short: "Move a prospect to a pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				if err := a.prospects.Move(ctx, t.ID, args[0], api.Stage(args[1])); err != nil {
					return err
				}
				fmt.Printf("prospect %s moved to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}
