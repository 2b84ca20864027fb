package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lynqio/client/internal/api"
	"lynqio/client/internal/gating"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage outreach automation runs",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsCreateCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs in the active organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				runs, err := a.runs.List(ctx, t.ID, page)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROSPECTS\tCREATED\t")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t\n",
						r.ID, r.Name, r.Status, r.ProspectCount, r.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "page cursor")
	return cmd
}

func newRunsCreateCmd() *cobra.Command {
	var name, templateID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a run in the active organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("runs create requires --name")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				usage, err := a.usage.Current(ctx, t.ID)
				if err != nil {
					a.logger.Warn("usage lookup failed, gating on plan only")
					usage = nil
				}
				decision, err := a.gate.Evaluate(ctx, t, usage, gating.FeatureRuns)
				if err != nil {
					return err
				}
				if !decision.Allowed {
					return fmt.Errorf("runs are not available on plan %s: %s", t.Plan, decision.Reason)
				}
				if err := a.runs.Create(ctx, t.ID, api.RunDraft{Name: name, TemplateID: templateID}); err != nil {
					return err
				}
				fmt.Printf("run %q created\n", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "run name")
	cmd.Flags().StringVar(&templateID, "template", "", "message template id")
	return cmd
}
