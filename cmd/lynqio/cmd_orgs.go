package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lynqio/client/internal/identity"
)

func newOrgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Manage organization memberships",
	}
	cmd.AddCommand(newOrgsListCmd(), newOrgsSwitchCmd())
	return cmd
}

func newOrgsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				ms, err := a.provider.Memberships(ctx)
				if err != nil {
					if errors.Is(err, identity.ErrNoSession) {
						return errors.New("not logged in: run `lynqio login` first")
					}
					// Offline: fall back to the locally cached list.
					ms, err = a.store.ListMemberships(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(os.Stderr, "provider unreachable; showing cached memberships")
				} else if serr := a.store.SaveMemberships(ctx, ms); serr != nil {
					a.logger.Warn("caching memberships failed")
				}

				current, _ := a.session.Current()
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPLAN\tSEATS\tROLE\t")
				for _, m := range ms {
					marker := ""
					if m.Tenant.ID == current.ID {
						marker = " *"
					}
					fmt.Fprintf(w, "%s\t%s%s\t%s\t%d/%d\t%s\t\n",
						m.Tenant.ID, m.Tenant.Name, marker, m.Tenant.Plan,
						m.Tenant.SeatsUsed, m.Tenant.SeatsTotal, m.Role)
				}
				return w.Flush()
			})
		},
	}
}

func newOrgsSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <org-id-or-name>",
		Short: "Switch the active organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				m, err := a.findMembership(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := a.activator.Activate(ctx, m.Tenant)
				if err != nil {
					return err
				}
				if res.Verified {
					fmt.Printf("switched to %s (%s) after %d attempt(s)\n",
						m.Tenant.Name, m.Tenant.ID, res.Attempts)
				} else {
					fmt.Printf("switched to %s (%s); token claim not yet verified (last claim %q)\n",
						m.Tenant.Name, m.Tenant.ID, res.LastClaim)
				}
				return nil
			})
		},
	}
}
