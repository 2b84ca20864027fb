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
	"lynqio/client/internal/chat"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Prospect conversations",
	}
	cmd.AddCommand(newChatChannelsCmd(), newChatTailCmd(), newChatSendCmd())
	return cmd
}

func newChatChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List conversation channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				channels, err := a.channels.List(ctx, t.ID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPROSPECT\tLAST ACTIVITY\t")
				for _, c := range channels {
					fmt.Fprintf(w, "%s\t%s\t%s\t\n", c.ID, c.ProspectName, c.LastActivity.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func newChatTailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail <channel-id>",
		Short: "Follow a channel, printing new messages as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				channelID := args[0]
				var printed int
				poller := chat.NewPoller(a.cfg.ChatPollIntervalDuration(),
					func(ctx context.Context) ([]api.Message, error) {
						return a.messages.ListFresh(ctx, t.ID, channelID)
					},
					func(msgs []api.Message) {
						for ; printed < len(msgs); printed++ {
							m := msgs[printed]
							fmt.Printf("[%s] %s: %s\n", m.SentAt.Format("15:04:05"), m.AuthorID, m.Body)
						}
					},
					a.logger)
				err = poller.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func newChatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <channel-id> <body>",
		Short: "Send a message to a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.ensureActive(ctx)
				if err != nil {
					return err
				}
				if err := a.messages.Send(ctx, t.ID, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, "message sent")
				return nil
			})
		},
	}
}
