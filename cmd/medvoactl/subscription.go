package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/medvoa-backend/internal/usecase"
	"github.com/wekeepgrowing/medvoa-backend/pkg/messaging"
)

func newSubscriptionCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Inspect subscriber records",
	}
	cmd.AddCommand(
		newSubscriptionShowCommand(opts),
		newSubscriptionLinkCommand(opts),
		newSubscriptionWatchCommand(opts),
	)
	return cmd
}

func newSubscriptionShowCommand(opts *options) *cobra.Command {
	var email, userID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the canonical record and the snapshot a user would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			record, err := a.Repos.Subscribers.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			snapshot, err := a.Query.GetSnapshot(ctx, usecase.AuthenticatedUser{ID: userID, Email: email})
			if err != nil {
				return err
			}

			return writeJSON(cmd, map[string]interface{}{
				"record":   record,
				"snapshot": snapshot,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber email")
	cmd.Flags().StringVar(&userID, "user-id", "", "datastore user id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSubscriptionLinkCommand(opts *options) *cobra.Command {
	var email, userID string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Bind a user id to a record that has none yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			linked, err := a.Query.LinkUser(cmd.Context(), email, userID)
			if err != nil {
				return err
			}
			if linked {
				fmt.Fprintf(cmd.OutOrStdout(), "linked %s to %s\n", email, userID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "no unlinked record for %s\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber email")
	cmd.Flags().StringVar(&userID, "user-id", "", "datastore user id (uuid)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newSubscriptionWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream subscription change notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Redis == nil {
				return errors.New("subscription watch needs redis.addr configured")
			}

			messages, err := messaging.Subscribe(cmd.Context(), a.Redis, messaging.ChannelSubscriptionChanged)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s\n", messaging.ChannelSubscriptionChanged)

			for msg := range messages {
				var change usecase.SubscriptionChangedMessage
				if err := json.Unmarshal(msg.Payload, &change); err != nil {
					fmt.Fprintf(out, "%s undecodable message: %s\n", msg.Time.Format("15:04:05"), msg.Payload)
					continue
				}
				fmt.Fprintf(out, "%s %s %s status=%s tier=%s\n",
					msg.Time.Format("15:04:05"), change.EventType, change.Email, change.Status, change.Tier)
			}
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
