package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsageCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect advisory usage counters",
	}
	cmd.AddCommand(newUsageShowCommand(opts))
	return cmd
}

func newUsageShowCommand(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the stored counters of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Redis == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "redis.addr is not configured, counters of other processes are not visible")
			}

			counters, err := a.UsageStore.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(counters) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no counters for %s\n", userID)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tWINDOW\tWINDOW KEY\tCOUNT")
			for _, c := range counters {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Feature, c.Window, c.WindowKey, c.Count)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "datastore user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
