package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
)

func newEntitlementsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entitlements",
		Short: "Inspect the tier entitlement tables",
	}
	cmd.AddCommand(newEntitlementsShowCommand())
	return cmd
}

func newEntitlementsShowCommand() *cobra.Command {
	var (
		tier       string
		tablesPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the entitlement set of a tier",
		Long: `Prints the limits and feature flags of a tier. The tables are the
embedded defaults unless --tables points at a replacement file, which is
validated the same way the server validates it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := entitlement.LoadTables(tablesPath)
			if err != nil {
				return err
			}
			resolvedTier := entity.ParseTier(tier)
			set := entitlement.NewResolver(tables).Resolve(resolvedTier)

			if asJSON {
				return writeJSON(cmd, map[string]interface{}{
					"tier":         resolvedTier,
					"entitlements": set.Flatten(),
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "tier: %s\n\n", resolvedTier)
			fmt.Fprintln(w, "LIMIT\tFEATURE\tWINDOW\tVALUE")
			for _, e := range set.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key(), e.Feature, e.Window, e.Limit)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "FLAG\tENABLED")
			for _, flag := range sortedKeys(set.Capabilities) {
				fmt.Fprintf(w, "%s\t%t\n", flag, set.Capabilities[flag])
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tier, "tier", string(entity.TierFree), "tier to print (free or premium)")
	cmd.Flags().StringVar(&tablesPath, "tables", "", "entitlement tables file (default: embedded tables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the flattened set as JSON")
	return cmd
}
