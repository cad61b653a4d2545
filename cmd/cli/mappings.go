package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

var mappingNotes string

func init() {
	mappingsAddCmd.Flags().StringVar(&mappingNotes, "notes", "", "Free-form note stored with the mapping")

	mappingsCmd.AddCommand(mappingsListCmd)
	mappingsCmd.AddCommand(mappingsAddCmd)
	mappingsCmd.AddCommand(mappingsDeleteCmd)
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manage client-name mappings",
	Long: `Client-name mappings rewrite variant spellings of a client onto one
canonical name when records are assembled. Lookups ignore case and
surrounding whitespace.`,
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List client-name mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		mappings, err := a.Mappings.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VARIANT\tCANONICAL\tNOTES")
		for _, m := range mappings {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.VariantName, m.CanonicalName, m.Notes)
		}
		return w.Flush()
	},
}

var mappingsAddCmd = &cobra.Command{
	Use:   "add <variant> <canonical>",
	Short: "Add or replace a client-name mapping",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		mapping := &entities.ClientMapping{
			VariantName:   args[0],
			CanonicalName: args[1],
			Notes:         mappingNotes,
		}
		if err := a.Mappings.Save(ctx, mapping); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %q -> %q\n", mapping.VariantName, mapping.CanonicalName)
		return nil
	},
}

var mappingsDeleteCmd = &cobra.Command{
	Use:   "delete <variant>",
	Short: "Delete a client-name mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Mappings.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted %q\n", args[0])
		return nil
	},
}
