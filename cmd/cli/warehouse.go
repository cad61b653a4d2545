package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/infrastructure/database"
)

var (
	uploadIn    string
	migrateDown bool
	migrateMax  int
	infoDays    int
)

func init() {
	uploadCmd.Flags().StringVar(&uploadIn, "in", "", "Scored records JSONL (required)")
	_ = uploadCmd.MarkFlagRequired("in")

	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll migrations back instead of applying them")
	migrateCmd.Flags().IntVar(&migrateMax, "max", 0, "Maximum number of migrations to run (0 = all)")

	infoCmd.Flags().IntVar(&infoDays, "days", 30, "Window for the per-salesperson summary")
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upsert scored records into the warehouse",
	Long: `Upsert every record in a JSONL file keyed by meeting id. A stored row
with a later scored_at is kept.

Examples:
  meeting-intel upload --in scored.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		records, err := readJSONL[entities.ScoredRecord](uploadIn)
		if err != nil {
			return err
		}
		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		written, err := a.Pipeline.Load(ctx, records)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📦 Upserted %d of %d records\n", written, len(records))
		return nil
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Keep only the latest row per meeting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.Records.Dedupe(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d duplicate rows\n", removed)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded warehouse migrations",
	Long: `Apply (or roll back) the embedded SQL migrations for the warehouse tables.

Examples:
  meeting-intel migrate
  meeting-intel migrate --down --max 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := database.Migrate(a.DB, migrateDown, migrateMax)
		if err != nil {
			return err
		}
		direction := "Applied"
		if migrateDown {
			direction = "Rolled back"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s %d migrations\n", direction, n)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show warehouse row counts and salesperson summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Records.Info(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Table:      %s\n", info.Table)
		fmt.Fprintf(out, "Rows:       %d\n", info.Rows)
		fmt.Fprintf(out, "Qualified:  %d\n", info.QualifiedRows)
		if info.LatestScoredAt != nil {
			fmt.Fprintf(out, "Latest:     %s\n", info.LatestScoredAt.Format("2006-01-02 15:04:05"))
		}

		summary, err := a.Records.SalesSummary(ctx, infoDays)
		if err != nil {
			return err
		}
		if len(summary) == 0 {
			return nil
		}
		fmt.Fprintf(out, "\nSales (last %d days)\n", infoDays)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SALESPERSON\tMEETINGS\tAVG SCORE\tQUAL RATE\tBEST\tWORST")
		for _, s := range summary {
			fmt.Fprintf(w, "%s\t%d\t%.1f\t%.0f%%\t%d\t%d\n",
				s.SalespersonName, s.TotalMeetings, s.AvgTotalScore, s.QualificationRate*100, s.BestScore, s.WorstScore)
		}
		return w.Flush()
	},
}
