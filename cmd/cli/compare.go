package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/app"
	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

var (
	compareIn     string
	compareModels []string
)

func init() {
	compareModelsCmd.Flags().StringVar(&compareIn, "in", "", "Transcripts JSONL from ingest (required)")
	compareModelsCmd.Flags().StringSliceVar(&compareModels, "models", nil, "Comma-separated models to compare (required)")
	_ = compareModelsCmd.MarkFlagRequired("in")
	_ = compareModelsCmd.MarkFlagRequired("models")
}

var compareModelsCmd = &cobra.Command{
	Use:   "compare-models",
	Short: "Score the same transcripts with several models",
	Long: `Score every transcript once per model and print how many meetings each
model qualified.

Examples:
  meeting-intel compare-models --in transcripts.jsonl --models gpt-4o-mini,gpt-5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		transcripts, err := readJSONL[entities.Transcript](compareIn)
		if err != nil {
			return err
		}
		a, err := openApp(ctx, app.Options{Scoring: true})
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Pipeline.CompareModels(ctx, transcripts, compareModels)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tSCORED\tFAILED\tQUALIFIED\tAVG SECTIONS")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\n", r.Model, r.Scored, r.Failed, r.Qualified, r.AvgQualifiedCount)
		}
		return w.Flush()
	},
}
