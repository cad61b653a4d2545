package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/app"
	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/usecase/pipeline"
)

var (
	scoreIn           string
	scoreOut          string
	scoreModel        string
	scoreIncludeSales bool
	scoreUpload       bool
)

func init() {
	scoreCmd.Flags().StringVar(&scoreIn, "in", "", "Transcripts JSONL from ingest (required)")
	scoreCmd.Flags().StringVar(&scoreOut, "out", "scored.jsonl", "Output JSONL of scored records")
	scoreCmd.Flags().StringVar(&scoreModel, "model", "", "Model to score with (default from DEFAULT_LLM_MODEL)")
	scoreCmd.Flags().BoolVar(&scoreIncludeSales, "include-sales", false, "Also run the sales rubric")
	scoreCmd.Flags().BoolVar(&scoreUpload, "upload", false, "Upsert scored records into the warehouse")
	_ = scoreCmd.MarkFlagRequired("in")
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score transcripts and write warehouse records",
	Long: `Score every transcript in a JSONL file against the opportunity rubric,
and optionally the sales rubric, then write one warehouse record per line.

Examples:
  meeting-intel score --in transcripts.jsonl --out scored.jsonl
  meeting-intel score --in transcripts.jsonl --model gpt-4o --include-sales --upload`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	transcripts, err := readJSONL[entities.Transcript](scoreIn)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, app.Options{Scoring: true, Warehouse: scoreUpload})
	if err != nil {
		return err
	}
	defer a.Close()

	results, failures := a.Pipeline.ScoreAll(ctx, transcripts, pipeline.ScoreOptions{
		Model:        scoreModel,
		IncludeSales: scoreIncludeSales,
	})
	for _, f := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", f)
	}

	records := make([]*entities.ScoredRecord, 0, len(results))
	qualified := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		records = append(records, res.Record)
		if res.Record.Qualified {
			qualified++
		}
	}
	if err := writeJSONL(scoreOut, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", scoreOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Scored %d (%d qualified), failed %d -> %s\n",
		len(records), qualified, len(failures), scoreOut)

	if scoreUpload {
		written, err := a.Pipeline.Load(ctx, records)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📦 Upserted %d of %d records\n", written, len(records))
	}
	return nil
}
