package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/usecase/importer"
	"github.com/johnquangdev/meeting-intel/pkg/config"
)

var (
	ingestIn      string
	ingestOut     string
	ingestMapping string
)

func init() {
	ingestCmd.Flags().StringVar(&ingestIn, "in", "", "Directory of transcript files (required)")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "transcripts.jsonl", "Output JSONL file")
	ingestCmd.Flags().StringVar(&ingestMapping, "mapping", "", "Field mapping override for automation payloads")
	_ = ingestCmd.MarkFlagRequired("in")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import a directory of transcripts into JSONL",
	Long: `Import every supported file (.txt, .md, .html, .htm, .json) under a
directory and write one canonical transcript per line.

A file that cannot be imported is reported and skipped.

Examples:
  meeting-intel ingest --in ./transcripts --out transcripts.jsonl`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	mappingFile := ingestMapping
	if mappingFile == "" {
		if cfg, err := config.Load(); err == nil {
			mappingFile = cfg.Importer.MappingFile
		}
	}
	mapping, err := importer.LoadFieldMapping(mappingFile)
	if err != nil {
		return err
	}

	registry := importer.NewRegistry(importer.WithFieldMapping(mapping))
	transcripts, failures := registry.ImportDir(ingestIn)
	for _, f := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", f)
	}

	if err := writeJSONL(ingestOut, transcripts); err != nil {
		return fmt.Errorf("failed to write %s: %w", ingestOut, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Processed %d, failed %d -> %s\n", len(transcripts), len(failures), ingestOut)
	return nil
}
