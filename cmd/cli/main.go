// Package main implements the meeting-intel CLI for batch imports, scoring
// and warehouse maintenance.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-intel/internal/app"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// version information
var version = "dev"

// maxLineBytes bounds one JSONL line; full transcripts can be large
const maxLineBytes = 16 << 20

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "meeting-intel",
	Short: "Import, score and load meeting transcripts",
	Long: `meeting-intel imports meeting transcripts from plaintext, markdown, HTML,
note-tool exports and automation payloads, scores them against the
opportunity and sales rubrics, and loads the results into the warehouse.

Configuration is read from the environment and an optional .env file.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(compareModelsCmd)
}

// signalContext is cancelled on interrupt so long runs stop cleanly
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openApp loads configuration and wires the requested collaborators
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger, opts)
}

// openWarehouse wires only the warehouse and fails when it is disabled
func openWarehouse(ctx context.Context) (*app.App, error) {
	a, err := openApp(ctx, app.Options{Warehouse: true})
	if err != nil {
		return nil, err
	}
	if a.DB == nil {
		a.Close()
		return nil, ucerrors.ErrWarehouseDisabled
	}
	return a, nil
}

// readJSONL decodes one value per non-empty line
func readJSONL[T any](path string) ([]*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		v := new(T)
		if err := json.Unmarshal(scanner.Bytes(), v); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// writeJSONL writes one value per line
func writeJSONL[T any](path string, values []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
