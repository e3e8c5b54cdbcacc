package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-emotion/internal/app"
)

var (
	extractInputDir    string
	extractMetadata    string
	extractMetaBase    string
	extractOut         string
	extractFormat      string
	extractWorkers     int
	extractLabelPolicy string
	extractBackend     string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build a labelled feature dataset from audio files",
	Long: `Walk a corpus directory (or read a metadata CSV), extract a feature vector
from every clip in parallel and write the labelled table to CSV or SQLite.

Files that cannot be decoded or produce invalid features are skipped and
reported in the summary.

Examples:
  # Build features.csv from a directory of corpora
  speech-emotion extract --input-dir ./data --out features.csv

  # Use a metadata file with "path" and "emotion" columns
  speech-emotion extract --metadata ./dataset/metadata.csv --out features.csv

  # Resolve metadata paths against the metadata file's directory
  speech-emotion extract --metadata ./data/metadata.csv --metadata-base ./data

  # Write SQLite with human-readable labels and 8 workers
  speech-emotion extract --input-dir ./data --format sqlite --out features.db \
    --label-policy mapped --workers 8`,
	Args: func(cmd *cobra.Command, args []string) error {
		if extractInputDir == "" && extractMetadata == "" && GetConfig().GetString("batch.input_dir") == "" &&
			GetConfig().GetString("batch.metadata") == "" {
			return fmt.Errorf("requires --input-dir or --metadata")
		}
		return nil
	},
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractInputDir, "input-dir", "i", "",
		"directory to walk for audio files")
	extractCmd.Flags().StringVarP(&extractMetadata, "metadata", "m", "",
		"metadata CSV with path and emotion columns")
	extractCmd.Flags().StringVar(&extractMetaBase, "metadata-base", "",
		"directory relative metadata paths are resolved against (default working directory)")
	extractCmd.Flags().StringVar(&extractOut, "out", "",
		"output dataset path (default features.csv)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "",
		"dataset format (csv, sqlite)")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0,
		"parallel workers (default number of CPUs)")
	extractCmd.Flags().StringVar(&extractLabelPolicy, "label-policy", "",
		"label policy for directory input (raw, mapped)")
	extractCmd.Flags().StringVar(&extractBackend, "backend", "",
		"audio decoder backend (auto, native, ffmpeg)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	appCtx := newContext(cmd)
	appCtx.InputDir = extractInputDir
	appCtx.Metadata = extractMetadata
	appCtx.MetadataBase = extractMetaBase
	appCtx.Out = extractOut
	appCtx.Format = extractFormat
	appCtx.Workers = extractWorkers
	appCtx.LabelPolicy = extractLabelPolicy
	appCtx.Backend = extractBackend

	application, err := app.NewApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = application.Extract(ctx)
	return err
}
