package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-emotion/internal/app"
)

var (
	predictModel   string
	predictBackend string
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict [flags] <audio-files...>",
	Short: "Classify the emotion of audio clips",
	Long: `Load a trained model bundle and classify each clip.

The same 3 second window and feature layout used for dataset extraction are
applied to every clip. Clips too short or too noisy to produce valid
features are reported with an error.

Examples:
  speech-emotion predict --model model/bundle.yaml clip.wav
  speech-emotion predict -o json --model model/bundle.json a.wav b.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictModel, "model", "",
		"model bundle (YAML or JSON)")
	predictCmd.Flags().StringVar(&predictBackend, "backend", "",
		"audio decoder backend (auto, native, ffmpeg)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	appCtx := newContext(cmd)
	appCtx.ModelPath = predictModel
	appCtx.Backend = predictBackend

	application, err := app.NewApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = application.Predict(ctx, args)
	return err
}
