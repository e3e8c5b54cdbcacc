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
	serveAddr    string
	serveModel   string
	serveBackend string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload page and prediction API",
	Long: `Start an HTTP server with an upload page and a JSON prediction endpoint.

Routes:
  GET  /         upload page with audio preview
  GET  /health   liveness and model classes
  POST /predict  multipart upload in the "file" field

Examples:
  speech-emotion serve --model model/bundle.yaml --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveModel, "model", "",
		"model bundle (YAML or JSON)")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "",
		"audio decoder backend (auto, native, ffmpeg)")
}

func runServe(cmd *cobra.Command, args []string) error {
	appCtx := newContext(cmd)
	appCtx.Addr = serveAddr
	appCtx.ModelPath = serveModel
	appCtx.Backend = serveBackend

	application, err := app.NewApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Serve(ctx)
}
