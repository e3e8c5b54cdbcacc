package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-emotion/internal/app"
)

// labelsCmd represents the labels command
var labelsCmd = &cobra.Command{
	Use:   "labels <paths...>",
	Short: "Show the labels resolved from corpus file names",
	Long: `Detect the corpus of each path and print the raw code and the mapped
emotion name side by side. No audio is read.

Examples:
  speech-emotion labels data/ravdess/Actor_01/03-01-05-01-02-01-12.wav
  speech-emotion labels -o json data/crema/1001_DFA_ANG_XX.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp(newContext(cmd))
		if err != nil {
			return err
		}
		_, err = application.Labels(args)
		return err
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
}
