package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-emotion/configs"
	"github.com/RyanBlaney/speech-emotion/internal/app"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect, generate and validate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display all effective configuration values",
	Long: `Load the configuration (defaults, config file, environment and flags) and
display every value to verify that it is parsed as expected.

Examples:
  speech-emotion config show
  speech-emotion --config ./speech-emotion.yaml config show`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var (
	initProfile      string
	initOutputFormat string
)

var configInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Write a configuration file with every default value",
	Long: `Write a configuration file holding every value of a profile.

Profiles:
  default        in-process decoding with ffmpeg fallback
  fast           in-process decoding with linear resampling
  high-fidelity  every file decoded through ffmpeg
  production     stricter upload limits and timeouts for the HTTP server
  development    debug logging, loopback server accepting more formats

Examples:
  speech-emotion config init speech-emotion.yaml
  speech-emotion config init --profile production --output-format json prod.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.GenerateExampleConfig(args[0], initProfile, initOutputFormat); err != nil {
			return err
		}
		fmt.Printf("Example configuration written to: %s (profile %s)\n", args[0], initProfile)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.ValidateConfigFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Configuration is valid: %s\n", args[0])
		fmt.Printf("   - Feature dimension: %d\n", config.Features.Dimension())
		fmt.Printf("   - Decoder backend: %s\n", config.Audio.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configValidateCmd)

	configInitCmd.Flags().StringVar(&initProfile, "profile", configs.ProfileDefault,
		"configuration profile ("+strings.Join(configs.Profiles, ", ")+")")
	configInitCmd.Flags().StringVar(&initOutputFormat, "output-format", "",
		"tune the output section for a format (json, yaml, csv, table)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Println("SPEECH EMOTION CONFIGURATION")
	fmt.Println(strings.Repeat("=", 80))

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Config File", GetConfig().ConfigFileUsed())
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)

	printSection("AUDIO CONFIGURATION")
	printKeyValue("Sample Rate", fmt.Sprintf("%d Hz", config.Audio.SampleRate))
	printKeyValue("Offset", config.Audio.Offset.String())
	printKeyValue("Duration", config.Audio.Duration.String())
	printKeyValue("Backend", string(config.Audio.Backend))
	printKeyValue("Resampler", config.Audio.Resampler)
	printKeyValue("FFmpeg", config.Audio.FFmpegPath)
	printKeyValue("Timeout", config.Audio.Timeout.String())

	printSection("FEATURE CONFIGURATION")
	printKeyValue("FFT Size", fmt.Sprintf("%d", config.Features.NFFT))
	printKeyValue("Hop Length", fmt.Sprintf("%d", config.Features.HopLength))
	printKeyValue("MFCC", fmt.Sprintf("%d", config.Features.NMFCC))
	printKeyValue("Mel Bands", fmt.Sprintf("%d", config.Features.NMels))
	printKeyValue("Chroma Bins", fmt.Sprintf("%d", config.Features.NChroma))
	printKeyValue("Contrast Bands", fmt.Sprintf("%d", config.Features.ContrastBands))
	printKeyValue("Rolloff", fmt.Sprintf("%.2f", config.Features.RolloffPercent))
	printKeyValue("Dimension", fmt.Sprintf("%d", config.Features.Dimension()))

	printSection("BATCH CONFIGURATION")
	printKeyValue("Input Directory", config.Batch.InputDir)
	printKeyValue("Metadata", config.Batch.Metadata)
	printKeyValue("Metadata Base", config.Batch.MetadataBase)
	printKeyValue("Output", config.Batch.Out)
	printKeyValue("Format", config.Batch.Format)
	printKeyValue("Workers", fmt.Sprintf("%d", config.Batch.Workers))
	printKeyValue("Label Policy", config.Batch.LabelPolicy)
	printKeyValue("Extensions", strings.Join(config.Batch.Extensions, ", "))

	printSection("MODEL AND SERVER")
	printKeyValue("Model Bundle", config.Model.Path)
	printKeyValue("Address", config.Server.Addr)
	printKeyValue("Max Upload", fmt.Sprintf("%d bytes", config.Server.MaxUploadBytes))
	printKeyValue("Upload Types", strings.Join(config.Server.AllowedExtensions, ", "))

	printSection("METRICS")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Log File", config.Metrics.LogFile)
	printKeyValue("Tags", strings.Join(config.Metrics.Tags, ", "))

	if err := configs.ValidateConfig(config); err != nil {
		fmt.Printf("\nConfiguration is INVALID: %v\n", err)
		return err
	}
	fmt.Println("\nConfiguration is valid")
	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}
