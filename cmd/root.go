package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-emotion/configs"
	"github.com/RyanBlaney/speech-emotion/internal/app"
)

const envPrefix = "SPEECH_EMOTION"

var (
	configFile   string
	verbose      bool
	logLevel     string
	outputFormat string
	outputFile   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speech-emotion",
	Short: "Speech emotion feature extraction and classification",
	Long: `Extract spectral features from speech clips and classify their emotion.

Key features:
- Batch feature extraction over TESS, RAVDESS, CREMA-D and SAVEE corpora
- 171-dimension feature vectors (ZCR, chroma, MFCC, RMS, mel, contrast,
  bandwidth, rolloff) averaged over a 3 second window
- CSV or SQLite datasets ready for model training
- Command line and HTTP inference with a trained model bundle`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/speech-emotion/speech-emotion.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, table, csv, yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "",
		"write results to a file instead of stdout")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("output.file", rootCmd.PersistentFlags().Lookup("output-file"))
}

// initConfig reads in .env, the config file and ENV variables if set
func initConfig() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "speech-emotion"))
		viper.AddConfigPath("/etc/speech-emotion")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("speech-emotion")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Set default values
	configs.SetDefaults(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	// Bind all flags to viper
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its environment variable
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// Apply the environment value to the flag when the flag is not set
		if !f.Changed {
			if val, ok := os.LookupEnv(envPrefix + "_" + envVarSuffix); ok {
				if err := cmd.Flags().Set(f.Name, val); err != nil {
					lastErr = err
				}
			}
		}

		if err := v.BindEnv(f.Name, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// newContext collects the global flags into an application context
func newContext(cmd *cobra.Command) *app.Context {
	ctx := &app.Context{
		ConfigFile: configFile,
		Verbose:    verbose,
	}
	if cmd.Flags().Changed("output") {
		ctx.OutputFormat = outputFormat
	}
	if cmd.Flags().Changed("log-level") {
		ctx.LogLevel = logLevel
	}
	if outputFile != "" {
		ctx.OutputFile = outputFile
	}
	return ctx
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
