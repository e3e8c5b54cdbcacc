package configs

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-emotion/internal/dataset"
	"github.com/RyanBlaney/speech-emotion/internal/server"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
	"github.com/RyanBlaney/speech-emotion/pkg/corpus"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`

	// Clip loading and analysis window
	Audio audio.LoaderConfig `mapstructure:"audio"`

	// Feature extraction parameters
	Features features.Config `mapstructure:"features"`

	// Batch dataset build
	Batch BatchConfig `mapstructure:"batch"`

	// Trained model bundle
	Model ModelConfig `mapstructure:"model"`

	// HTTP surface
	Server server.Config `mapstructure:"server"`

	// Operational metrics
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`
}

// BatchConfig contains dataset build settings
type BatchConfig struct {
	InputDir     string   `mapstructure:"input_dir"`
	Metadata     string   `mapstructure:"metadata"`
	MetadataBase string   `mapstructure:"metadata_base"` // empty keeps paths relative to the working directory
	Out          string   `mapstructure:"out"`
	Format       string   `mapstructure:"format"`
	Workers      int      `mapstructure:"workers"`
	LabelPolicy  string   `mapstructure:"label_policy"`
	Extensions   []string `mapstructure:"extensions"`
}

// ModelConfig points at a trained model bundle
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the operational log file and metrics sink
type MetricsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	LogFile string   `mapstructure:"log_file"`
	Tags    []string `mapstructure:"tags"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	File        string `mapstructure:"file"`
	Precision   int    `mapstructure:"precision"`
	TitleLabels bool   `mapstructure:"title_labels"`
	Timestamps  bool   `mapstructure:"timestamps"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes the configuration held by v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if config.Batch.Workers <= 0 {
		config.Batch.Workers = runtime.NumCPU()
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if err := config.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if err := config.Features.Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}

	if config.Audio.SampleRate != config.Features.SampleRate {
		return fmt.Errorf("audio sample rate (%d) must match feature sample rate (%d)",
			config.Audio.SampleRate, config.Features.SampleRate)
	}

	if _, err := corpus.NewResolver(config.Batch.LabelPolicy); err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	switch strings.ToLower(config.Batch.Format) {
	case dataset.FormatCSV, dataset.FormatSQLite, "":
	default:
		return fmt.Errorf("batch: unsupported output format: %s", config.Batch.Format)
	}

	if config.Batch.Workers < 0 {
		return fmt.Errorf("batch: workers cannot be negative")
	}

	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if config.Output.Precision < 0 {
		return fmt.Errorf("output precision cannot be negative")
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("unsupported log level: %s", config.LogLevel)
	}

	return nil
}
