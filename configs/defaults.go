package configs

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-emotion/internal/server"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

// Configuration profiles accepted by GetConfigForProfile
const (
	ProfileDefault      = "default"
	ProfileFast         = "fast"
	ProfileHighFidelity = "high-fidelity"
	ProfileProduction   = "production"
	ProfileDevelopment  = "development"
)

// Profiles lists every configuration profile
var Profiles = []string{ProfileDefault, ProfileFast, ProfileHighFidelity, ProfileProduction, ProfileDevelopment}

// SetDefaults sets default configuration values for all components
func SetDefaults(v *viper.Viper) {
	SetDefaultsFrom(v, GetDefaultConfig())
}

// SetDefaultsFrom registers every value of cfg as a viper default
func SetDefaultsFrom(v *viper.Viper, cfg *Config) {

	// Application defaults
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("output_format", cfg.OutputFormat)

	// Audio defaults
	v.SetDefault("audio.sample_rate", cfg.Audio.SampleRate)
	v.SetDefault("audio.offset", cfg.Audio.Offset)
	v.SetDefault("audio.duration", cfg.Audio.Duration)
	v.SetDefault("audio.backend", string(cfg.Audio.Backend))
	v.SetDefault("audio.ffmpeg_path", cfg.Audio.FFmpegPath)
	v.SetDefault("audio.ffprobe_path", cfg.Audio.FFprobePath)
	v.SetDefault("audio.timeout", cfg.Audio.Timeout)
	v.SetDefault("audio.resampler", cfg.Audio.Resampler)

	// Feature defaults
	v.SetDefault("features.sample_rate", cfg.Features.SampleRate)
	v.SetDefault("features.n_fft", cfg.Features.NFFT)
	v.SetDefault("features.hop_length", cfg.Features.HopLength)
	v.SetDefault("features.n_mfcc", cfg.Features.NMFCC)
	v.SetDefault("features.n_mels", cfg.Features.NMels)
	v.SetDefault("features.n_chroma", cfg.Features.NChroma)
	v.SetDefault("features.contrast_bands", cfg.Features.ContrastBands)
	v.SetDefault("features.contrast_fmin", cfg.Features.ContrastFMin)
	v.SetDefault("features.contrast_quantile", cfg.Features.ContrastQuantile)
	v.SetDefault("features.rolloff_percent", cfg.Features.RolloffPercent)
	v.SetDefault("features.top_db", cfg.Features.TopDB)
	v.SetDefault("features.tuning_resolution", cfg.Features.TuningResolution)

	// Batch defaults
	v.SetDefault("batch.input_dir", cfg.Batch.InputDir)
	v.SetDefault("batch.metadata", cfg.Batch.Metadata)
	v.SetDefault("batch.metadata_base", cfg.Batch.MetadataBase)
	v.SetDefault("batch.out", cfg.Batch.Out)
	v.SetDefault("batch.format", cfg.Batch.Format)
	v.SetDefault("batch.workers", cfg.Batch.Workers)
	v.SetDefault("batch.label_policy", cfg.Batch.LabelPolicy)
	v.SetDefault("batch.extensions", cfg.Batch.Extensions)

	// Model defaults
	v.SetDefault("model.path", cfg.Model.Path)

	// Server defaults
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.max_upload_bytes", cfg.Server.MaxUploadBytes)
	v.SetDefault("server.allowed_extensions", cfg.Server.AllowedExtensions)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	// Metrics defaults
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.log_file", cfg.Metrics.LogFile)
	v.SetDefault("metrics.tags", cfg.Metrics.Tags)

	// Output defaults
	v.SetDefault("output.file", cfg.Output.File)
	v.SetDefault("output.precision", cfg.Output.Precision)
	v.SetDefault("output.title_labels", cfg.Output.TitleLabels)
	v.SetDefault("output.timestamps", cfg.Output.Timestamps)
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		// Application settings defaults
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",

		Audio:    GetDefaultAudioConfig(),
		Features: GetDefaultFeatureConfig(),
		Batch:    GetDefaultBatchConfig(),
		Model:    ModelConfig{Path: "model/bundle.yaml"},
		Server:   GetDefaultServerConfig(),
		Metrics:  GetDefaultMetricsConfig(),
		Output:   GetDefaultOutputConfig(),
	}
}

// GetDefaultAudioConfig returns the clip window used for training and
// inference
func GetDefaultAudioConfig() audio.LoaderConfig {
	return *audio.DefaultLoaderConfig()
}

// GetDefaultFeatureConfig returns the 171-dimension feature layout
func GetDefaultFeatureConfig() features.Config {
	return *features.DefaultConfig()
}

// GetDefaultBatchConfig returns default dataset build settings
func GetDefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Out:         "features.csv",
		Format:      "csv",
		Workers:     runtime.NumCPU(),
		LabelPolicy: "raw",
		Extensions:  []string{".wav"},
	}
}

// GetDefaultServerConfig returns default HTTP settings
func GetDefaultServerConfig() server.Config {
	return *server.DefaultConfig()
}

// GetDefaultMetricsConfig returns default metrics settings
func GetDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		LogFile: "/tmp/speech-emotion.log",
		Tags:    []string{"service:speech-emotion"},
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision:   2,
		TitleLabels: true,
		Timestamps:  true,
	}
}

// GetConfigForProfile returns the defaults adjusted for a profile. When
// format is set the output section is tuned for that format.
func GetConfigForProfile(profile, format string) (*Config, error) {
	cfg := GetDefaultConfig()

	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", ProfileDefault:
	case ProfileFast:
		cfg.Audio = FastAudioConfig()
	case ProfileHighFidelity:
		cfg.Audio = HighFidelityAudioConfig()
	case ProfileProduction:
		cfg.Server = ProductionServerConfig()
	case ProfileDevelopment:
		cfg.LogLevel = "debug"
		cfg.Server = DevelopmentServerConfig()
	default:
		return nil, fmt.Errorf("unknown configuration profile %q (available: %s)",
			profile, strings.Join(Profiles, ", "))
	}

	if format != "" {
		cfg.OutputFormat = strings.ToLower(format)
		cfg.Output = GetDefaultOutputConfigForFormat(cfg.OutputFormat)
	}
	return cfg, nil
}

// FastAudioConfig trades resampling quality for speed with the in-process
// decoder
func FastAudioConfig() audio.LoaderConfig {
	cfg := GetDefaultAudioConfig()
	cfg.Backend = audio.BackendNative
	cfg.Resampler = "linear"
	return cfg
}

// HighFidelityAudioConfig decodes everything through ffmpeg
func HighFidelityAudioConfig() audio.LoaderConfig {
	cfg := GetDefaultAudioConfig()
	cfg.Backend = audio.BackendFFmpeg
	cfg.Timeout = 2 * time.Minute
	return cfg
}

// ProductionServerConfig returns stricter limits for a public deployment
func ProductionServerConfig() server.Config {
	cfg := GetDefaultServerConfig()
	cfg.MaxUploadBytes = 10 << 20
	cfg.ReadTimeout = 15 * time.Second
	cfg.WriteTimeout = 30 * time.Second
	return cfg
}

// DevelopmentServerConfig accepts any format the ffmpeg backend can decode
func DevelopmentServerConfig() server.Config {
	cfg := GetDefaultServerConfig()
	cfg.Addr = "127.0.0.1:8080"
	cfg.AllowedExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}
	return cfg
}

// GetDefaultOutputConfigForFormat returns output config optimized for specific format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	base := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		base.Precision = 6
		base.TitleLabels = false
	case "csv":
		base.Precision = 6
		base.TitleLabels = false
		base.Timestamps = false
	case "table":
		base.Precision = 2
	default:
		// Keep defaults
	}

	return base
}
