package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/speech-emotion/configs"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
)

// loadAndMergeConfig loads the viper configuration and applies the CLI
// overrides held by ctx
func loadAndMergeConfig(ctx *Context) (*configs.Config, error) {
	if ctx.Config != nil {
		return ctx.Config, configs.ValidateConfig(ctx.Config)
	}

	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	if err := mergeConfig(config, ctx); err != nil {
		return nil, err
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// mergeConfig applies the non-zero CLI values on top of config
func mergeConfig(config *configs.Config, ctx *Context) error {
	if ctx.OutputFormat != "" {
		config.OutputFormat = ctx.OutputFormat
	}
	if ctx.OutputFile != "" {
		config.Output.File = ctx.OutputFile
	}
	if ctx.LogLevel != "" {
		config.LogLevel = ctx.LogLevel
	}
	if ctx.Verbose {
		config.Verbose = true
	}

	if ctx.InputDir != "" {
		config.Batch.InputDir = ctx.InputDir
	}
	if ctx.Metadata != "" {
		config.Batch.Metadata = ctx.Metadata
	}
	if ctx.MetadataBase != "" {
		config.Batch.MetadataBase = ctx.MetadataBase
	}
	if ctx.Out != "" {
		config.Batch.Out = ctx.Out
	}
	if ctx.Format != "" {
		config.Batch.Format = ctx.Format
	}
	if ctx.Workers > 0 {
		config.Batch.Workers = ctx.Workers
	}
	if ctx.LabelPolicy != "" {
		config.Batch.LabelPolicy = ctx.LabelPolicy
	}

	if ctx.ModelPath != "" {
		config.Model.Path = ctx.ModelPath
	}
	if ctx.Addr != "" {
		config.Server.Addr = ctx.Addr
	}
	if ctx.Backend != "" {
		backend, err := audio.ParseBackend(ctx.Backend)
		if err != nil {
			return err
		}
		config.Audio.Backend = backend
	}
	return nil
}

// GenerateExampleConfig writes the configuration of a profile as YAML.
// format tunes the output section and may be empty.
func GenerateExampleConfig(outputFile, profile, format string) error {
	cfg, err := configs.GetConfigForProfile(profile, format)
	if err != nil {
		return err
	}
	if err := configs.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("profile %s is invalid: %w", profile, err)
	}

	v := viper.New()
	configs.SetDefaultsFrom(v, cfg)

	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateConfigFile loads a configuration file on top of the defaults and
// validates the result
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", configFile)
	}

	v := viper.New()
	configs.SetDefaults(v)
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := configs.LoadConfigFrom(v)
	if err != nil {
		return nil, err
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}
