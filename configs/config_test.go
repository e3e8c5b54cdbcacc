package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-emotion/pkg/audio"
)

func TestDefaultsValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Audio.Offset)
	assert.Equal(t, 3*time.Second, cfg.Audio.Duration)
	assert.Equal(t, audio.BackendAuto, cfg.Audio.Backend)
	assert.Equal(t, 171, cfg.Features.Dimension())
	assert.Equal(t, "raw", cfg.Batch.LabelPolicy)
	assert.Positive(t, cfg.Batch.Workers)
	assert.Equal(t, []string{".wav"}, cfg.Server.AllowedExtensions)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech-emotion.yaml")
	content := `
log_level: debug
audio:
  backend: native
  offset: 250ms
batch:
  format: sqlite
  workers: 2
  label_policy: mapped
server:
  addr: ":9090"
  allowed_extensions: [".wav", ".mp3"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, audio.BackendNative, cfg.Audio.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Audio.Offset)
	assert.Equal(t, 3*time.Second, cfg.Audio.Duration)
	assert.Equal(t, "sqlite", cfg.Batch.Format)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{".wav", ".mp3"}, cfg.Server.AllowedExtensions)
}

func TestValidateConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"sample rate mismatch", func(c *Config) { c.Audio.SampleRate = 16000 }},
		{"bad backend", func(c *Config) { c.Audio.Backend = "gstreamer" }},
		{"bad policy", func(c *Config) { c.Batch.LabelPolicy = "fuzzy" }},
		{"bad format", func(c *Config) { c.Batch.Format = "parquet" }},
		{"negative workers", func(c *Config) { c.Batch.Workers = -1 }},
		{"bad n_fft", func(c *Config) { c.Features.NFFT = 511 }},
		{"no upload types", func(c *Config) { c.Server.AllowedExtensions = nil }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestPresets(t *testing.T) {
	fast := FastAudioConfig()
	assert.Equal(t, audio.BackendNative, fast.Backend)
	assert.NoError(t, fast.Validate())

	hifi := HighFidelityAudioConfig()
	assert.Equal(t, audio.BackendFFmpeg, hifi.Backend)

	prod := ProductionServerConfig()
	assert.Less(t, prod.MaxUploadBytes, GetDefaultServerConfig().MaxUploadBytes)
	assert.Contains(t, DevelopmentServerConfig().AllowedExtensions, ".mp3")

	assert.False(t, GetDefaultOutputConfigForFormat("csv").Timestamps)
	assert.Equal(t, 2, GetDefaultOutputConfigForFormat("table").Precision)
}

func TestGetConfigForProfile(t *testing.T) {
	for _, profile := range Profiles {
		t.Run(profile, func(t *testing.T) {
			cfg, err := GetConfigForProfile(profile, "")
			require.NoError(t, err)
			assert.NoError(t, ValidateConfig(cfg))
		})
	}

	fast, err := GetConfigForProfile("FAST", "")
	require.NoError(t, err)
	assert.Equal(t, "linear", fast.Audio.Resampler)

	hifi, err := GetConfigForProfile(ProfileHighFidelity, "")
	require.NoError(t, err)
	assert.Equal(t, audio.BackendFFmpeg, hifi.Audio.Backend)

	dev, err := GetConfigForProfile(ProfileDevelopment, "json")
	require.NoError(t, err)
	assert.Equal(t, "debug", dev.LogLevel)
	assert.Equal(t, "json", dev.OutputFormat)
	assert.Equal(t, 6, dev.Output.Precision)
	assert.Contains(t, dev.Server.AllowedExtensions, ".flac")

	_, err = GetConfigForProfile("turbo", "")
	assert.Error(t, err)
}
