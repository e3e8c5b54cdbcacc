package audio

import (
	"fmt"
	"strings"
	"time"
)

// Backend selects how source files are decoded
type Backend string

const (
	// BackendAuto decodes in-process and falls back to ffmpeg
	BackendAuto   Backend = "auto"
	BackendNative Backend = "native"
	BackendFFmpeg Backend = "ffmpeg"
)

// Analysis window applied to every clip before feature extraction
const (
	DefaultSampleRate = 22050
	DefaultOffset     = 500 * time.Millisecond
	DefaultDuration   = 3 * time.Second
)

type LoaderConfig struct {
	SampleRate  int           `json:"sample_rate" mapstructure:"sample_rate"`
	Offset      time.Duration `json:"offset" mapstructure:"offset"`
	Duration    time.Duration `json:"duration" mapstructure:"duration"`
	Backend     Backend       `json:"backend" mapstructure:"backend"`
	FFmpegPath  string        `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path" mapstructure:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	// Resampler is the interpolation used by the native backend:
	// "linear", "cubic" or "lanczos"
	Resampler string `json:"resampler" mapstructure:"resampler"`
}

// DefaultLoaderConfig returns the clip window used for both training and
// inference.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		SampleRate:  DefaultSampleRate,
		Offset:      DefaultOffset,
		Duration:    DefaultDuration,
		Backend:     BackendAuto,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
		Resampler:   "lanczos",
	}
}

// Validate checks the loader configuration
func (c *LoaderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	return nil
}

// ParseBackend normalises a backend name
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case BackendAuto, "":
		return BackendAuto, nil
	case BackendNative:
		return BackendNative, nil
	case BackendFFmpeg:
		return BackendFFmpeg, nil
	default:
		return "", fmt.Errorf("unsupported decoder backend: %s", name)
	}
}

// samples converts a duration to a sample count at rate
func samples(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}
