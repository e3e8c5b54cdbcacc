package features

import "fmt"

// Config controls every transform of the extractor. The defaults reproduce
// the feature space the emotion models are trained on; changing any of them
// produces vectors that are not comparable with an existing model.
type Config struct {
	SampleRate int `json:"sample_rate" mapstructure:"sample_rate"`
	NFFT       int `json:"n_fft" mapstructure:"n_fft"`
	HopLength  int `json:"hop_length" mapstructure:"hop_length"`

	NMFCC   int `json:"n_mfcc" mapstructure:"n_mfcc"`
	NMels   int `json:"n_mels" mapstructure:"n_mels"`
	NChroma int `json:"n_chroma" mapstructure:"n_chroma"`

	ContrastBands    int     `json:"contrast_bands" mapstructure:"contrast_bands"`
	ContrastFMin     float64 `json:"contrast_fmin" mapstructure:"contrast_fmin"`
	ContrastQuantile float64 `json:"contrast_quantile" mapstructure:"contrast_quantile"`

	RolloffPercent float64 `json:"rolloff_percent" mapstructure:"rolloff_percent"`
	TopDB          float64 `json:"top_db" mapstructure:"top_db"`

	// TuningResolution is the histogram resolution, in fractions of a
	// chroma bin, used when estimating the tuning offset
	TuningResolution float64 `json:"tuning_resolution" mapstructure:"tuning_resolution"`
}

// DefaultConfig returns the standard 171-dimension configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:       22050,
		NFFT:             512,
		HopLength:        256,
		NMFCC:            20,
		NMels:            128,
		NChroma:          12,
		ContrastBands:    6,
		ContrastFMin:     200,
		ContrastQuantile: 0.02,
		RolloffPercent:   0.85,
		TopDB:            80,
		TuningResolution: 0.01,
	}
}

// Dimension returns the length of the vectors produced with this config
func (c *Config) Dimension() int {
	dim := 0
	for _, seg := range Layout(c) {
		dim += seg.Width
	}
	return dim
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if c.NFFT < 4 || c.NFFT%2 != 0 {
		return fmt.Errorf("n_fft must be an even number >= 4, got %d", c.NFFT)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("hop length must be positive")
	}
	if c.NMFCC <= 0 || c.NMels <= 0 || c.NChroma <= 0 {
		return fmt.Errorf("n_mfcc, n_mels and n_chroma must be positive")
	}
	if c.NMFCC > c.NMels {
		return fmt.Errorf("n_mfcc (%d) cannot exceed n_mels (%d)", c.NMFCC, c.NMels)
	}
	if c.ContrastBands <= 0 || c.ContrastFMin <= 0 {
		return fmt.Errorf("contrast bands and fmin must be positive")
	}
	if c.ContrastQuantile <= 0 || c.ContrastQuantile >= 1 {
		return fmt.Errorf("contrast quantile must be in (0, 1)")
	}
	if c.RolloffPercent <= 0 || c.RolloffPercent >= 1 {
		return fmt.Errorf("rolloff percent must be in (0, 1)")
	}
	if c.TopDB < 0 {
		return fmt.Errorf("top_db cannot be negative")
	}
	if c.TuningResolution <= 0 || c.TuningResolution >= 1 {
		return fmt.Errorf("tuning resolution must be in (0, 1)")
	}
	return nil
}
