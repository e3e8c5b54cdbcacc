// Package features turns a waveform into a fixed-length spectral feature
// vector: zero crossing rate, chroma, MFCC, RMS, mel spectrogram, spectral
// contrast, bandwidth and rolloff, each averaged over time.
package features

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Extractor computes feature vectors. It holds no per-call state and may be
// shared between goroutines.
type Extractor struct {
	config  *Config
	melBank *mat.Dense
	dct     *mat.Dense
	logger  logging.Logger
}

// NewExtractor creates an extractor
func NewExtractor(cfg *Config, logger logging.Logger) (*Extractor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	melBank, err := MelFilterBank(cfg.SampleRate, cfg.NFFT, cfg.NMels, 0, float64(cfg.SampleRate)/2)
	if err != nil {
		return nil, fmt.Errorf("mel filterbank: %w", err)
	}

	return &Extractor{
		config:  cfg,
		melBank: melBank,
		dct:     DCTMatrix(cfg.NMFCC, cfg.NMels),
		logger:  logger,
	}, nil
}

// Config returns the extractor configuration
func (e *Extractor) Config() *Config {
	return e.config
}

// Dimension returns the length of every vector this extractor produces
func (e *Extractor) Dimension() int {
	return e.config.Dimension()
}

// Extract computes the feature vector of w. Either the full vector is
// returned or an error; a partial vector is never produced.
func (e *Extractor) Extract(w *audio.Waveform) (Vector, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, ErrEmptyInput
	}
	if w.SampleRate != 0 && w.SampleRate != e.config.SampleRate {
		return nil, fmt.Errorf("waveform sample rate %d does not match extractor rate %d",
			w.SampleRate, e.config.SampleRate)
	}
	return e.ExtractSamples(w.Samples)
}

// ExtractSamples computes the feature vector of raw samples at the
// configured sample rate.
func (e *Extractor) ExtractSamples(y []float64) (Vector, error) {
	cfg := e.config

	if len(y) == 0 {
		return nil, ErrEmptyInput
	}
	if len(y) < cfg.NFFT {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrWaveformTooShort, len(y), cfg.NFFT)
	}
	for _, s := range y {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, ErrNonFiniteInput
		}
	}

	// one centred magnitude spectrogram serves every spectral block
	S, err := STFT(y, cfg.NFFT, cfg.HopLength)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	vec := make(Vector, 0, cfg.Dimension())

	vec = append(vec, stat.Mean(ZeroCrossingRate(y, cfg.NFFT, cfg.HopLength), nil))

	chroma := ChromaSTFT(S, cfg.SampleRate, cfg.NChroma, cfg.TuningResolution)
	vec = append(vec, rowMeans(chroma)...)

	// the power mel spectrogram feeds both the MFCC and mel blocks
	var mel, mfcc mat.Dense
	mel.Mul(e.melBank, PowerSpectrogram(S))
	mfcc.Mul(e.dct, PowerToDB(&mel, cfg.TopDB))
	vec = append(vec, rowMeans(&mfcc)...)

	vec = append(vec, stat.Mean(RMS(y, cfg.NFFT, cfg.HopLength), nil))

	vec = append(vec, rowMeans(&mel)...)

	contrast, err := SpectralContrast(S, cfg.SampleRate, cfg.ContrastFMin, cfg.ContrastBands,
		cfg.ContrastQuantile, cfg.TopDB)
	if err != nil {
		return nil, fmt.Errorf("spectral contrast: %w", err)
	}
	vec = append(vec, rowMeans(contrast)...)

	vec = append(vec, stat.Mean(SpectralBandwidth(S, cfg.SampleRate), nil))
	vec = append(vec, stat.Mean(SpectralRolloff(S, cfg.SampleRate, cfg.RolloffPercent), nil))

	if err := vec.CheckDimension(cfg.Dimension()); err != nil {
		return nil, err
	}

	e.logger.Debug("Extracted feature vector", logging.Fields{
		"samples":   len(y),
		"dimension": len(vec),
	})
	return vec, nil
}

// rowMeans averages each row of m over time
func rowMeans(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range r {
		mat.Row(row, i, m)
		out[i] = stat.Mean(row, nil)
	}
	return out
}
