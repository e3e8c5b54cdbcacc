// Package audio turns audio files into fixed-window mono waveforms.
package audio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/logging"
)

// Decoder converts a file into mono samples at the requested rate
type Decoder interface {
	Decode(path string, sampleRate int) (*Waveform, error)
}

// AutoDecoder tries each decoder in turn and returns the first success
type AutoDecoder struct {
	decoders []Decoder
	logger   logging.Logger
}

// NewAutoDecoder builds a fallback chain
func NewAutoDecoder(logger logging.Logger, decoders ...Decoder) *AutoDecoder {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &AutoDecoder{decoders: decoders, logger: logger}
}

// Decode implements Decoder
func (a *AutoDecoder) Decode(path string, sampleRate int) (*Waveform, error) {
	var errs []error
	for _, d := range a.decoders {
		w, err := d.Decode(path, sampleRate)
		if err == nil {
			return w, nil
		}
		var de *DecodeError
		if errors.As(err, &de) && de.Code == ErrCodeOpen {
			// no other decoder will be able to open it either
			return nil, err
		}
		a.logger.Debug("Decoder failed, trying next", logging.Fields{
			"path":    path,
			"decoder": fmt.Sprintf("%T", d),
			"error":   err.Error(),
		})
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, NewDecodeError(path, ErrCodeUnsupported, "no decoders configured", nil)
	}
	return nil, errors.Join(errs...)
}

// Loader reads the analysis window of an audio file
type Loader struct {
	config  *LoaderConfig
	decoder Decoder
	logger  logging.Logger
}

// NewLoader creates a loader with the decoder chain selected by cfg.Backend
func NewLoader(cfg *LoaderConfig, logger logging.Logger) *Loader {
	if cfg == nil {
		cfg = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	var decoder Decoder
	backend, _ := ParseBackend(string(cfg.Backend))
	switch backend {
	case BackendNative:
		decoder = NewNativeDecoder(cfg.Resampler, logger)
	case BackendFFmpeg:
		decoder = NewFFmpegDecoder(cfg, logger)
	default:
		decoder = NewAutoDecoder(logger,
			NewNativeDecoder(cfg.Resampler, logger),
			NewFFmpegDecoder(cfg, logger),
		)
	}

	return NewLoaderWithDecoder(cfg, decoder, logger)
}

// NewLoaderWithDecoder creates a loader around an explicit decoder
func NewLoaderWithDecoder(cfg *LoaderConfig, decoder Decoder, logger logging.Logger) *Loader {
	if cfg == nil {
		cfg = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Loader{
		config:  cfg,
		decoder: decoder,
		logger:  logger,
	}
}

// Config returns the loader configuration
func (l *Loader) Config() *LoaderConfig {
	return l.config
}

// Load decodes path and returns at most Duration of audio starting at
// Offset. Short files yield a short waveform; nothing is padded.
func (l *Loader) Load(path string) (*Waveform, error) {
	w, err := l.decoder.Decode(path, l.config.SampleRate)
	if err != nil {
		return nil, err
	}

	w.Samples = Window(w.Samples, samples(l.config.Offset, l.config.SampleRate),
		samples(l.config.Duration, l.config.SampleRate))
	if len(w.Samples) == 0 {
		return nil, NewDecodeError(path, ErrCodeEmpty, "no audio after offset", ErrEmptyWaveform)
	}

	l.logger.Debug("Loaded waveform", logging.Fields{
		"path":     path,
		"samples":  len(w.Samples),
		"duration": w.Duration().String(),
	})
	return w, nil
}

// LoadBytes stores data in a temporary file with the given extension and
// loads it. An empty extension is detected from the content. The file is
// removed before returning.
func (l *Loader) LoadBytes(data []byte, ext string) (*Waveform, error) {
	if ext == "" {
		ext = DetectFromContent(data).Extension()
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	tmp, err := os.CreateTemp("", "speech-emotion-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	w, err := l.Load(tmp.Name())
	if err != nil {
		return nil, err
	}
	w.Source = ""
	return w, nil
}

// Window returns samples[offset:offset+length] clamped to the input
func Window(samples []float64, offset, length int) []float64 {
	if offset >= len(samples) {
		return nil
	}
	end := len(samples)
	if length > 0 && offset+length < end {
		end = offset + length
	}
	out := make([]float64, end-offset)
	copy(out, samples[offset:end])
	return out
}
