package audio

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/sonido-sonar/transcode"
)

// FFmpegDecoder decodes any container ffmpeg understands
type FFmpegDecoder struct {
	config *LoaderConfig
	logger logging.Logger
}

// NewFFmpegDecoder creates an ffmpeg-backed decoder
func NewFFmpegDecoder(cfg *LoaderConfig, logger logging.Logger) *FFmpegDecoder {
	if cfg == nil {
		cfg = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FFmpegDecoder{
		config: cfg,
		logger: logger,
	}
}

// decoderConfig disables loudness normalisation so that level-dependent
// features (RMS, mel energy) see the file as recorded.
func (d *FFmpegDecoder) decoderConfig(sampleRate int) *transcode.DecoderConfig {
	cfg := transcode.DefaultDecoderConfig()
	cfg.TargetSampleRate = sampleRate
	cfg.TargetChannels = 1
	cfg.EnableNormalization = false
	cfg.ResampleQuality = "high"
	if d.config.Offset+d.config.Duration > 0 {
		// only the head of the file is ever analysed
		cfg.MaxDuration = d.config.Offset + d.config.Duration + time.Second
	}
	if d.config.FFmpegPath != "" {
		cfg.FFmpegPath = d.config.FFmpegPath
	}
	if d.config.FFprobePath != "" {
		cfg.FFprobePath = d.config.FFprobePath
	}
	if d.config.Timeout > 0 {
		cfg.Timeout = d.config.Timeout
	}
	return cfg
}

// Decode runs ffmpeg on path and returns mono samples at sampleRate
func (d *FFmpegDecoder) Decode(path string, sampleRate int) (*Waveform, error) {
	decoder := transcode.NewDecoder(d.decoderConfig(sampleRate))
	defer decoder.Close()

	result, err := decoder.DecodeFile(path)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "ffmpeg decode failed", err)
	}

	var data *transcode.AudioData
	switch v := any(result).(type) {
	case *transcode.AudioData:
		data = v
	case transcode.AudioData:
		data = &v
	default:
		return nil, NewDecodeError(path, ErrCodeDecoding,
			fmt.Sprintf("unexpected decoder result %T", result), nil)
	}

	if data == nil || len(data.PCM) == 0 {
		return nil, NewDecodeError(path, ErrCodeEmpty, "ffmpeg produced no samples", nil)
	}

	samples := Downmix(data.PCM, data.Channels)
	if data.SampleRate != 0 && data.SampleRate != sampleRate {
		samples = Resample(samples, data.SampleRate, sampleRate, d.config.Resampler)
	}

	d.logger.Debug("Decoded audio with ffmpeg", logging.Fields{
		"path":        path,
		"sample_rate": sampleRate,
		"samples":     len(samples),
	})

	return &Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
		Source:     path,
	}, nil
}
