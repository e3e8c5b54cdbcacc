package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// wavFormatPCM is the RIFF format tag for integer PCM
const wavFormatPCM = 1

// NativeDecoder decodes WAV and MP3 files in-process
type NativeDecoder struct {
	resampler string
	logger    logging.Logger
}

// NewNativeDecoder creates a decoder that needs no external tools
func NewNativeDecoder(resampler string, logger logging.Logger) *NativeDecoder {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &NativeDecoder{
		resampler: resampler,
		logger:    logger,
	}
}

// Decode reads path and returns mono samples at sampleRate
func (d *NativeDecoder) Decode(path string, sampleRate int) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeOpen, "failed to open audio file", err)
	}
	defer f.Close()

	var (
		interleaved []float64
		channels    int
		rate        int
	)

	head, err := sniff(f)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeOpen, "failed to read audio file", err)
	}

	switch format := DetectFormat(path, head); format {
	case FormatWAV:
		interleaved, channels, rate, err = decodeWAV(path, f)
	case FormatMP3:
		interleaved, channels, rate, err = decodeMP3(path, f)
	default:
		return nil, NewDecodeError(path, ErrCodeUnsupported,
			fmt.Sprintf("no native decoder for %s (%q)", format, filepath.Ext(path)), nil)
	}
	if err != nil {
		return nil, err
	}

	mono := Downmix(interleaved, channels)
	if rate != sampleRate {
		d.logger.Debug("Resampling decoded audio", logging.Fields{
			"path":        path,
			"source_rate": rate,
			"target_rate": sampleRate,
			"resampler":   d.resampler,
		})
		mono = Resample(mono, rate, sampleRate, d.resampler)
	}

	return &Waveform{
		Samples:    mono,
		SampleRate: sampleRate,
		Source:     path,
	}, nil
}

func decodeWAV(path string, r io.ReadSeeker) ([]float64, int, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, 0, NewDecodeError(path, ErrCodeDecoding, "invalid wav file", nil)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, 0, 0, NewDecodeError(path, ErrCodeUnsupported,
			fmt.Sprintf("wav audio format %d is not integer PCM", decoder.WavAudioFormat), nil)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, NewDecodeError(path, ErrCodeDecoding, "failed to read wav samples", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, 0, NewDecodeError(path, ErrCodeEmpty, "wav file has no samples", nil)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}

	out := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		// 8 bit PCM is unsigned
		for i, v := range buf.Data {
			out[i] = float64(v-128) / 128.0
		}
	} else {
		scale := float64(int64(1) << uint(bitDepth-1))
		for i, v := range buf.Data {
			out[i] = float64(v) / scale
		}
	}

	return out, buf.Format.NumChannels, buf.Format.SampleRate, nil
}

// go-mp3 always produces 16 bit little-endian stereo
func decodeMP3(path string, r io.Reader) ([]float64, int, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, NewDecodeError(path, ErrCodeDecoding, "failed to open mp3 stream", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, NewDecodeError(path, ErrCodeDecoding, "failed to read mp3 frames", err)
	}
	if len(raw) < 4 {
		return nil, 0, 0, NewDecodeError(path, ErrCodeEmpty, "mp3 file has no samples", nil)
	}

	out := make([]float64, len(raw)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
	}

	return out, 2, decoder.SampleRate(), nil
}
