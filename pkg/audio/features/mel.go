package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts a frequency to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz converts a Slaney mel value back to Hz
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFrequencies returns n frequencies evenly spaced on the mel scale
func MelFrequencies(n int, fmin, fmax float64) []float64 {
	lo, hi := HzToMel(fmin), HzToMel(fmax)
	out := make([]float64, n)
	for i := range out {
		m := lo
		if n > 1 {
			m = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = MelToHz(m)
	}
	return out
}

// MelFilterBank builds an nMels x (nfft/2+1) matrix of triangular filters
// with Slaney area normalisation.
func MelFilterBank(sampleRate, nfft, nMels int, fmin, fmax float64) (*mat.Dense, error) {
	if nMels <= 0 {
		return nil, fmt.Errorf("n_mels must be positive")
	}
	if fmax <= fmin {
		return nil, fmt.Errorf("mel fmax (%.1f) must exceed fmin (%.1f)", fmax, fmin)
	}

	fftFreqs := FFTFrequencies(sampleRate, nfft)
	melF := MelFrequencies(nMels+2, fmin, fmax)

	fdiff := make([]float64, len(melF)-1)
	for i := range fdiff {
		fdiff[i] = melF[i+1] - melF[i]
	}

	weights := mat.NewDense(nMels, len(fftFreqs), nil)
	for i := range nMels {
		enorm := 2.0 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / fdiff[i]
			upper := (melF[i+2] - f) / fdiff[i+1]
			w := math.Max(0, math.Min(lower, upper))
			weights.Set(i, k, w*enorm)
		}
	}
	return weights, nil
}

// MelSpectrogram projects the power spectrogram of samples onto the mel
// filterbank. The result is nMels x frames.
func MelSpectrogram(samples []float64, cfg *Config) (*mat.Dense, error) {
	magnitude, err := STFT(samples, cfg.NFFT, cfg.HopLength)
	if err != nil {
		return nil, err
	}
	return melFromMagnitude(magnitude, cfg)
}

func melFromMagnitude(magnitude *mat.Dense, cfg *Config) (*mat.Dense, error) {
	fb, err := MelFilterBank(cfg.SampleRate, cfg.NFFT, cfg.NMels, 0, float64(cfg.SampleRate)/2)
	if err != nil {
		return nil, err
	}

	var mel mat.Dense
	mel.Mul(fb, PowerSpectrogram(magnitude))
	return &mel, nil
}
