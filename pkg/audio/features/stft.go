package features

import (
	"fmt"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/mat"
)

// PadMode selects how a signal is extended before centred framing
type PadMode int

const (
	PadConstant PadMode = iota
	PadEdge
)

// centerPad extends samples by n on both sides
func centerPad(samples []float64, n int, mode PadMode) []float64 {
	out := make([]float64, len(samples)+2*n)
	copy(out[n:], samples)
	if mode == PadEdge && len(samples) > 0 {
		first, last := samples[0], samples[len(samples)-1]
		for i := range n {
			out[i] = first
			out[len(out)-1-i] = last
		}
	}
	return out
}

// frameCount returns the number of full frames in a padded signal
func frameCount(n, frameLength, hop int) int {
	if n < frameLength {
		return 0
	}
	return 1 + (n-frameLength)/hop
}

// STFT returns the centred magnitude spectrogram of samples as a
// (nfft/2+1) x frames matrix. Frames are zero padded by nfft/2 at both ends
// and weighted with a periodic Hann window.
func STFT(samples []float64, nfft, hop int) (*mat.Dense, error) {
	if nfft <= 0 || hop <= 0 {
		return nil, fmt.Errorf("invalid stft parameters n_fft=%d hop=%d", nfft, hop)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	padded := centerPad(samples, nfft/2, PadConstant)
	frames := frameCount(len(padded), nfft, hop)
	bins := nfft/2 + 1

	window := windowing.NewHann(nfft, false)
	out := mat.NewDense(bins, frames, nil)
	frame := make([]float64, nfft)

	for t := range frames {
		copy(frame, padded[t*hop:t*hop+nfft])
		if err := window.ApplyInPlace(frame); err != nil {
			return nil, fmt.Errorf("stft frame %d: %w", t, err)
		}
		spectrum := fft.FFTReal(frame)
		for k := range bins {
			out.Set(k, t, cmplx.Abs(spectrum[k]))
		}
	}

	return out, nil
}

// PowerSpectrogram squares a magnitude spectrogram element-wise
func PowerSpectrogram(magnitude *mat.Dense) *mat.Dense {
	var power mat.Dense
	power.MulElem(magnitude, magnitude)
	return &power
}

// FFTFrequencies returns the centre frequency of each STFT bin
func FFTFrequencies(sampleRate, nfft int) []float64 {
	bins := nfft/2 + 1
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}
	return freqs
}

// nfftFromBins recovers the transform size from a spectrogram height
func nfftFromBins(bins int) int {
	return 2 * (bins - 1)
}
