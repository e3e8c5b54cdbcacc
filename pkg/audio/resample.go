package audio

import (
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/algorithms/common"
	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
	"github.com/mjibson/go-dsp/fft"
)

// Anti-aliasing filter design: stopband attenuation in dB and the width of
// the transition band as a fraction of the target Nyquist frequency.
const (
	antiAliasAttenuation = 80.0
	antiAliasTransition  = 0.1
)

// Downmix averages interleaved channels into a single channel
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// Resample converts samples from one rate to another by interpolation.
// When downsampling, content above the target Nyquist frequency is removed
// first so it cannot fold back into the audible band.
func Resample(samples []float64, fromRate, toRate int, method string) []float64 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	if toRate < fromRate {
		samples = LowPass(samples, 0.5*float64(toRate)/float64(fromRate))
	}
	return common.NewInterpolator(interpolation(method)).ResampleSignal(samples, fromRate, toRate)
}

// LowPass filters samples with a Kaiser-windowed sinc whose stopband starts
// at edge, in cycles per sample. The output has the input's length and is
// not delayed.
func LowPass(samples []float64, edge float64) []float64 {
	if len(samples) == 0 || edge >= 0.5 || edge <= 0 {
		return samples
	}

	taps := lowPassTaps(edge)
	size := 1
	for size < len(samples)+len(taps)-1 {
		size <<= 1
	}

	x := make([]complex128, size)
	h := make([]complex128, size)
	for i, v := range samples {
		x[i] = complex(v, 0)
	}
	for i, v := range taps {
		h[i] = complex(v, 0)
	}
	y := fft.Convolve(x, h)

	delay := (len(taps) - 1) / 2
	out := make([]float64, len(samples))
	for i := range out {
		out[i] = real(y[i+delay])
	}
	return out
}

// lowPassTaps designs an odd-length linear phase filter with unit DC gain
func lowPassTaps(edge float64) []float64 {
	width := antiAliasTransition * edge
	cutoff := edge - width/2

	n := int(math.Ceil((antiAliasAttenuation-7.95)/(14.36*width))) + 1
	if n%2 == 0 {
		n++
	}
	beta := 0.1102 * (antiAliasAttenuation - 8.7)
	window := windowing.NewKaiser(n, beta, true).GetCoefficients()

	mid := float64(n-1) / 2
	taps := make([]float64, n)
	var sum float64
	for i := range taps {
		t := float64(i) - mid
		v := 2 * cutoff
		if t != 0 {
			v = math.Sin(2*math.Pi*cutoff*t) / (math.Pi * t)
		}
		taps[i] = v * window[i]
		sum += taps[i]
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

func interpolation(method string) common.InterpolationType {
	switch strings.ToLower(method) {
	case "linear":
		return common.Linear
	case "cubic":
		return common.Cubic
	case "hermite":
		return common.Hermite
	default:
		return common.Lanczos
	}
}
