package features

import (
	"math"

	"github.com/RyanBlaney/sonido-sonar/algorithms/temporal"
)

// zcrThreshold treats samples this close to zero as exactly zero
const zcrThreshold = 1e-10

// ZeroCrossingRate returns, per centred frame, the fraction of samples whose
// sign differs from the previous sample. The signal is edge padded by half a
// frame at both ends. Zero counts as positive.
func ZeroCrossingRate(samples []float64, frameLength, hop int) []float64 {
	if len(samples) == 0 || frameLength <= 0 || hop <= 0 {
		return nil
	}

	padded := centerPad(samples, frameLength/2, PadEdge)
	negative := make([]bool, len(padded))
	for i, v := range padded {
		if math.Abs(v) <= zcrThreshold {
			v = 0
		}
		negative[i] = math.Signbit(v)
	}

	frames := frameCount(len(padded), frameLength, hop)
	out := make([]float64, frames)
	for t := range frames {
		start := t * hop
		crossings := 0
		for i := start + 1; i < start+frameLength; i++ {
			if negative[i] != negative[i-1] {
				crossings++
			}
		}
		out[t] = float64(crossings) / float64(frameLength)
	}
	return out
}

// RMS returns the root-mean-square energy of each centred frame. The signal
// is zero padded by half a frame at both ends.
func RMS(samples []float64, frameLength, hop int) []float64 {
	if len(samples) == 0 || frameLength <= 0 || hop <= 0 {
		return nil
	}

	padded := centerPad(samples, frameLength/2, PadConstant)
	return temporal.NewEnergy(frameLength, hop, 0).ComputeShortTimeEnergy(padded)
}
