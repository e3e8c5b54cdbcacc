package features

import (
	"github.com/RyanBlaney/sonido-sonar/algorithms/spectral"
	"gonum.org/v1/gonum/mat"
)

// SpectralCentroid returns the magnitude-weighted mean frequency of each
// frame. Silent frames have a centroid of 0.
func SpectralCentroid(S *mat.Dense, sampleRate int) []float64 {
	bins, frames := S.Dims()
	centroid := spectral.NewSpectralCentroid(sampleRate)

	out := make([]float64, frames)
	col := make([]float64, bins)
	for t := range frames {
		mat.Col(col, t, S)
		if columnSum(col) < tiny {
			continue
		}
		out[t] = centroid.Compute(col)
	}
	return out
}

// SpectralBandwidth returns the second-order spread of each frame around its
// centroid, using the L1-normalised spectrum as weights.
func SpectralBandwidth(S *mat.Dense, sampleRate int) []float64 {
	bins, frames := S.Dims()
	centroids := SpectralCentroid(S, sampleRate)
	bandwidth := spectral.NewSpectralBandwidth(sampleRate)

	out := make([]float64, frames)
	col := make([]float64, bins)
	for t := range frames {
		mat.Col(col, t, S)
		if columnSum(col) < tiny {
			continue
		}
		out[t] = bandwidth.Compute(col, centroids[t])
	}
	return out
}

// SpectralRolloff returns, per frame, the lowest bin frequency below which
// percent of the total magnitude lies.
func SpectralRolloff(S *mat.Dense, sampleRate int, percent float64) []float64 {
	bins, frames := S.Dims()
	freqs := FFTFrequencies(sampleRate, nfftFromBins(bins))

	out := make([]float64, frames)
	col := make([]float64, bins)
	for t := range frames {
		mat.Col(col, t, S)
		threshold := percent * columnSum(col)
		var cum float64
		for k, v := range col {
			cum += v
			if cum >= threshold {
				out[t] = freqs[k]
				break
			}
		}
	}
	return out
}

func columnSum(col []float64) float64 {
	var sum float64
	for _, v := range col {
		sum += v
	}
	return sum
}
