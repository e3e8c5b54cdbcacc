package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DCTMatrix returns the first n rows of the orthonormal type-II DCT of
// size size.
func DCTMatrix(n, size int) *mat.Dense {
	d := mat.NewDense(n, size, nil)
	for k := range n {
		scale := math.Sqrt(2.0 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		for i := range size {
			d.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size))))
		}
	}
	return d
}

// MFCC computes cfg.NMFCC cepstral coefficients per frame from the log
// mel spectrogram of samples.
func MFCC(samples []float64, cfg *Config) (*mat.Dense, error) {
	mel, err := MelSpectrogram(samples, cfg)
	if err != nil {
		return nil, fmt.Errorf("mel spectrogram: %w", err)
	}
	logMel := PowerToDB(mel, cfg.TopDB)
	nMels, _ := logMel.Dims()

	var out mat.Dense
	out.Mul(DCTMatrix(cfg.NMFCC, nMels), logMel)
	return &out, nil
}
