package features

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// SpectralContrast measures, per octave band, the dB difference between the
// mean of the loudest and the quietest quantile of bins. The first band
// covers [0, fmin]; each following band doubles, and the last band absorbs
// everything up to Nyquist. The result is (bands+1) x frames.
func SpectralContrast(S *mat.Dense, sampleRate int, fmin float64, nBands int, quantile, topDB float64) (*mat.Dense, error) {
	bins, frames := S.Dims()
	freqs := FFTFrequencies(sampleRate, nfftFromBins(bins))

	octa := make([]float64, nBands+2)
	for i := 1; i < len(octa); i++ {
		octa[i] = fmin * math.Pow(2, float64(i-1))
	}
	for _, edge := range octa[:len(octa)-1] {
		if edge >= 0.5*float64(sampleRate) {
			return nil, fmt.Errorf("%w: band edge %.0f Hz, sample rate %d", ErrBandAboveNyquist, edge, sampleRate)
		}
	}

	valley := mat.NewDense(nBands+1, frames, nil)
	peak := mat.NewDense(nBands+1, frames, nil)

	for k := 0; k <= nBands; k++ {
		lo, hi := octa[k], octa[k+1]

		inBand := make([]bool, bins)
		first, last := -1, -1
		for i, f := range freqs {
			if f >= lo && f <= hi {
				inBand[i] = true
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first < 0 {
			return nil, fmt.Errorf("contrast band %d [%.0f, %.0f] Hz holds no bins", k, lo, hi)
		}
		if k > 0 && first > 0 {
			inBand[first-1] = true
		}
		if k == nBands {
			for i := last + 1; i < bins; i++ {
				inBand[i] = true
			}
		}

		rows := make([]int, 0, bins)
		for i, ok := range inBand {
			if ok {
				rows = append(rows, i)
			}
		}
		count := len(rows)
		if k < nBands && len(rows) > 1 {
			rows = rows[:len(rows)-1]
		}

		n := int(math.Max(math.RoundToEven(quantile*float64(count)), 1))
		n = min(n, len(rows))

		band := make([]float64, len(rows))
		for t := range frames {
			for j, row := range rows {
				band[j] = S.At(row, t)
			}
			slices.Sort(band)
			valley.Set(k, t, meanOf(band[:n]))
			peak.Set(k, t, meanOf(band[len(band)-n:]))
		}
	}

	peakDB := PowerToDB(peak, topDB)
	valleyDB := PowerToDB(valley, topDB)

	var contrast mat.Dense
	contrast.Sub(peakDB, valleyDB)
	return &contrast, nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
