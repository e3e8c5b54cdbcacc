package features

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// smallest normal float64, used as the degenerate-norm threshold
const tiny = 2.2250738585072014e-308

// Peak picking range for tuning estimation
const (
	tuningFMin      = 150.0
	tuningFMax      = 4000.0
	tuningThreshold = 0.1
)

// Chroma filter octave weighting
const (
	chromaCenterOctave = 5.0
	chromaOctaveWidth  = 2.0
)

// HzToOctaves converts frequencies to fractional octave numbers, with octave
// 4 starting at A440/16 adjusted by tuning (in fractions of a bin).
func HzToOctaves(hz, tuning float64, binsPerOctave int) float64 {
	a440 := 440.0 * math.Pow(2.0, tuning/float64(binsPerOctave))
	return math.Log2(hz / (a440 / 16))
}

// PitchTrack finds parabolic-interpolated spectral peaks in the
// [fmin, fmax) range. A bin is a candidate when it is a local maximum of its
// frame after zeroing everything below threshold times the frame maximum.
// The returned matrices hold the pitch in Hz and its magnitude, zero
// elsewhere.
func PitchTrack(S *mat.Dense, sampleRate int, fmin, fmax, threshold float64) (pitches, mags *mat.Dense) {
	bins, frames := S.Dims()
	nfft := nfftFromBins(bins)
	fmax = math.Min(fmax, float64(sampleRate)/2)
	freqs := FFTFrequencies(sampleRate, nfft)

	pitches = mat.NewDense(bins, frames, nil)
	mags = mat.NewDense(bins, frames, nil)

	col := make([]float64, bins)
	gated := make([]float64, bins)

	for t := range frames {
		mat.Col(col, t, S)
		ref := threshold * slices.Max(col)
		for i, v := range col {
			gated[i] = 0
			if v > ref {
				gated[i] = v
			}
		}

		for i := 1; i < bins-1; i++ {
			if freqs[i] < fmin || freqs[i] >= fmax {
				continue
			}
			if !(gated[i] > gated[i-1] && gated[i] >= gated[i+1]) {
				continue
			}

			avg := 0.5 * (col[i+1] - col[i-1])
			denom := 2*col[i] - col[i+1] - col[i-1]
			if math.Abs(denom) < tiny {
				denom += 1
			}
			shift := avg / denom

			pitches.Set(i, t, (float64(i)+shift)*float64(sampleRate)/float64(nfft))
			mags.Set(i, t, col[i]+0.5*avg*shift)
		}
	}
	return pitches, mags
}

// EstimateTuning returns the tuning deviation of a magnitude spectrogram in
// fractions of a chroma bin, in [-0.5, 0.5).
func EstimateTuning(S *mat.Dense, sampleRate, binsPerOctave int, resolution float64) float64 {
	pitches, mags := PitchTrack(S, sampleRate, tuningFMin, tuningFMax, tuningThreshold)

	var candidates []float64
	var weights []float64
	r, c := pitches.Dims()
	for i := range r {
		for j := range c {
			if p := pitches.At(i, j); p > 0 {
				candidates = append(candidates, p)
				weights = append(weights, mags.At(i, j))
			}
		}
	}
	if len(candidates) == 0 {
		return 0
	}

	floor := median(weights)
	selected := candidates[:0]
	for i, p := range candidates {
		if weights[i] >= floor {
			selected = append(selected, p)
		}
	}
	return PitchTuning(selected, resolution, binsPerOctave)
}

// PitchTuning histograms the deviation of each frequency from the nearest
// equal-tempered bin and returns the left edge of the most populated bucket.
func PitchTuning(freqs []float64, resolution float64, binsPerOctave int) float64 {
	var residuals []float64
	for _, f := range freqs {
		if f <= 0 {
			continue
		}
		r := floorMod(float64(binsPerOctave)*HzToOctaves(f, 0, binsPerOctave), 1.0)
		if r >= 0.5 {
			r -= 1.0
		}
		residuals = append(residuals, r)
	}
	if len(residuals) == 0 {
		return 0
	}

	nBins := int(math.Ceil(1.0 / resolution))
	edges := make([]float64, nBins+1)
	for i := range edges {
		edges[i] = -0.5 + float64(i)/float64(nBins)
	}

	counts := make([]int, nBins)
	for _, r := range residuals {
		if idx := histogramBin(r, edges); idx >= 0 {
			counts[idx]++
		}
	}

	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return edges[best]
}

// histogramBin returns the bucket holding v; buckets are half-open except the
// last, which includes its right edge.
func histogramBin(v float64, edges []float64) int {
	n := len(edges) - 1
	if v < edges[0] || v > edges[n] {
		return -1
	}
	idx := int((v - edges[0]) / (edges[n] - edges[0]) * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx > 0 && v < edges[idx] {
		idx--
	}
	if idx < n-1 && v >= edges[idx+1] {
		idx++
	}
	return idx
}

// ChromaFilterBank builds an nChroma x (nfft/2+1) matrix that maps STFT bins
// onto pitch classes, starting at C.
func ChromaFilterBank(sampleRate, nfft, nChroma int, tuning float64) *mat.Dense {
	nc := float64(nChroma)

	// bin 0 (DC) gets a pseudo position 1.5 octaves below bin 1
	frqbins := make([]float64, nfft)
	for k := 1; k < nfft; k++ {
		f := float64(k) * float64(sampleRate) / float64(nfft)
		frqbins[k] = nc * HzToOctaves(f, tuning, nChroma)
	}
	frqbins[0] = frqbins[1] - 1.5*nc

	binwidth := make([]float64, nfft)
	for k := 0; k < nfft-1; k++ {
		binwidth[k] = math.Max(frqbins[k+1]-frqbins[k], 1.0)
	}
	binwidth[nfft-1] = 1

	half := math.Round(nc / 2)
	wts := mat.NewDense(nChroma, nfft, nil)
	for c := range nChroma {
		for k := range nfft {
			d := floorMod(frqbins[k]-float64(c)+half+10*nc, nc) - half
			wts.Set(c, k, math.Exp(-0.5*math.Pow(2*d/binwidth[k], 2)))
		}
	}

	// unit L2 norm per frequency column, then octave weighting
	col := make([]float64, nChroma)
	for k := range nfft {
		mat.Col(col, k, wts)
		var norm float64
		for _, v := range col {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm < tiny {
			norm = 1
		}
		octWeight := math.Exp(-0.5 * math.Pow((frqbins[k]/nc-chromaCenterOctave)/chromaOctaveWidth, 2))
		for c := range nChroma {
			wts.Set(c, k, wts.At(c, k)/norm*octWeight)
		}
	}

	// rotate so that row 0 is C rather than A
	shift := 3 * (nChroma / 12)
	bins := nfft/2 + 1
	out := mat.NewDense(nChroma, bins, nil)
	for c := range nChroma {
		src := (c + shift) % nChroma
		for k := range bins {
			out.Set(c, k, wts.At(src, k))
		}
	}
	return out
}

// ChromaSTFT projects a magnitude spectrogram onto nChroma pitch classes and
// scales each frame so its largest class is 1. Silent frames stay zero.
func ChromaSTFT(S *mat.Dense, sampleRate, nChroma int, resolution float64) *mat.Dense {
	bins, _ := S.Dims()
	nfft := nfftFromBins(bins)

	tuning := EstimateTuning(S, sampleRate, nChroma, resolution)
	fb := ChromaFilterBank(sampleRate, nfft, nChroma, tuning)

	var chroma mat.Dense
	chroma.Mul(fb, S)
	normalizeColumnsInf(&chroma)
	return &chroma
}

func normalizeColumnsInf(m *mat.Dense) {
	r, c := m.Dims()
	for j := range c {
		var peak float64
		for i := range r {
			peak = math.Max(peak, math.Abs(m.At(i, j)))
		}
		if peak < tiny {
			continue
		}
		for i := range r {
			m.Set(i, j, m.At(i, j)/peak)
		}
	}
}

func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return 0.5 * (sorted[mid-1] + sorted[mid])
	}
	return sorted[mid]
}
