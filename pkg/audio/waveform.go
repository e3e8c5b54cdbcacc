package audio

import "time"

// Waveform is a mono clip of normalised samples at a fixed rate
type Waveform struct {
	Samples    []float64
	SampleRate int
	Source     string
}

// Duration returns the length of the clip
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Len returns the number of samples
func (w *Waveform) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Samples)
}
