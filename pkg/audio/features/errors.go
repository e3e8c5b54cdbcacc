package features

import "errors"

var (
	ErrEmptyInput       = errors.New("waveform is empty")
	ErrWaveformTooShort = errors.New("waveform shorter than one analysis frame")
	ErrNonFiniteInput   = errors.New("waveform contains NaN or infinite samples")
	ErrBandAboveNyquist = errors.New("frequency band exceeds Nyquist")
	ErrInvalidVector    = errors.New("feature vector contains NaN or infinite values")
	ErrDimension        = errors.New("feature vector has unexpected dimension")
)
