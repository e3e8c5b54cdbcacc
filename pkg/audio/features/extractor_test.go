package features

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func sineWave(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

type ExtractorTestSuite struct {
	suite.Suite
	extractor *Extractor
	cfg       *Config
}

func (s *ExtractorTestSuite) SetupTest() {
	s.cfg = DefaultConfig()
	ex, err := NewExtractor(s.cfg, &logging.NoOpLogger{})
	s.Require().NoError(err)
	s.extractor = ex
}

// TestDimension checks the documented vector size
func (s *ExtractorTestSuite) TestDimension() {
	s.Equal(171, s.extractor.Dimension())

	names := make([]string, 0)
	for _, seg := range Layout(s.cfg) {
		names = append(names, seg.Name)
	}
	s.Equal([]string{"zcr", "chroma", "mfcc", "rms", "mel", "contrast", "bandwidth", "rolloff"}, names)
}

// TestExtractSine checks a pure tone end to end
func (s *ExtractorTestSuite) TestExtractSine() {
	w := &audio.Waveform{Samples: sineWave(440, 22050, 3*22050), SampleRate: 22050}

	vec, err := s.extractor.Extract(w)
	s.Require().NoError(err)
	s.Len(vec, 171)
	s.NoError(vec.Validate())

	layout := Layout(s.cfg)
	byName := map[string]Segment{}
	for _, seg := range layout {
		byName[seg.Name] = seg
	}

	zcr := vec.Slice(byName["zcr"])[0]
	s.InDelta(2*440.0/22050, zcr, 0.005)

	chroma := vec.Slice(byName["chroma"])
	best := 0
	for i, v := range chroma {
		if v > chroma[best] {
			best = i
		}
	}
	s.Equal(9, best, "440 Hz should land on pitch class A")

	rms := vec.Slice(byName["rms"])[0]
	s.InDelta(0.5/math.Sqrt2, rms, 0.01)

	rolloff := vec.Slice(byName["rolloff"])[0]
	s.InDelta(440, rolloff, 60)

	bandwidth := vec.Slice(byName["bandwidth"])[0]
	s.Greater(bandwidth, 0.0)
	s.Less(bandwidth, 1000.0)
}

// TestDeterministic checks that identical input gives identical output
func (s *ExtractorTestSuite) TestDeterministic() {
	y := sineWave(220, 22050, 22050)
	overtone := sineWave(3000, 22050, len(y))
	for i := range y {
		y[i] += 0.1 * overtone[i]
	}

	a, err := s.extractor.ExtractSamples(y)
	s.Require().NoError(err)
	b, err := s.extractor.ExtractSamples(y)
	s.Require().NoError(err)
	s.Equal(a, b)
}

// TestExtractSilence checks that silence yields a finite vector
func (s *ExtractorTestSuite) TestExtractSilence() {
	vec, err := s.extractor.ExtractSamples(make([]float64, 22050))
	s.Require().NoError(err)
	s.NoError(vec.Validate())

	byName := map[string]Segment{}
	for _, seg := range Layout(s.cfg) {
		byName[seg.Name] = seg
	}
	s.Equal(0.0, vec.Slice(byName["zcr"])[0])
	s.Equal(0.0, vec.Slice(byName["rms"])[0])
	s.Equal(0.0, vec.Slice(byName["rolloff"])[0])
	for _, v := range vec.Slice(byName["chroma"]) {
		s.Equal(0.0, v)
	}
}

// TestExtractFailures checks the rejected inputs
func (s *ExtractorTestSuite) TestExtractFailures() {
	_, err := s.extractor.ExtractSamples(nil)
	s.True(errors.Is(err, ErrEmptyInput))

	_, err = s.extractor.ExtractSamples(make([]float64, 100))
	s.True(errors.Is(err, ErrWaveformTooShort))

	y := sineWave(440, 22050, 4096)
	y[17] = math.NaN()
	_, err = s.extractor.ExtractSamples(y)
	s.True(errors.Is(err, ErrNonFiniteInput))

	_, err = s.extractor.Extract(&audio.Waveform{Samples: sineWave(440, 16000, 4096), SampleRate: 16000})
	s.Error(err)

	_, err = s.extractor.Extract(nil)
	s.True(errors.Is(err, ErrEmptyInput))
}

// TestExtractOneFrame checks the shortest accepted waveform
func (s *ExtractorTestSuite) TestExtractOneFrame() {
	vec, err := s.extractor.ExtractSamples(sineWave(1000, 22050, 512))
	s.Require().NoError(err)
	s.Len(vec, 171)
	s.NoError(vec.Validate())
}

// TestMFCCMatchesExtractor checks the standalone transform against the
// vector block
func (s *ExtractorTestSuite) TestMFCCMatchesExtractor() {
	y := sineWave(330, 22050, 11025)
	vec, err := s.extractor.ExtractSamples(y)
	s.Require().NoError(err)

	mfcc, err := MFCC(y, s.cfg)
	s.Require().NoError(err)
	means := rowMeans(mfcc)

	var seg Segment
	for _, l := range Layout(s.cfg) {
		if l.Name == "mfcc" {
			seg = l
		}
	}
	s.InDeltaSlice(means, vec.Slice(seg), 1e-9)

	mel, err := MelSpectrogram(y, s.cfg)
	s.Require().NoError(err)
	rows, _ := mel.Dims()
	s.Equal(128, rows)
}

func TestExtractorTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}

// TestNewExtractorRejectsBadConfig checks configuration validation
func TestNewExtractorRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NFFT = 511
	_, err := NewExtractor(cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.NMFCC = 200
	_, err = NewExtractor(cfg, nil)
	assert.Error(t, err)
}

// TestVectorValidate checks NaN and infinity detection
func TestVectorValidate(t *testing.T) {
	assert.NoError(t, Vector{1, 2, 3}.Validate())
	assert.ErrorIs(t, Vector{1, math.NaN()}.Validate(), ErrInvalidVector)
	assert.ErrorIs(t, Vector{math.Inf(-1)}.Validate(), ErrInvalidVector)
	assert.ErrorIs(t, Vector{}.Validate(), ErrInvalidVector)

	v := Vector{1, 2}
	c := v.Clone()
	c[0] = 9
	assert.Equal(t, 1.0, v[0])

	require.ErrorIs(t, v.CheckDimension(3), ErrDimension)
	assert.Equal(t, []string{"1", "2", "3"}, ColumnNames(3))
}
