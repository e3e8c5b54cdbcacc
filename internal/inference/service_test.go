package inference

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubLoader struct {
	err error
}

func (l stubLoader) Load(path string) (*audio.Waveform, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &audio.Waveform{Samples: make([]float64, 1024), SampleRate: 22050, Source: path}, nil
}

func (l stubLoader) LoadBytes(data []byte, ext string) (*audio.Waveform, error) {
	return l.Load("")
}

type stubExtractor struct {
	vec   features.Vector
	err   error
	panic bool
}

func (e stubExtractor) Extract(w *audio.Waveform) (features.Vector, error) {
	if e.panic {
		panic("index out of range")
	}
	return e.vec, e.err
}

type identityScaler struct{}

func (identityScaler) Transform(x []float64) ([]float64, error) { return x, nil }

type fixedClassifier struct {
	probs []float64
}

func (c fixedClassifier) PredictProba(x []float64) ([]float64, error) { return c.probs, nil }

type ServiceTestSuite struct {
	suite.Suite
	codec *LabelEncoder
}

func (s *ServiceTestSuite) SetupTest() {
	codec, err := NewLabelEncoder([]string{"angry", "happy", "neutral", "sad"})
	s.Require().NoError(err)
	s.codec = codec
}

func (s *ServiceTestSuite) newService(loader WaveformLoader, extractor FeatureExtractor, probs []float64) *Service {
	svc, err := NewService(loader, extractor, identityScaler{}, fixedClassifier{probs: probs}, s.codec, &logging.NoOpLogger{})
	s.Require().NoError(err)
	return svc
}

// TestPredictFile checks arg-max decoding and percentage formatting
func (s *ServiceTestSuite) TestPredictFile() {
	svc := s.newService(stubLoader{}, stubExtractor{vec: features.Vector{1, 2}}, []float64{0.1, 0.6, 0.2, 0.1})

	pred, err := svc.PredictFile(context.Background(), "clip.wav")
	s.Require().NoError(err)

	s.Equal("happy", pred.Label)
	s.Equal(1, pred.Index)
	s.Equal("clip.wav", pred.Source)
	s.InDelta(0.6, pred.Confidence, 1e-12)
	s.Equal("60.00%", pred.Percentages["happy"])
	s.Equal("10.00%", pred.Percentages["angry"])
	s.Len(pred.Percentages, 4)
	s.Equal("happy", pred.Probabilities[0].Label)
	s.Equal("neutral", pred.Probabilities[1].Label)

	var total float64
	for _, p := range pred.Probabilities {
		total += p.Probability
	}
	s.InDelta(1.0, total, 1e-9)
}

// TestPredictBytes checks the upload path
func (s *ServiceTestSuite) TestPredictBytes() {
	svc := s.newService(stubLoader{}, stubExtractor{vec: features.Vector{1}}, []float64{0.7, 0.1, 0.1, 0.1})
	pred, err := svc.PredictBytes(context.Background(), []byte("RIFF"), ".wav")
	s.Require().NoError(err)
	s.Equal("angry", pred.Label)
	s.Empty(pred.Source)
}

// TestDecodeFailure checks that unreadable input is a user-facing error
func (s *ServiceTestSuite) TestDecodeFailure() {
	loadErr := audio.NewDecodeError("clip.wav", audio.ErrCodeDecoding, "bad header", nil)
	svc := s.newService(stubLoader{err: loadErr}, stubExtractor{}, nil)

	_, err := svc.PredictFile(context.Background(), "clip.wav")
	s.ErrorIs(err, ErrInvalidFeatures)
	s.True(audio.IsDecodeError(err))
}

// TestExtractionFailure checks short and invalid vectors
func (s *ServiceTestSuite) TestExtractionFailure() {
	svc := s.newService(stubLoader{}, stubExtractor{err: features.ErrWaveformTooShort}, nil)
	_, err := svc.PredictFile(context.Background(), "clip.wav")
	s.ErrorIs(err, ErrInvalidFeatures)
	s.ErrorIs(err, features.ErrWaveformTooShort)

	svc = s.newService(stubLoader{}, stubExtractor{vec: features.Vector{1, math.NaN()}}, nil)
	_, err = svc.PredictFile(context.Background(), "clip.wav")
	s.ErrorIs(err, ErrInvalidFeatures)
	s.ErrorIs(err, features.ErrInvalidVector)
}

// TestPanicIsGeneric checks that faults are reported generically
func (s *ServiceTestSuite) TestPanicIsGeneric() {
	svc := s.newService(stubLoader{}, stubExtractor{panic: true}, nil)
	_, err := svc.PredictFile(context.Background(), "clip.wav")
	s.True(errors.Is(err, ErrUnexpected))
}

// TestCancelledContext checks early exit
func (s *ServiceTestSuite) TestCancelledContext() {
	svc := s.newService(stubLoader{}, stubExtractor{vec: features.Vector{1}}, []float64{1, 0, 0, 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.PredictFile(ctx, "clip.wav")
	s.ErrorIs(err, context.Canceled)
}

// TestPredictVector checks classification of a precomputed vector
func (s *ServiceTestSuite) TestPredictVector() {
	svc := s.newService(stubLoader{}, stubExtractor{}, []float64{0, 0, 0.3, 0.7})
	pred, err := svc.PredictVector(features.Vector{0.5})
	s.Require().NoError(err)
	s.Equal("sad", pred.Label)

	_, err = svc.PredictVector(features.Vector{math.Inf(1)})
	s.ErrorIs(err, ErrInvalidFeatures)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

// TestNewServiceRequiresComponents checks constructor validation
func TestNewServiceRequiresComponents(t *testing.T) {
	_, err := NewService(nil, stubExtractor{}, identityScaler{}, fixedClassifier{}, nil, nil)
	assert.Error(t, err)

	_, err = NewServiceFromBundle(stubLoader{}, stubExtractor{}, nil, nil)
	assert.Error(t, err)
}

// TestServiceWithBundle runs the real model components behind the service
func TestServiceWithBundle(t *testing.T) {
	bundle, err := LoadBundle(writeBundle(t, "model.yaml", testBundleYAML))
	require.NoError(t, err)

	svc, err := NewServiceFromBundle(stubLoader{}, stubExtractor{vec: features.Vector{1, 12}}, bundle, &logging.NoOpLogger{})
	require.NoError(t, err)

	pred, err := svc.PredictFile(context.Background(), "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "happy", pred.Label)
	assert.Equal(t, []string{"angry", "happy", "sad"}, svc.Classes())
}

// TestFormatPercentage checks two-decimal rendering
func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "12.35%", FormatPercentage(0.123456))
	assert.Equal(t, "100.00%", FormatPercentage(1))
	assert.Equal(t, "0.00%", FormatPercentage(0))
}
