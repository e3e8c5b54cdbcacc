// Package inference classifies the emotion of a single audio clip with an
// externally trained model.
package inference

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

// InvalidFeaturesMessage is shown to end users whose clip was rejected with
// ErrInvalidFeatures.
const InvalidFeaturesMessage = "Failed to extract valid features. Please upload a clearer or slightly longer audio clip."

var (
	// ErrInvalidFeatures is returned when a clip cannot be turned into a
	// usable feature vector
	ErrInvalidFeatures = errors.New("failed to extract valid features")

	// ErrUnexpected wraps faults that are not caused by the input
	ErrUnexpected = errors.New("unexpected error during prediction")

	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Scaler standardises a feature vector
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// Classifier maps a standardised vector to a probability per class
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
}

// LabelCodec converts between class indices and names
type LabelCodec interface {
	Decode(i int) (string, error)
	Encode(label string) (int, error)
	Classes() []string
}

// WaveformLoader reads the analysis window of a clip
type WaveformLoader interface {
	Load(path string) (*audio.Waveform, error)
	LoadBytes(data []byte, ext string) (*audio.Waveform, error)
}

// FeatureExtractor turns a waveform into a feature vector
type FeatureExtractor interface {
	Extract(w *audio.Waveform) (features.Vector, error)
}

// ClassProbability is the score of one class
type ClassProbability struct {
	Label       string  `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
	Percentage  string  `json:"percentage" yaml:"percentage"`
}

// Prediction is the outcome of classifying one clip
type Prediction struct {
	Source        string             `json:"source,omitempty" yaml:"source,omitempty"`
	Label         string             `json:"label" yaml:"label"`
	Index         int                `json:"index" yaml:"index"`
	Confidence    float64            `json:"confidence" yaml:"confidence"`
	Probabilities []ClassProbability `json:"probabilities" yaml:"probabilities"`
	Percentages   map[string]string  `json:"percentages" yaml:"percentages"`
}

// Service runs the full load, extract, scale and classify pipeline. The
// model components are read-only after construction, so a Service is safe
// for concurrent use.
type Service struct {
	loader     WaveformLoader
	extractor  FeatureExtractor
	scaler     Scaler
	classifier Classifier
	codec      LabelCodec
	logger     logging.Logger
}

// NewService wires the pipeline together
func NewService(loader WaveformLoader, extractor FeatureExtractor, scaler Scaler,
	classifier Classifier, codec LabelCodec, logger logging.Logger) (*Service, error) {
	if loader == nil || extractor == nil {
		return nil, fmt.Errorf("inference service needs a loader and an extractor")
	}
	if scaler == nil || classifier == nil || codec == nil {
		return nil, fmt.Errorf("inference service needs a scaler, a classifier and a label codec")
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		loader:     loader,
		extractor:  extractor,
		scaler:     scaler,
		classifier: classifier,
		codec:      codec,
		logger:     logger,
	}, nil
}

// NewServiceFromBundle builds a service around a loaded model bundle
func NewServiceFromBundle(loader WaveformLoader, extractor FeatureExtractor, bundle *Bundle, logger logging.Logger) (*Service, error) {
	if bundle == nil {
		return nil, fmt.Errorf("model bundle is nil")
	}
	return NewService(loader, extractor, bundle.Scaler, bundle.Classifier, bundle.Encoder(), logger)
}

// Classes returns the label space of the model
func (s *Service) Classes() []string {
	return s.codec.Classes()
}

// PredictFile classifies the clip stored at path
func (s *Service) PredictFile(ctx context.Context, path string) (pred *Prediction, err error) {
	defer s.recoverFault(&err, path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := s.loader.Load(path)
	if err != nil {
		s.logger.Warn("Failed to load clip", logging.Fields{"path": path, "error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeatures, err)
	}

	pred, err = s.predictWaveform(ctx, w)
	if pred != nil {
		pred.Source = path
	}
	return pred, err
}

// PredictBytes classifies an uploaded clip. ext selects the decoder, for
// example ".wav".
func (s *Service) PredictBytes(ctx context.Context, data []byte, ext string) (pred *Prediction, err error) {
	defer s.recoverFault(&err, "upload")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := s.loader.LoadBytes(data, ext)
	if err != nil {
		s.logger.Warn("Failed to load upload", logging.Fields{"bytes": len(data), "error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeatures, err)
	}
	return s.predictWaveform(ctx, w)
}

// PredictVector classifies an already extracted feature vector
func (s *Service) PredictVector(vec features.Vector) (pred *Prediction, err error) {
	defer s.recoverFault(&err, "vector")

	if err := vec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeatures, err)
	}
	return s.classify(vec)
}

func (s *Service) predictWaveform(ctx context.Context, w *audio.Waveform) (*Prediction, error) {
	vec, err := s.extractor.Extract(w)
	if err != nil {
		s.logger.Warn("Feature extraction failed", logging.Fields{"samples": w.Len(), "error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeatures, err)
	}
	if err := vec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeatures, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.classify(vec)
}

func (s *Service) classify(vec features.Vector) (*Prediction, error) {
	scaled, err := s.scaler.Transform(vec)
	if err != nil {
		return nil, fmt.Errorf("scaling features: %w", err)
	}

	probs, err := s.classifier.PredictProba(scaled)
	if err != nil {
		return nil, fmt.Errorf("classifying features: %w", err)
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("classifier returned no probabilities")
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	label, err := s.codec.Decode(best)
	if err != nil {
		return nil, fmt.Errorf("decoding class %d: %w", best, err)
	}

	pred := &Prediction{
		Label:         label,
		Index:         best,
		Confidence:    probs[best],
		Probabilities: make([]ClassProbability, 0, len(probs)),
		Percentages:   make(map[string]string, len(probs)),
	}
	for i, p := range probs {
		name, err := s.codec.Decode(i)
		if err != nil {
			return nil, fmt.Errorf("decoding class %d: %w", i, err)
		}
		pct := FormatPercentage(p)
		pred.Probabilities = append(pred.Probabilities, ClassProbability{
			Label:       name,
			Probability: p,
			Percentage:  pct,
		})
		pred.Percentages[name] = pct
	}
	sort.SliceStable(pred.Probabilities, func(i, j int) bool {
		return pred.Probabilities[i].Probability > pred.Probabilities[j].Probability
	})

	s.logger.Debug("Classified clip", logging.Fields{
		"label":      label,
		"confidence": probs[best],
	})
	return pred, nil
}

// recoverFault turns a panic anywhere in the pipeline into ErrUnexpected
func (s *Service) recoverFault(err *error, source string) {
	if r := recover(); r != nil {
		s.logger.Error(fmt.Errorf("panic: %v", r), "Prediction pipeline panicked", logging.Fields{
			"source": source,
			"stack":  string(debug.Stack()),
		})
		*err = ErrUnexpected
	}
}

// FormatPercentage renders a probability as "12.34%"
func FormatPercentage(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
