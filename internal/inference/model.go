package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// StandardScaler centres each feature on Mean and divides by Scale
type StandardScaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// Transform implements Scaler
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(x) != len(s.Scale) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrDimensionMismatch, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			// constant features keep their centred value
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// Dimension returns the expected input length
func (s *StandardScaler) Dimension() int {
	return len(s.Mean)
}

// Layer is one fully connected layer. Weights is outputs x inputs.
type Layer struct {
	Weights    [][]float64 `json:"weights" yaml:"weights"`
	Bias       []float64   `json:"bias" yaml:"bias"`
	Activation string      `json:"activation" yaml:"activation"`

	w *mat.Dense
	b *mat.VecDense
}

func (l *Layer) compile() error {
	rows := len(l.Weights)
	if rows == 0 {
		return fmt.Errorf("layer has no weights")
	}
	cols := len(l.Weights[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range l.Weights {
		if len(row) != cols {
			return fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	if len(l.Bias) != rows {
		return fmt.Errorf("bias has %d entries, want %d", len(l.Bias), rows)
	}
	if _, ok := activations[strings.ToLower(l.Activation)]; !ok {
		return fmt.Errorf("unsupported activation %q", l.Activation)
	}
	l.w = mat.NewDense(rows, cols, data)
	l.b = mat.NewVecDense(rows, slices.Clone(l.Bias))
	return nil
}

func (l *Layer) inputs() int {
	_, c := l.w.Dims()
	return c
}

func (l *Layer) outputs() int {
	r, _ := l.w.Dims()
	return r
}

var activations = map[string]func([]float64){
	"":         func([]float64) {},
	"identity": func([]float64) {},
	"linear":   func([]float64) {},
	"relu": func(x []float64) {
		for i, v := range x {
			x[i] = math.Max(0, v)
		}
	},
	"tanh": func(x []float64) {
		for i, v := range x {
			x[i] = math.Tanh(v)
		}
	},
	"logistic": sigmoid,
	"sigmoid":  sigmoid,
	"softmax":  softmax,
}

func sigmoid(x []float64) {
	for i, v := range x {
		x[i] = 1 / (1 + math.Exp(-v))
	}
}

func softmax(x []float64) {
	peak := floats.Max(x)
	for i, v := range x {
		x[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(x), x)
}

// DenseNetwork is a feed-forward classifier of fully connected layers
type DenseNetwork struct {
	Layers []*Layer `json:"layers" yaml:"layers"`
}

// Compile validates layer shapes and prepares the matrices
func (n *DenseNetwork) Compile() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network has no layers")
	}
	for i, l := range n.Layers {
		if err := l.compile(); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if i > 0 && n.Layers[i-1].outputs() != l.inputs() {
			return fmt.Errorf("layer %d expects %d inputs but layer %d produces %d",
				i, l.inputs(), i-1, n.Layers[i-1].outputs())
		}
	}
	return nil
}

// InputDimension returns the expected feature count
func (n *DenseNetwork) InputDimension() int {
	return n.Layers[0].inputs()
}

// OutputDimension returns the number of classes
func (n *DenseNetwork) OutputDimension() int {
	return n.Layers[len(n.Layers)-1].outputs()
}

// PredictProba implements Classifier. The final activation output is
// renormalised to sum to one.
func (n *DenseNetwork) PredictProba(x []float64) ([]float64, error) {
	if len(x) != n.InputDimension() {
		return nil, fmt.Errorf("%w: network expects %d features, got %d", ErrDimensionMismatch, n.InputDimension(), len(x))
	}

	h := mat.NewVecDense(len(x), slices.Clone(x))
	for _, l := range n.Layers {
		next := mat.NewVecDense(l.outputs(), nil)
		next.MulVec(l.w, h)
		next.AddVec(next, l.b)
		activations[strings.ToLower(l.Activation)](next.RawVector().Data)
		h = next
	}

	out := slices.Clone(h.RawVector().Data)
	for _, p := range out {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("classifier produced an invalid probability %v", p)
		}
	}
	total := floats.Sum(out)
	if total <= 0 {
		return nil, fmt.Errorf("classifier produced an all-zero distribution")
	}
	floats.Scale(1/total, out)
	return out, nil
}

// LabelEncoder maps class indices to emotion names
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder creates an encoder over the ordered class list
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder needs at least one class")
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		index[c] = i
	}
	return &LabelEncoder{classes: slices.Clone(classes), index: index}, nil
}

// Decode implements LabelCodec
func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", i, len(e.classes))
	}
	return e.classes[i], nil
}

// Encode implements LabelCodec
func (e *LabelEncoder) Encode(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("unknown class %q", label)
	}
	return i, nil
}

// Classes implements LabelCodec
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

// Bundle is the on-disk form of a trained model
type Bundle struct {
	Name             string          `json:"name" yaml:"name"`
	FeatureDimension int             `json:"feature_dimension" yaml:"feature_dimension"`
	LabelPolicy      string          `json:"label_policy" yaml:"label_policy"`
	Classes          []string        `json:"classes" yaml:"classes"`
	Scaler           *StandardScaler `json:"scaler" yaml:"scaler"`
	Classifier       *DenseNetwork   `json:"classifier" yaml:"classifier"`

	encoder *LabelEncoder
}

// Encoder returns the label codec of the bundle
func (b *Bundle) Encoder() *LabelEncoder {
	return b.encoder
}

// LoadBundle reads a YAML or JSON model bundle and checks that the scaler,
// the classifier and the class list agree on their dimensions.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bundle: %w", err)
	}

	bundle := &Bundle{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, bundle)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, bundle)
	default:
		// YAML is a superset of JSON
		err = yaml.Unmarshal(data, bundle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse model bundle %s: %w", path, err)
	}

	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model bundle %s: %w", path, err)
	}
	return bundle, nil
}

// Validate compiles the classifier and checks dimensions
func (b *Bundle) Validate() error {
	if b.Scaler == nil || b.Classifier == nil {
		return fmt.Errorf("bundle needs both a scaler and a classifier")
	}
	if len(b.Scaler.Mean) != len(b.Scaler.Scale) {
		return fmt.Errorf("scaler mean has %d entries but scale has %d", len(b.Scaler.Mean), len(b.Scaler.Scale))
	}
	if err := b.Classifier.Compile(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	encoder, err := NewLabelEncoder(b.Classes)
	if err != nil {
		return err
	}
	b.encoder = encoder

	if b.Scaler.Dimension() != b.Classifier.InputDimension() {
		return fmt.Errorf("scaler has %d features, classifier expects %d",
			b.Scaler.Dimension(), b.Classifier.InputDimension())
	}
	if b.FeatureDimension != 0 && b.FeatureDimension != b.Scaler.Dimension() {
		return fmt.Errorf("feature_dimension %d does not match scaler width %d",
			b.FeatureDimension, b.Scaler.Dimension())
	}
	if b.Classifier.OutputDimension() != len(b.Classes) {
		return fmt.Errorf("classifier has %d outputs for %d classes",
			b.Classifier.OutputDimension(), len(b.Classes))
	}
	return nil
}
