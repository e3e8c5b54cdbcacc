package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundleYAML = `
name: tiny
feature_dimension: 2
label_policy: mapped
classes: [angry, happy, sad]
scaler:
  mean: [1, 2]
  scale: [2, 0]
classifier:
  layers:
    - weights: [[1, 0], [0, 1]]
      bias: [0, 0]
      activation: relu
    - weights: [[1, 0], [0, 1], [0, 0]]
      bias: [0, 0, 0]
      activation: softmax
`

func writeBundle(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestStandardScaler checks z-scoring and the zero-scale guard
func TestStandardScaler(t *testing.T) {
	s := &StandardScaler{Mean: []float64{1, 2}, Scale: []float64{2, 0}}
	out, err := s.Transform([]float64{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, out)

	_, err = s.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

// TestLoadBundleYAML checks the YAML bundle path end to end
func TestLoadBundleYAML(t *testing.T) {
	bundle, err := LoadBundle(writeBundle(t, "model.yaml", testBundleYAML))
	require.NoError(t, err)

	assert.Equal(t, "tiny", bundle.Name)
	assert.Equal(t, 2, bundle.Classifier.InputDimension())
	assert.Equal(t, 3, bundle.Classifier.OutputDimension())
	assert.Equal(t, []string{"angry", "happy", "sad"}, bundle.Encoder().Classes())

	probs, err := bundle.Classifier.PredictProba([]float64{2, 0})
	require.NoError(t, err)
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, probs[0], probs[1])
	assert.InDelta(t, probs[1], probs[2], 1e-12)
}

// TestLoadBundleJSON checks the JSON bundle path
func TestLoadBundleJSON(t *testing.T) {
	content := `{
		"classes": ["calm", "angry"],
		"scaler": {"mean": [0], "scale": [1]},
		"classifier": {"layers": [{"weights": [[1], [-1]], "bias": [0, 0], "activation": "sigmoid"}]}
	}`
	bundle, err := LoadBundle(writeBundle(t, "model.json", content))
	require.NoError(t, err)

	probs, err := bundle.Classifier.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, probs, 1e-12)
}

// TestLoadBundleRejectsMismatches checks dimension validation
func TestLoadBundleRejectsMismatches(t *testing.T) {
	tests := map[string]string{
		"class count": `
classes: [a, b]
scaler: {mean: [0], scale: [1]}
classifier: {layers: [{weights: [[1], [1], [1]], bias: [0, 0, 0]}]}
`,
		"scaler width": `
classes: [a]
scaler: {mean: [0, 0], scale: [1, 1]}
classifier: {layers: [{weights: [[1]], bias: [0]}]}
`,
		"layer chain": `
classes: [a]
scaler: {mean: [0], scale: [1]}
classifier: {layers: [{weights: [[1], [1]], bias: [0, 0]}, {weights: [[1, 1, 1]], bias: [0]}]}
`,
		"activation": `
classes: [a]
scaler: {mean: [0], scale: [1]}
classifier: {layers: [{weights: [[1]], bias: [0], activation: swish}]}
`,
		"duplicate class": `
classes: [a, a]
scaler: {mean: [0], scale: [1]}
classifier: {layers: [{weights: [[1], [1]], bias: [0, 0]}]}
`,
		"missing scaler": `
classes: [a]
classifier: {layers: [{weights: [[1]], bias: [0]}]}
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadBundle(writeBundle(t, "model.yaml", content))
			assert.Error(t, err)
		})
	}

	_, err := LoadBundle(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestLabelEncoder checks index and name lookups
func TestLabelEncoder(t *testing.T) {
	enc, err := NewLabelEncoder([]string{"angry", "happy"})
	require.NoError(t, err)

	name, err := enc.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, "happy", name)

	i, err := enc.Encode("angry")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = enc.Decode(2)
	assert.Error(t, err)
	_, err = enc.Encode("sad")
	assert.Error(t, err)

	_, err = NewLabelEncoder(nil)
	assert.Error(t, err)
}
