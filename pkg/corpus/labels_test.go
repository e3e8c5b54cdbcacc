package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetectSource checks tag detection and precedence
func TestDetectSource(t *testing.T) {
	tests := []struct {
		path string
		want Source
	}{
		{"data/TESS/OAF_back_happy.wav", SourceTESS},
		{"data/Ravdess/Actor_01/03-01-05-01-02-01-12.wav", SourceRAVDESS},
		{"data/Crema/1001_DFA_ANG_XX.wav", SourceCREMA},
		{"data/SAVEE/DC_a03.wav", SourceSAVEE},
		{"data/ravdess_and_crema/03-01-05-01-02-01-12.wav", SourceRAVDESS},
		{"data/crema/tess/OAF_back_happy.wav", SourceTESS},
		{"data/other/clip.wav", SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSource(tt.path))
		})
	}
}

// TestRawResolver checks the native code policy used by the batch builder
func TestRawResolver(t *testing.T) {
	r := RawResolver{}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"tess", "tess/OAF_back_happy.wav", "happy"},
		{"tess multi segment", "TESS/YAF_pleasant_surprised_extra_ps.wav", "ps"},
		{"tess too few segments", "tess/OAF_happy.wav", Unknown},
		{"tess upper case", "TESS/OAF_BACK_HAPPY.WAV", "happy"},
		{"ravdess", "ravdess/03-01-05-01-02-01-12.wav", "05"},
		{"ravdess malformed", "ravdess/0301.wav", Unknown},
		{"crema", "crema/1001_DFA_ANG_XX.wav", "xx"},
		{"crema short", "crema/1001_DFA_ANG.wav", "ang"},
		{"savee", "savee/DC_a03.wav", "03"},
		{"savee sad", "savee/JK_sa.wav", "sa"},
		{"savee short name", "savee/a.wav", Unknown},
		{"no tag", "clips/OAF_back_happy.wav", Unknown},
		{"precedence", "ravdess/crema/03-01-04-01-02-01-12.wav", "04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.path))
		})
	}
}

// TestMappedParsers checks the human-readable mapping helpers
func TestMappedParsers(t *testing.T) {
	assert.Equal(t, "angry", ParseCremaLabel("1001_DFA_ANG_XX.wav"))
	assert.Equal(t, "sad", ParseCremaLabel("1001_DFA_SAD_XX.wav"))
	assert.Equal(t, Unknown, ParseCremaLabel("1001_DFA_sad_XX.wav"))
	assert.Equal(t, Unknown, ParseCremaLabel("1001_DFA_XYZ_XX.wav"))
	assert.Equal(t, Unknown, ParseCremaLabel("1001_DFA.wav"))

	assert.Equal(t, "sad", ParseSaveeLabel("sa01.wav"))
	assert.Equal(t, "surprise", ParseSaveeLabel("su01.wav"))
	assert.Equal(t, "angry", ParseSaveeLabel("a01.wav"))
	assert.Equal(t, "neutral", ParseSaveeLabel("DC_n12.wav"))
	assert.Equal(t, "surprise", ParseSaveeLabel("JE_su07.wav"))
	assert.Equal(t, Unknown, ParseSaveeLabel("x01.wav"))
	assert.Equal(t, Unknown, ParseSaveeLabel("DC_"))

	assert.Equal(t, "happy", ParseTessLabel("OAF_back_happy.wav"))
	assert.Equal(t, "fear", ParseTessLabel("YAF_bite_Fear.wav"))
	assert.Equal(t, Unknown, ParseTessLabel("OAF_happy.wav"))

	assert.Equal(t, "angry", ParseRavdessLabel("03-01-05-01-02-01-12.wav"))
	assert.Equal(t, "calm", ParseRavdessLabel("03-01-02-01-02-01-12.wav"))
	assert.Equal(t, Unknown, ParseRavdessLabel("03-01-99-01-02-01-12.wav"))
	assert.Equal(t, Unknown, ParseRavdessLabel("0301.wav"))
}

// TestPoliciesDiffer checks that raw and mapped vocabularies stay separate
func TestPoliciesDiffer(t *testing.T) {
	path := "ravdess/Actor_01/03-01-05-01-02-01-12.wav"

	raw, err := NewResolver("raw")
	require.NoError(t, err)
	mapped, err := NewResolver("MAPPED")
	require.NoError(t, err)

	assert.Equal(t, PolicyRaw, raw.Policy())
	assert.Equal(t, PolicyMapped, mapped.Policy())
	assert.Equal(t, "05", raw.Resolve(path))
	assert.Equal(t, "angry", mapped.Resolve(path))
	assert.Equal(t, "angry", mapped.Resolve("crema/1001_DFA_ANG_XX.wav"))
	assert.Equal(t, Unknown, mapped.Resolve("misc/clip.wav"))

	_, err = NewResolver("fuzzy")
	assert.Error(t, err)
}
