// Package corpus recovers ground-truth emotion labels from the file naming
// conventions of the public speech emotion corpora (TESS, RAVDESS, CREMA-D
// and SAVEE).
//
// Two labelling policies are provided. The raw policy keeps each corpus'
// native code ("03", "ang", "sa") and is what the batch dataset builder
// persists. The mapped policy translates the codes into human-readable
// emotion names. The two vocabularies are not interchangeable: a model is
// trained against exactly one of them.
package corpus

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Unknown is returned whenever a label cannot be resolved.
const Unknown = "unknown"

// Source identifies the corpus a file belongs to
type Source string

const (
	SourceTESS    Source = "tess"
	SourceRAVDESS Source = "ravdess"
	SourceCREMA   Source = "crema"
	SourceSAVEE   Source = "savee"
	SourceUnknown Source = "unknown"
)

// sourcePrecedence is the order in which corpus tags are matched. The first
// tag found in the path wins.
var sourcePrecedence = []Source{SourceTESS, SourceRAVDESS, SourceCREMA, SourceSAVEE}

// DetectSource infers the corpus from a case-insensitive substring match on
// the full path.
func DetectSource(path string) Source {
	lower := strings.ToLower(path)
	for _, src := range sourcePrecedence {
		if strings.Contains(lower, string(src)) {
			return src
		}
	}
	return SourceUnknown
}

// Policy selects a labelling vocabulary
type Policy string

const (
	PolicyRaw    Policy = "raw"
	PolicyMapped Policy = "mapped"
)

// Resolver turns a file path into an emotion label
type Resolver interface {
	Resolve(path string) string
	Policy() Policy
}

// NewResolver returns the resolver for the named policy
func NewResolver(policy string) (Resolver, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(policy))) {
	case PolicyRaw, "":
		return RawResolver{}, nil
	case PolicyMapped:
		return MappedResolver{}, nil
	default:
		return nil, fmt.Errorf("unsupported label policy: %s", policy)
	}
}

// RawResolver keeps the corpus' native emotion codes
type RawResolver struct{}

// Policy implements Resolver
func (RawResolver) Policy() Policy { return PolicyRaw }

// Resolve implements Resolver
func (RawResolver) Resolve(path string) string {
	name := strings.ToLower(filepath.Base(path))

	switch DetectSource(path) {
	case SourceTESS:
		parts := strings.Split(name, "_")
		if len(parts) < 3 {
			return Unknown
		}
		return stripExt(parts[len(parts)-1])

	case SourceRAVDESS:
		parts := strings.Split(name, "-")
		if len(parts) < 3 {
			return Unknown
		}
		return parts[2]

	case SourceCREMA:
		parts := strings.Split(name, "_")
		return stripExt(parts[len(parts)-1])

	case SourceSAVEE:
		// two characters immediately before a four character ".wav" tail
		if len(name) < 6 {
			return Unknown
		}
		return name[len(name)-6 : len(name)-4]
	}

	return Unknown
}

// MappedResolver translates corpus codes into human-readable emotion names
type MappedResolver struct{}

// Policy implements Resolver
func (MappedResolver) Policy() Policy { return PolicyMapped }

// Resolve implements Resolver
func (MappedResolver) Resolve(path string) string {
	name := filepath.Base(path)

	switch DetectSource(path) {
	case SourceTESS:
		return ParseTessLabel(name)
	case SourceRAVDESS:
		return ParseRavdessLabel(name)
	case SourceCREMA:
		return ParseCremaLabel(name)
	case SourceSAVEE:
		return ParseSaveeLabel(name)
	}
	return Unknown
}

var cremaLabels = map[string]string{
	"ANG": "angry",
	"DIS": "disgust",
	"FEA": "fear",
	"HAP": "happy",
	"NEU": "neutral",
	"SAD": "sad",
}

var saveeLabels = map[string]string{
	"a":  "angry",
	"d":  "disgust",
	"f":  "fear",
	"h":  "happy",
	"n":  "neutral",
	"sa": "sad",
	"su": "surprise",
}

var ravdessLabels = map[string]string{
	"01": "neutral",
	"02": "calm",
	"03": "happy",
	"04": "sad",
	"05": "angry",
	"06": "fearful",
	"07": "disgust",
	"08": "surprised",
}

// ParseCremaLabel maps the emotion field of a CREMA-D name such as
// "1001_DFA_ANG_XX.wav". Codes are matched case-sensitively.
func ParseCremaLabel(filename string) string {
	parts := strings.Split(filepath.Base(filename), "_")
	if len(parts) < 3 {
		return Unknown
	}
	if label, ok := cremaLabels[parts[2]]; ok {
		return label
	}
	return Unknown
}

// ParseSaveeLabel maps the leading emotion code of a SAVEE utterance name
// such as "sa01.wav" or "DC_su02.wav".
func ParseSaveeLabel(filename string) string {
	name := strings.ToLower(filepath.Base(filename))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return Unknown
	}

	if len(name) >= 2 {
		if label, ok := saveeLabels[name[:2]]; ok {
			return label
		}
	}
	if label, ok := saveeLabels[name[:1]]; ok {
		return label
	}
	return Unknown
}

// ParseTessLabel returns the emotion word of a TESS name such as
// "OAF_back_happy.wav".
func ParseTessLabel(filename string) string {
	parts := strings.Split(filepath.Base(filename), "_")
	if len(parts) < 3 {
		return Unknown
	}
	return strings.ToLower(stripExt(parts[2]))
}

// ParseRavdessLabel maps the emotion field of a RAVDESS name such as
// "03-01-05-01-02-01-12.wav".
func ParseRavdessLabel(filename string) string {
	parts := strings.Split(filepath.Base(filename), "-")
	if len(parts) < 3 {
		return Unknown
	}
	if label, ok := ravdessLabels[stripExt(parts[2])]; ok {
		return label
	}
	return Unknown
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
