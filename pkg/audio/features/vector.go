package features

import (
	"fmt"
	"math"
	"strconv"
)

// Vector is the time-averaged feature summary of one clip
type Vector []float64

// Validate reports ErrInvalidVector if any entry is NaN or infinite
func (v Vector) Validate() error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: index %d is %v", ErrInvalidVector, i, x)
		}
	}
	return nil
}

// CheckDimension verifies the vector length
func (v Vector) CheckDimension(dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), dim)
	}
	return nil
}

// Clone returns a copy of v
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Segment names a contiguous block of the vector
type Segment struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Width  int    `json:"width"`
}

// Layout returns the order and width of each feature block
func Layout(cfg *Config) []Segment {
	widths := []struct {
		name  string
		width int
	}{
		{"zcr", 1},
		{"chroma", cfg.NChroma},
		{"mfcc", cfg.NMFCC},
		{"rms", 1},
		{"mel", cfg.NMels},
		{"contrast", cfg.ContrastBands + 1},
		{"bandwidth", 1},
		{"rolloff", 1},
	}

	segments := make([]Segment, 0, len(widths))
	offset := 0
	for _, w := range widths {
		segments = append(segments, Segment{Name: w.name, Offset: offset, Width: w.width})
		offset += w.width
	}
	return segments
}

// Slice returns the block of v described by seg
func (v Vector) Slice(seg Segment) []float64 {
	if seg.Offset+seg.Width > len(v) {
		return nil
	}
	return v[seg.Offset : seg.Offset+seg.Width]
}

// ColumnNames returns the persisted feature column headers "1".."dim"
func ColumnNames(dim int) []string {
	names := make([]string, dim)
	for i := range names {
		names[i] = strconv.Itoa(i + 1)
	}
	return names
}
