package dataset

import (
	"fmt"

	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

// LabelColumn is the name of the trailing label column
const LabelColumn = "emotion"

// Row is one labelled sample
type Row struct {
	Path     string
	Features features.Vector
	Label    string
}

// Table is an ordered set of labelled samples of equal width
type Table struct {
	Dimension int
	Rows      []Row
}

// NewTable creates an empty table for vectors of length dim
func NewTable(dim int) *Table {
	return &Table{Dimension: dim}
}

// Append adds a row, rejecting vectors of the wrong width
func (t *Table) Append(row Row) error {
	if err := row.Features.CheckDimension(t.Dimension); err != nil {
		return fmt.Errorf("row %s: %w", row.Path, err)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Columns returns the header: "1".."N" followed by LabelColumn
func (t *Table) Columns() []string {
	return append(features.ColumnNames(t.Dimension), LabelColumn)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// LabelCounts returns the number of rows per label
func (t *Table) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range t.Rows {
		counts[r.Label]++
	}
	return counts
}
