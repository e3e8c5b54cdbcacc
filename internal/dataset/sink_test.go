package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable(3)
	require.NoError(t, table.Append(Row{Path: "a.wav", Features: features.Vector{0.5, -1, 2.25}, Label: "happy"}))
	require.NoError(t, table.Append(Row{Path: "b.wav", Features: features.Vector{1e-7, 0, 3}, Label: "sad"}))
	return table
}

// TestTableRejectsWidth checks the row width invariant
func TestTableRejectsWidth(t *testing.T) {
	table := NewTable(3)
	err := table.Append(Row{Path: "x.wav", Features: features.Vector{1, 2}, Label: "x"})
	assert.ErrorIs(t, err, features.ErrDimension)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"1", "2", "3", "emotion"}, table.Columns())
}

// TestCSVSink checks the header and overwrite behaviour
func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "features.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale,content\n1,2\n3,4\n5,6\n"), 0o644))

	sink, err := NewSink("CSV", path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), sampleTable(t)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "2", "3", "emotion"}, records[0])
	assert.Equal(t, []string{"0.5", "-1", "2.25", "happy"}, records[1])
	assert.Equal(t, []string{"1e-07", "0", "3", "sad"}, records[2])
}

// TestSQLiteSink checks that the table is replaced on every write
func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.db")
	sink := NewSQLiteSink(path)

	first := NewTable(2)
	require.NoError(t, first.Append(Row{Features: features.Vector{9, 9}, Label: "old"}))
	require.NoError(t, sink.Write(context.Background(), first))
	require.NoError(t, sink.Write(context.Background(), sampleTable(t)))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM features").Scan(&count))
	assert.Equal(t, 2, count)

	var c3 float64
	var label string
	require.NoError(t, db.QueryRow(`SELECT "3", emotion FROM features WHERE emotion = 'happy'`).Scan(&c3, &label))
	assert.Equal(t, 2.25, c3)
	assert.Equal(t, "happy", label)
}

// TestNewSink checks format selection
func TestNewSink(t *testing.T) {
	s, err := NewSink("sqlite", "x.db")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSink{}, s)
	assert.Equal(t, "x.db", s.Path())

	s, err = NewSink("", "x.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, s)

	_, err = NewSink("parquet", "x.parquet")
	assert.Error(t, err)

	_, err = NewSink("csv", "")
	assert.Error(t, err)
}
