package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Output formats
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// SQLiteTable is the table written by SQLiteSink
const SQLiteTable = "features"

// Sink persists a feature table
type Sink interface {
	Write(ctx context.Context, table *Table) error
	Path() string
}

// NewSink returns the sink for format writing to path
func NewSink(format, path string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, "":
		return &CSVSink{path: path}, nil
	case FormatSQLite, "sqlite3", "db":
		return &SQLiteSink{path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// CSVSink overwrites a CSV file with a header row followed by one row per
// sample
type CSVSink struct {
	path string
}

// NewCSVSink creates a CSV sink
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path implements Sink
func (s *CSVSink) Path() string { return s.path }

// Write implements Sink
func (s *CSVSink) Write(ctx context.Context, table *Table) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, table.Dimension+1)
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range row.Features {
			record[i] = formatFloat(v)
		}
		record[table.Dimension] = row.Label
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return f.Close()
}

// SQLiteSink replaces the features table of a SQLite database
type SQLiteSink struct {
	path string
}

// NewSQLiteSink creates a SQLite sink
func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

// Path implements Sink
func (s *SQLiteSink) Path() string { return s.path }

// Write implements Sink. The table is dropped, recreated and filled in a
// single transaction.
func (s *SQLiteSink) Write(ctx context.Context, table *Table) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	columns := table.Columns()
	quoted := make([]string, len(columns))
	defs := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		if i < table.Dimension {
			defs[i] = quoted[i] + " REAL NOT NULL"
		} else {
			defs[i] = quoted[i] + " TEXT NOT NULL"
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+SQLiteTable); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", SQLiteTable, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", SQLiteTable, strings.Join(quoted, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, row := range table.Rows {
		for i, v := range row.Features {
			args[i] = v
		}
		args[table.Dimension] = row.Label
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", row.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
