package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/RyanBlaney/speech-emotion/pkg/corpus"
)

// Task is one file to featurise together with its label
type Task struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Label string `json:"label"`
}

// DirectorySource walks root recursively and labels every file whose
// extension is in extensions using resolver. Matching is case-insensitive.
func DirectorySource(root string, extensions []string, resolver corpus.Resolver) ([]Task, error) {
	if resolver == nil {
		resolver = corpus.RawResolver{}
	}
	if len(extensions) == 0 {
		extensions = []string{".wav"}
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", root)
	}

	var tasks []Task
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		tasks = append(tasks, Task{
			Index: len(tasks),
			Path:  path,
			Label: resolver.Resolve(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return tasks, nil
}

// Metadata column names
const (
	ColumnPath    = "path"
	ColumnEmotion = "emotion"
)

// MetadataSource reads a CSV file with at least "path" and "emotion"
// columns. Relative paths are resolved against baseDir when it is set and
// are otherwise left relative to the working directory.
func MetadataSource(csvPath, baseDir string) ([]Task, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	return ReadMetadata(f, baseDir)
}

// ReadMetadata parses metadata rows from r
func ReadMetadata(r io.Reader, baseDir string) ([]Task, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("metadata is empty")
		}
		return nil, fmt.Errorf("failed to read metadata header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	pathCol := slices.Index(header, ColumnPath)
	labelCol := slices.Index(header, ColumnEmotion)
	if pathCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("metadata must have %q and %q columns, got %v", ColumnPath, ColumnEmotion, header)
	}

	var tasks []Task
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("metadata line %d: %w", line, err)
		}
		if len(record) <= max(pathCol, labelCol) {
			return nil, fmt.Errorf("metadata line %d has %d fields", line, len(record))
		}

		path := strings.TrimSpace(record[pathCol])
		if path == "" {
			continue
		}
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		tasks = append(tasks, Task{
			Index: len(tasks),
			Path:  path,
			Label: strings.TrimSpace(record[labelCol]),
		})
	}
	return tasks, nil
}
