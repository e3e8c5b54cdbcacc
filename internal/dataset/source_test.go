package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-emotion/pkg/corpus"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))
}

// TestDirectorySource checks the recursive walk and extension filter
func TestDirectorySource(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "tess", "OAF_back_happy.wav"))
	touch(t, filepath.Join(root, "tess", "OAF_back_sad.WAV"))
	touch(t, filepath.Join(root, "ravdess", "Actor_01", "03-01-04-01-02-01-12.wav"))
	touch(t, filepath.Join(root, "ravdess", "notes.txt"))
	touch(t, filepath.Join(root, "savee", "DC_a03.mp3"))

	tasks, err := DirectorySource(root, nil, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	labels := map[string]string{}
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		labels[filepath.Base(task.Path)] = task.Label
	}
	assert.Equal(t, "happy", labels["OAF_back_happy.wav"])
	assert.Equal(t, "sad", labels["OAF_back_sad.WAV"])
	assert.Equal(t, "04", labels["03-01-04-01-02-01-12.wav"])

	tasks, err = DirectorySource(root, []string{"mp3", ".WAV"}, corpus.MappedResolver{})
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for _, task := range tasks {
		if filepath.Base(task.Path) == "DC_a03.mp3" {
			assert.Equal(t, "angry", task.Label)
		}
	}
}

// TestDirectorySourceErrors checks invalid roots
func TestDirectorySourceErrors(t *testing.T) {
	_, err := DirectorySource(filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.wav")
	touch(t, file)
	_, err = DirectorySource(file, nil, nil)
	assert.Error(t, err)
}

// TestReadMetadata checks column lookup and path resolution
func TestReadMetadata(t *testing.T) {
	input := "\ufeffEmotion,Path,speaker\n" +
		"angry,clips/a.wav,1\n" +
		"sad,/abs/b.wav,2\n" +
		",,3\n" +
		"happy, c.wav ,4\n"

	tasks, err := ReadMetadata(strings.NewReader(input), "/data")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, Task{Index: 0, Path: filepath.Join("/data", "clips/a.wav"), Label: "angry"}, tasks[0])
	assert.Equal(t, Task{Index: 1, Path: "/abs/b.wav", Label: "sad"}, tasks[1])
	assert.Equal(t, Task{Index: 2, Path: filepath.Join("/data", "c.wav"), Label: "happy"}, tasks[2])

	// without a base directory paths stay relative to the working directory
	tasks, err = ReadMetadata(strings.NewReader("path,emotion\naudioFiles/a.wav,sad\n"), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "audioFiles/a.wav", tasks[0].Path)
}

// TestReadMetadataErrors checks malformed metadata
func TestReadMetadataErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing emotion", "path,label\na.wav,sad\n"},
		{"missing path", "file,emotion\na.wav,sad\n"},
		{"short row", "path,speaker,emotion\na.wav\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMetadata(strings.NewReader(tt.input), "")
			assert.Error(t, err)
		})
	}
}

// TestMetadataSource checks reading from disk
func TestMetadataSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.csv")
	require.NoError(t, os.WriteFile(path, []byte("path,emotion\nx.wav,neutral\n"), 0o644))

	tasks, err := MetadataSource(path, dir)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, filepath.Join(dir, "x.wav"), tasks[0].Path)

	_, err = MetadataSource(filepath.Join(dir, "nope.csv"), dir)
	assert.Error(t, err)
}
