package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
}

func TestDiscoverInputFilesSorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "nominas.csv"))
	touch(t, filepath.Join(dir, "contratos.csv"))
	touch(t, filepath.Join(dir, "notas.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "viejo.csv"), 0o755))

	files, err := NewFileManager(dir, "").DiscoverInputFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "contratos.csv"),
		filepath.Join(dir, "nominas.csv"),
	}, files)
}

func TestDiscoverInputFilesBadPattern(t *testing.T) {
	_, err := NewFileManager(t.TempDir(), "").DiscoverInputFiles("[")
	assert.Error(t, err)
}

func TestArchiveInputFile(t *testing.T) {
	input := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	file := filepath.Join(input, "empleados.csv")
	touch(t, file)

	fm := NewFileManager(input, archive)
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

	archived, err := fm.ArchiveInputFile(file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "2024", "03", "09", "empleados.csv"), archived)
	assert.FileExists(t, archived)
	assert.NoFileExists(t, file)
}

func TestArchiveKeepsEarlierFileWithSameName(t *testing.T) {
	input := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	file := filepath.Join(input, "nominas.csv")

	fm := NewFileManager(input, archive)
	fm.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

	var archived []string
	for i, content := range []string{"enero\n", "febrero\n", "marzo\n"} {
		require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
		path, err := fm.ArchiveInputFile(file)
		require.NoError(t, err, "archive %d", i)
		archived = append(archived, path)
	}

	assert.Equal(t, []string{
		filepath.Join(archive, "nominas.csv"),
		filepath.Join(archive, "nominas_20240309_100000.csv"),
		filepath.Join(archive, "nominas_20240309_100000_2.csv"),
	}, archived)
	for i, want := range []string{"enero\n", "febrero\n", "marzo\n"} {
		content, err := os.ReadFile(archived[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(content))
	}
}

func TestArchiveDisabled(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empleados.csv")
	touch(t, file)

	archived, err := NewFileManager(filepath.Dir(file), "").ArchiveInputFile(file)
	require.NoError(t, err)
	assert.Equal(t, file, archived)
	assert.FileExists(t, file)
}

func TestWriteSummaryLogListsEveryError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	start := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		RunID:     "0f8fad5b-d9cb-469f-a165-70867728950e",
		StartTime: start,
		EndTime:   start.Add(3 * time.Second),
		Files: []FileSummary{
			{InputFile: "empleados.csv", Collection: "empleados", Status: "loaded", Inserted: 9,
				Errors: []string{"line 2: a", "line 3: b", "line 4: c", "line 5: d", "line 6: e", "line 7: f"}},
			{InputFile: "nominas.csv", Collection: "nominas", Status: "failed", Failure: "missing required fields: _id"},
		},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etl_summary_20240309_100000_0f8fad5b.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Duration:       3s")
	assert.Contains(t, text, "Errors (6):")
	assert.Contains(t, text, "- line 7: f")
	assert.Contains(t, text, "Failure:      missing required fields: _id")
	assert.Contains(t, text, "Failed:         1")
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.csv")
	touch(t, file)

	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}
