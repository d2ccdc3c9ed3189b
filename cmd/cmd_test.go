package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace writes a main config pointing at fresh directories and returns
// the input and configs directories.
func workspace(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "raw-data")
	configs := filepath.Join(root, "configs")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.MkdirAll(configs, 0o755))

	main := strings.Join([]string{
		"input_dir: " + input,
		"configs_dir: " + configs,
		"archive_dir: " + filepath.Join(root, "processed"),
		"log_level: silent",
	}, "\n")
	cfgPath := filepath.Join(root, "etl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(main), 0o644))

	old := cfgFile
	cfgFile = cfgPath
	t.Cleanup(func() { cfgFile = old })

	return input, configs
}

func TestValidateReportsProblems(t *testing.T) {
	_, configs := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(configs, "nominas.yaml"),
		[]byte("collection: nominas\nload:\n  strategy: merge\n"), 0o644))

	var out, logs bytes.Buffer
	err := runValidate(&out, &logs)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "field 'load.strategy'")
	assert.Contains(t, out.String(), "1 collection configuration(s): 1 error(s), 0 warning(s)")
}

func TestValidateClean(t *testing.T) {
	workspace(t)

	var out, logs bytes.Buffer
	require.NoError(t, runValidate(&out, &logs))
	assert.Contains(t, out.String(), "No validation errors.")
}

func TestInspectPrintsDocuments(t *testing.T) {
	input, _ := workspace(t)
	file := filepath.Join(input, "empleados.csv")
	require.NoError(t, os.WriteFile(file, []byte("cedula,nombre,cargo.titulo\n1,Ana,Analista\n2,Luis,Gerente\n"), 0o644))

	var out, logs bytes.Buffer
	require.NoError(t, runInspect(file, &out, &logs))

	text := out.String()
	assert.Contains(t, text, "-> empleados: 2 rows, 2 documents, 0 errors")
	assert.Contains(t, text, `"nombre":"Ana"`)
	assert.Contains(t, text, `"cargo":{"titulo":"Gerente"}`)
	assert.FileExists(t, file, "inspect never archives")
}

func TestRunDryRun(t *testing.T) {
	input, _ := workspace(t)
	file := filepath.Join(input, "empleados.csv")
	require.NoError(t, os.WriteFile(file, []byte("cedula,nombre\n1,Ana\n"), 0o644))

	dryRun = true
	t.Cleanup(func() { dryRun = false })

	var out, logs bytes.Buffer
	require.NoError(t, runLoad(context.Background(), &out, &logs))
	assert.Contains(t, out.String(), "empleados.csv -> empleados: insert, inserted 1")
	assert.Contains(t, out.String(), "Result: SUCCESS")
	assert.FileExists(t, file)
}

func TestRunWithoutFilesFails(t *testing.T) {
	workspace(t)

	dryRun = true
	t.Cleanup(func() { dryRun = false })

	var out, logs bytes.Buffer
	err := runLoad(context.Background(), &out, &logs)
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out.String(), "no CSV files found")
}

func TestCleanRequiresConfirmation(t *testing.T) {
	var out, logs bytes.Buffer
	err := runClean(context.Background(), "nominas", &out, &logs)
	assert.ErrorContains(t, err, "without --yes")
}
