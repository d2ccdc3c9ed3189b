package etl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ginjaninja78/csvload/internal/coerce"
	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/metrics"
	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/internal/types"
)

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newRunner(t *testing.T, inputDir string, configs ...*config.CollectionConfig) (*Runner, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return &Runner{
		Config:   &config.MainConfig{InputDir: inputDir},
		Registry: config.NewRegistry(configs...),
		Store:    mem,
	}, mem
}

func TestRunMissingInputDir(t *testing.T) {
	r, _ := newRunner(t, filepath.Join(t.TempDir(), "raw-data"))

	report, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrInputDirMissing)
	assert.Nil(t, report)
}

func TestRunNoFiles(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "leeme.txt", "not a csv")
	r, _ := newRunner(t, dir)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, MessageNoFiles, report.Message)
	assert.Empty(t, report.Files)
}

func TestRunContinuesAfterFailedFile(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "contratos.csv", "cargo,salario\nAnalista,100\nGerente,200\n")
	writeInput(t, dir, "empleados.csv", "nombre\nAna\n")
	writeInput(t, dir, "vacio.csv", "a,b\n")

	empleados := config.DefaultCollectionConfig("empleados")
	empleados.RequiredFields = []string{"cedula"}

	r, mem := newRunner(t, dir, empleados)
	r.Metrics = metrics.New()

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Files, 3)
	assert.False(t, report.Success)
	assert.Equal(t, []string{"contratos", "empleados", "vacio"}, report.CollectionNames())

	contratos := report.Collections["contratos"]
	assert.Equal(t, 2, contratos.Processed)
	assert.Empty(t, contratos.Error)
	assert.Len(t, mem.Documents("contratos"), 2)

	assert.Contains(t, report.Collections["empleados"].Error, "empleados.csv: missing required fields: cedula")
	assert.True(t, report.Files[2].NoData)

	series, err := testutil.GatherAndCount(r.Metrics.Registry(), "csvload_files_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series, "one series per collection and result")
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	reports := filepath.Join(t.TempDir(), "reports")
	metricsFile := filepath.Join(t.TempDir(), "csvload.prom")
	writeInput(t, dir, "empleados.csv", "cedula,nombre\n1,Ana\n2,Luis\n")

	r, mem := newRunner(t, dir)
	r.Config.ArchiveDir = archive
	r.Config.ReportDir = reports
	r.Config.MetricsFile = metricsFile

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Len(t, mem.Documents("empleados"), 2)

	assert.FileExists(t, filepath.Join(archive, "empleados.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "empleados.csv"))

	summaries, err := filepath.Glob(filepath.Join(reports, "etl_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "csvload_last_run_success 1")
}

func TestRunArchivesIntoDateSubdirs(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	writeInput(t, dir, "empleados.csv", "cedula\n1\n")

	r, _ := newRunner(t, dir)
	r.Config.ArchiveDir = archive
	r.Config.ArchiveDateSubdirs = true

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)

	archived, err := filepath.Glob(filepath.Join(archive, "*", "*", "*", "empleados.csv"))
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.NoFileExists(t, filepath.Join(archive, "empleados.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "empleados.csv"))
}

func TestRunDryRunKeepsInputs(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "empleados.csv", "cedula\n1\n")

	r, _ := newRunner(t, dir)
	r.Config.ArchiveDir = filepath.Join(t.TempDir(), "archive")
	r.DryRun = true

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.FileExists(t, filepath.Join(dir, "empleados.csv"))
}

func TestRunInputDirOverride(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "empleados.csv", "cedula\n1\n")

	r, mem := newRunner(t, filepath.Join(t.TempDir(), "missing"))
	r.InputDir = dir

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, mem.Documents("empleados"), 1)
}

func TestRunShippedPayrollConfigSkipsSamePeriod(t *testing.T) {
	nominas, err := config.LoadCollectionConfig(filepath.Join("..", "..", "configs", "nominas.yaml"), "")
	require.NoError(t, err)

	header := "_id,empleado_id,periodo.mes,periodo.año,estado,total_devengado,total_deducciones,neto_pagar," +
		"conceptos.codigo_concepto,conceptos.valor,novedades.codigo_novedad,novedades.dias\n"
	first := t.TempDir()
	writeInput(t, first, "nominas_01.csv", header+
		"65a1b2c3d4e5f60718293a01,65a1b2c3d4e5f60718293b01,3,2024, Pagada ,2600000,300000,2300000,C1,100,VAC,3\n"+
		"65a1b2c3d4e5f60718293a01,65a1b2c3d4e5f60718293b01,3,2024, Pagada ,2600000,300000,2300000,C2,200,,\n")

	second := t.TempDir()
	writeInput(t, second, "nominas_02.csv", header+
		"65a1b2c3d4e5f60718293a02,65a1b2c3d4e5f60718293b01,3,2024,Pagada,2600000,300000,2300000,C1,100,,\n"+
		"65a1b2c3d4e5f60718293a03,65a1b2c3d4e5f60718293b02,3,2024,Pagada,1800000,200000,1600000,C1,90,,\n")

	r, mem := newRunner(t, first, nominas)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.Equal(t, 1, report.Collections["nominas"].Processed)

	stored := mem.Documents("nominas")
	require.Len(t, stored, 1)
	conceptos, ok := types.Lookup(stored[0], "conceptos")
	require.True(t, ok)
	assert.Len(t, conceptos, 2)
	estado, _ := types.Lookup(stored[0], "estado")
	assert.Equal(t, "pagada", estado)
	deducciones, _ := types.Lookup(stored[0], "total_deducciones")
	assert.Equal(t, 300000.0, deducciones)
	neto, _ := types.Lookup(stored[0], "neto_pagar")
	assert.Equal(t, 2300000.0, neto)
	novedades, ok := types.Lookup(stored[0], "novedades")
	require.True(t, ok)
	assert.Equal(t, bson.A{bson.D{
		{Key: "codigo_novedad", Value: "VAC"},
		{Key: "dias", Value: 3.0},
		{Key: "descripcion", Value: ""},
		{Key: "valor", Value: nil},
	}}, novedades)

	r.InputDir = second
	report, err = r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Success)

	assert.Equal(t, "insert_ignore_duplicates", report.Files[0].Strategy)
	summary := report.Collections["nominas"]
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Duplicates, "same employee and period under a new _id")
	assert.Empty(t, summary.Errors)
	assert.Len(t, mem.Documents("nominas"), 2)
}

func TestPrintCapsDisplayedErrors(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("cedula,salario\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "%d,mal\n", i)
	}
	b.WriteString("9,900\n")
	writeInput(t, dir, "empleados.csv", b.String())

	lenient := false
	empleados := config.DefaultCollectionConfig("empleados")
	empleados.StrictMode = &lenient
	empleados.FieldTypes.Set("salario", coerce.Number)

	r, _ := newRunner(t, dir, empleados)
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Collections["empleados"].Errors, 8, "every error is retained")

	var out bytes.Buffer
	report.Print(&out, 5)
	text := out.String()

	assert.Contains(t, text, "empleados.csv -> empleados: insert, inserted 1, modified 0, duplicates 0, errors 8")
	assert.Contains(t, text, "- Errors: 8")
	assert.Equal(t, 5, strings.Count(text, "  * line"))
	assert.Contains(t, text, "... and 3 more")
	assert.Contains(t, text, "Result: SUCCESS")
}
