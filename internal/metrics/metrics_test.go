package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/csvload/internal/types"
)

func TestObserveFile(t *testing.T) {
	m := New()

	m.ObserveFile("empleados", FileLoaded, 10, 1, &types.LoadOutcome{Inserted: 7, Modified: 1, Duplicates: 1}, 2*time.Second)
	m.ObserveFile("empleados", FileFailed, 4, 0, nil, time.Second)
	m.ObserveWriteErrors("empleados", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("empleados", FileLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesTotal.WithLabelValues("empleados", FileFailed)))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.rowsTotal.WithLabelValues("empleados", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsTotal.WithLabelValues("empleados", "error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("empleados", "inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("empleados", "duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("empleados", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fileDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.SetRunResult(true, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "textfile", "csvload.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "csvload_last_run_success 1")
	assert.Contains(t, string(content), "# TYPE csvload_last_run_timestamp_seconds gauge")
}
