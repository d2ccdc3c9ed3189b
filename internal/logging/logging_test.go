package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":  logrus.DebugLevel,
		"info":   logrus.InfoLevel,
		"warn":   logrus.WarnLevel,
		"error":  logrus.ErrorLevel,
		"silent": logrus.PanicLevel,
		"loud":   logrus.ErrorLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, Level(name), name)
	}
}

func TestNewJSONWithFile(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "etl.log")

	logger, closeLog, err := New(Options{Level: "info", Format: "json", File: logFile, Output: &buf})
	require.NoError(t, err)

	logger.WithField("collection", "empleados").Infof("loaded %d documents", 3)
	logger.Debugf("not shown")
	require.NoError(t, closeLog())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded 3 documents", entry["msg"])
	assert.Equal(t, "empleados", entry["collection"])

	written, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
}

func TestSilentLoggerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "silent", Output: &buf})
	require.NoError(t, err)

	logger.Errorf("hidden")
	assert.Empty(t, buf.String())
}

func TestLogrusSatisfiesLogger(t *testing.T) {
	var _ Logger = logrus.New()
	var _ Logger = Nop()
}
