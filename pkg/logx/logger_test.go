package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_FileLogging(t *testing.T) {
	tempDir := t.TempDir()
	logFile := "tdi.log"

	err := Initialize(&LoggingConfig{
		Level:       "info",
		FileLogging: true,
		Directory:   tempDir,
		Filename:    logFile,
		MaxSize:     1,
		MaxBackups:  1,
		MaxAge:      1,
		Compress:    false,
	})
	assert.NoError(t, err)

	logger := As()
	assert.NotNil(t, logger)
	logger.Info().Msg("Test info message")

	// Verify log file exists
	logFilePath := filepath.Join(tempDir, logFile)
	_, err = os.Stat(logFilePath)
	assert.NoError(t, err)
}

func TestInitialize_InvalidLogLevel(t *testing.T) {
	err := Initialize(&LoggingConfig{
		Level:          "invalid",
		ConsoleLogging: true,
	})
	assert.Error(t, err)
}

func TestInitialize_NilConfig(t *testing.T) {
	assert.Error(t, Initialize(nil))
}

func TestFor_TagsPipelineAndCycle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitializeWithWriters("debug", &buf))

	l := For("drop-a", "cycle-1")
	l.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"pipeline":"drop-a"`)
	assert.Contains(t, out, `"cycle_id":"cycle-1"`)
	assert.Contains(t, out, `"pid":`)
}

func TestExecutionTime(t *testing.T) {
	StartTimer()
	assert.NotEmpty(t, ExecutionTime())
}

func TestGetPid(t *testing.T) {
	pid := GetPid()
	assert.Equal(t, os.Getpid(), pid)
}
