package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArchivePath(t *testing.T) {
	tests := []struct {
		name        string
		rootDir     string
		terminalDir string
		file        string
		expected    string
	}{
		{
			name:        "processed",
			rootDir:     "/public_html/tdi",
			terminalDir: "Processed",
			file:        "dev1.json",
			expected:    "/public_html/tdi/Processed/dev1.json",
		},
		{
			name:        "error with trailing slash root",
			rootDir:     "/tdi/",
			terminalDir: "Error",
			file:        "dev2.json",
			expected:    "/tdi/Error/dev2.json",
		},
		{
			name:        "file given as full path",
			rootDir:     "/tdi",
			terminalDir: "Processed",
			file:        "/tdi/dev3.json",
			expected:    "/tdi/Processed/dev3.json",
		},
		{
			name:        "relative root",
			rootDir:     "drop",
			terminalDir: "Processed",
			file:        "dev4.json",
			expected:    "drop/Processed/dev4.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ArchivePath(tt.rootDir, tt.terminalDir, tt.file))
		})
	}
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "/tdi/dev1.json", SourcePath("/tdi", "dev1.json"))
	assert.Equal(t, "reports/dev1.json", SourcePath("reports/", "dev1.json"))
}

func TestApplyDelay(t *testing.T) {
	start := time.Now()
	assert.NoError(t, ApplyDelay(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.NoError(t, ApplyDelay(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ApplyDelay(ctx, time.Hour), context.Canceled)
}
