// Package transport lists, reads and relocates report files on the remote drop directory.
package transport

import (
	"fmt"
	"strings"

	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
)

const (
	TypeFTP   = "ftp"
	TypeS3    = "s3"
	TypeLocal = "local"
)

// New creates the transport configured for a pipeline source.
//
// Parameters:
//   - id: The pipeline name, used in log fields.
//   - src: The source configuration, with defaults applied and validated.
//
// Returns:
//   - The transport, or an error if the source type is unknown or its client cannot be created.
func New(id string, src *config.SourceConfig) (core.Transport, error) {
	switch strings.ToLower(src.Type) {
	case TypeFTP:
		return NewFTP(id, *src.FTP)
	case TypeS3:
		return NewS3(id, *src.S3)
	case TypeLocal:
		return NewLocalDir(id, *src.LocalDir), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}
}
