package transport

import (
	"context"

	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/fsx"
)

// Fetch reads a remote file completely. Open and read failures are KindTransientIO errors.
func Fetch(ctx context.Context, session core.Session, entry core.Entry) (*core.RawFile, error) {
	rc, err := session.Open(ctx, entry.Path)
	if err != nil {
		return nil, core.NewError(core.KindTransientIO, "open", entry.Path, err)
	}

	content, err := fsx.ReadAll(rc)
	if err != nil {
		return nil, core.NewError(core.KindTransientIO, "read", entry.Path, err)
	}

	return &core.RawFile{Name: entry.Name, Path: entry.Path, Content: content}, nil
}
