package transport

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/fsx"
)

// localDirTransport serves a directory of the local file system as the drop directory.
// Remote paths are slash separated and map onto the local file system as-is.
type localDirTransport struct {
	id        string
	dirConfig config.LocalDirConfig
}

func (l *localDirTransport) Type() string {
	return TypeLocal
}

func (l *localDirTransport) Connect(ctx context.Context) (core.Session, error) {
	info, exists := fsx.PathExists(l.dirConfig.Path)
	if !exists || info == nil || !info.IsDir() {
		return nil, core.NewError(core.KindConnection, "stat", l.dirConfig.Path, os.ErrNotExist)
	}
	return &localDirSession{dirConfig: l.dirConfig}, nil
}

// NewLocalDir creates a transport over a local directory.
func NewLocalDir(id string, dirConfig config.LocalDirConfig) core.Transport {
	if dirConfig.Mode == 0 {
		dirConfig.Mode = 0o755
	}
	return &localDirTransport{id: id, dirConfig: dirConfig}
}

type localDirSession struct {
	dirConfig config.LocalDirConfig
}

func (s *localDirSession) Info() string {
	return "file://" + s.dirConfig.Path
}

func (s *localDirSession) List(ctx context.Context, dir string) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		return nil, err
	}

	entries := make([]core.Entry, 0, len(items))
	for _, item := range items {
		info, err := item.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		if !item.IsDir() && !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, core.Entry{
			Name:    item.Name(),
			Path:    path.Join(dir, item.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   item.IsDir(),
		})
	}

	return entries, nil
}

func (s *localDirSession) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(filepath.FromSlash(p))
}

func (s *localDirSession) Rename(ctx context.Context, src string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fsx.Move(filepath.FromSlash(src), filepath.FromSlash(dst), 0o644)
}

func (s *localDirSession) MakeDir(ctx context.Context, dir string) error {
	return fsx.EnsureDir(filepath.FromSlash(dir), s.dirConfig.Mode)
}

func (s *localDirSession) Close() error {
	return nil
}
