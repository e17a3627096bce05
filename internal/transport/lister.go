package transport

import (
	"context"

	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/fsx"
)

// Lister enumerates candidate report files in the source directory.
type Lister struct {
	matcher *fsx.NameMatcher
}

// NewLister returns a Lister keeping regular files whose name matches one of the patterns.
func NewLister(patterns ...string) (*Lister, error) {
	m, err := fsx.NewNameMatcher(patterns...)
	if err != nil {
		return nil, err
	}
	return &Lister{matcher: m}, nil
}

// List returns the matching regular files of dir, in the order the session returned them,
// and the directories found next to them.
//
// Returns:
//   - files: Regular files whose name matches the configured patterns.
//   - dirs: Directories, e.g. existing Processed/ and Error/ directories.
//   - err: A KindListing error if the directory could not be listed.
func (l *Lister) List(ctx context.Context, session core.Session, dir string) (files []core.Entry, dirs []core.Entry, err error) {
	entries, err := session.List(ctx, dir)
	if err != nil {
		return nil, nil, core.NewError(core.KindListing, "list", dir, err)
	}

	for _, e := range entries {
		if e.Name == "." || e.Name == ".." || e.Name == "" {
			continue
		}
		if e.IsDir {
			dirs = append(dirs, e)
			continue
		}
		if l.matcher.Match(e.Name) {
			files = append(files, e)
		}
	}

	return files, dirs, nil
}
