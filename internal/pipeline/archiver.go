package pipeline

import (
	"context"

	"golang.beyond.io/tdi-ingest/internal/core"
)

// archiver relocates handled files into the terminal directories under the source root.
type archiver struct {
	root         string
	processedDir string
	errorDir     string
}

// EnsureDirs creates the terminal directories that are not among the listed directories.
func (a *archiver) EnsureDirs(ctx context.Context, s core.Session, existing []core.Entry) error {
	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		present[e.Name] = true
	}

	for _, dir := range []string{a.processedDir, a.errorDir} {
		if present[dir] {
			continue
		}
		p := core.SourcePath(a.root, dir)
		if err := s.MakeDir(ctx, p); err != nil {
			return core.NewError(core.KindArchive, "mkdir", p, err)
		}
	}

	return nil
}

// Move renames the file into the terminal directory for the outcome and returns its new path.
func (a *archiver) Move(ctx context.Context, s core.Session, entry core.Entry, outcome core.Outcome) (string, error) {
	dir := a.errorDir
	if outcome == core.OutcomeProcessed {
		dir = a.processedDir
	}

	dst := core.ArchivePath(a.root, dir, entry.Name)
	if err := s.Rename(ctx, entry.Path, dst); err != nil {
		return "", core.NewError(core.KindArchive, "rename", entry.Path, err)
	}

	return dst, nil
}
