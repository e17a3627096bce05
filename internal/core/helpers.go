package core

import (
	"context"
	"path"
	"time"
)

// ApplyDelay blocks for the given delay or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was interrupted.
func ApplyDelay(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop() // Ensure the timer is stopped to release resources

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ArchivePath computes the destination of a file moved into a terminal directory that is a
// sibling of the files in rootDir, e.g. ("/tdi", "Processed", "dev1.json") -> "/tdi/Processed/dev1.json".
func ArchivePath(rootDir string, terminalDir string, name string) string {
	return path.Join(rootDir, terminalDir, path.Base(name))
}

// SourcePath joins the source directory and a listed entry name.
func SourcePath(rootDir string, name string) string {
	return path.Join(rootDir, name)
}
