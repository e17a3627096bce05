package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

func PathExists(filePath string) (os.FileInfo, bool) {
	s, err := os.Stat(filePath)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return s, false
	}

	return s, true
}

// EnsureDir creates dir (and parents) unless it already exists as a directory.
func EnsureDir(dir string, perm os.FileMode) error {
	if info, exists := PathExists(dir); exists && info != nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}

	return os.MkdirAll(dir, perm)
}

func Copy(src string, dst string, perm os.FileMode) error {
	inputFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("couldn't open source file: %w", err)
	}
	defer CloseFile(inputFile)

	outputFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("couldn't open destination file: %w", err)
	}
	defer CloseFile(outputFile)

	if _, err = io.Copy(outputFile, inputFile); err != nil {
		return fmt.Errorf("couldn't copy to destination from source: %w", err)
	}

	// Flush the output file to ensure all data is written
	if err = outputFile.Sync(); err != nil {
		return fmt.Errorf("failed to flush destination file: %w", err)
	}

	return nil
}

// Move renames src to dst. When both live on different devices the rename is
// replaced by a copy followed by removal of src.
func Move(src string, dst string, perm os.FileMode) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return fmt.Errorf("couldn't rename %s to %s: %w", src, filepath.Base(dst), err)
	}

	if err = Copy(src, dst, perm); err != nil {
		return err
	}

	if err = os.Remove(src); err != nil {
		return fmt.Errorf("couldn't remove source file: %w", err)
	}

	return nil
}

// ReadAll drains rc and closes it. A close error is reported only when the read succeeded.
func ReadAll(rc io.ReadCloser) ([]byte, error) {
	b, err := io.ReadAll(rc)
	cerr := rc.Close()
	if err != nil {
		return nil, err
	}

	return b, cerr
}

func CloseFile(file *os.File) {
	if file == nil {
		return
	}

	if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		fmt.Printf("warning: failed to close file: %v\n", err)
	}
}
