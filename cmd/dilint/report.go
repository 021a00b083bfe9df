package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// stagedFile is what reportWriter needs from the file it stages a report in.
type stagedFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// reportWriter places the construction order report on disk. Each field is
// one file system call, so tests can fail any step.
type reportWriter struct {
	create func(dir, pattern string) (stagedFile, error)
	chmod  func(name string, mode os.FileMode) error
	rename func(from, to string) error
	remove func(name string) error
}

var reports = reportWriter{
	create: func(dir, pattern string) (stagedFile, error) { return os.CreateTemp(dir, pattern) },
	chmod:  os.Chmod,
	rename: os.Rename,
	remove: os.Remove,
}

// write stages data in a hidden file beside path and renames it over path
// once it is complete and has mode perm. The staged file is removed when
// any later step fails.
func (w reportWriter) write(path string, data []byte, perm os.FileMode) error {
	f, err := w.create(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	staged := f.Name()
	if err := w.finish(f, data, perm); err != nil {
		_ = w.remove(staged)
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.rename(staged, path); err != nil {
		_ = w.remove(staged)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (w reportWriter) finish(f stagedFile, data []byte, perm os.FileMode) error {
	_, werr := f.Write(data)
	if err := errors.Join(werr, f.Close()); err != nil {
		return err
	}
	return w.chmod(f.Name(), perm)
}
