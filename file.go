package reconcile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrModified = errors.New("file modified since it was read")
	ErrWrite    = errors.New("unable to write file")
)

// File reads and writes a whole ledger file. A read returns the time it
// completed, which must be handed back to the following write: the write is
// refused when the file was modified after that time.
//
// The check compares the wall clock with the file modification time, whose
// resolution depends on the filesystem. Changes made within the same
// resolution window as the read are not detected.
type File struct {
	Path string

	// runs after the read and before the modification check
	beforeWrite func()
}

// NewFile returns a File for the ledger at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// ReadLines returns the lines of the file, each with its terminator, and the
// time of the read. A missing file reads as no lines.
func (f *File) ReadLines() (lines []string, readTime time.Time, err error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Now(), nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return splitLines(string(data)), time.Now(), nil
}

// WriteLines replaces the file content with lines unless the file changed
// after readTime. The content goes to a sibling ".tmp" file first which is
// then renamed over the ledger, so readers never see a partial file.
func (f *File) WriteLines(lines []string, readTime time.Time) error {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	path := f.Path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	perm := fs.FileMode(0o644)
	fi, err := os.Stat(path)
	switch {
	case err == nil:
		if fi.ModTime().After(readTime) {
			return fmt.Errorf("%s: %w", f.Path, ErrModified)
		}
		perm = fi.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w: %w", f.Path, ErrWrite, err)
	}

	tmp := path + ".tmp"
	if err := writeTemp(tmp, lines, perm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%s: %w: %w", f.Path, ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%s: %w: %w", f.Path, ErrWrite, err)
	}
	return nil
}

func writeTemp(name string, lines []string, perm fs.FileMode) error {
	out, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			out.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// splitLines cuts s after every "\n", keeping the terminators so that joining
// the result gives s back.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
