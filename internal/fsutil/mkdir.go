// Package fsutil creates the directories stagehand keeps its state in.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Result reports what EnsureDirectory did.
type Result int

const (
	AlreadyExisted Result = iota
	Created
)

func (r Result) String() string {
	switch r {
	case AlreadyExisted:
		return "already existed"
	case Created:
		return "created"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// FS is the filesystem EnsureDirectory works on.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	Mkdir(path string, mode fs.FileMode) error
}

type osFS struct{}

func (osFS) Stat(path string) (fs.FileInfo, error)     { return os.Stat(path) }
func (osFS) Mkdir(path string, mode fs.FileMode) error { return os.Mkdir(path, mode) }

// OS is the FS backed by the operating system.
var OS FS = osFS{}

// PathConflictError is returned when a component of the requested path
// exists but is not a directory.
type PathConflictError struct {
	Path    string
	Blocker string
}

// Error implements the error interface.
func (e PathConflictError) Error() string {
	return fmt.Sprintf("cannot create %s: %s is not a directory", e.Path, e.Blocker)
}

// ErrEmptyPath is returned when asked to create a directory with no name.
var ErrEmptyPath = errors.New("empty directory path")

// EnsureDirectory creates path and any missing parents with mode on the
// operating system's filesystem.
func EnsureDirectory(path string, mode fs.FileMode) (Result, error) {
	return EnsureDirectoryFS(OS, path, mode)
}

// EnsureDirectoryFS creates path and any missing parents with mode. If
// path already exists, whatever it is, nothing is changed. Directories
// created before a failure are left in place.
func EnsureDirectoryFS(fsys FS, path string, mode fs.FileMode) (Result, error) {
	if path == "" {
		return AlreadyExisted, ErrEmptyPath
	}
	if _, err := fsys.Stat(path); err == nil {
		return AlreadyExisted, nil
	}

	path = filepath.Clean(path)
	current := ""
	if filepath.IsAbs(path) {
		current = string(filepath.Separator)
	}
	for _, component := range strings.Split(path, string(filepath.Separator)) {
		if component == "" {
			continue
		}
		current = filepath.Join(current, component)

		info, err := fsys.Stat(current)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return AlreadyExisted, PathConflictError{Path: path, Blocker: current}
		case !errors.Is(err, fs.ErrNotExist):
			return AlreadyExisted, err
		}

		if err := fsys.Mkdir(current, mode); err != nil {
			return AlreadyExisted, fmt.Errorf("cannot create %s: %w", current, err)
		}
		slog.Debug("created directory", "path", current, "mode", mode)
	}
	return Created, nil
}

// Resolver looks up string parameters by name.
type Resolver interface {
	String(key any) (string, error)
}

// EnsureDirectories resolves each named parameter and ensures the
// directory it names exists. It stops at the first error.
func EnsureDirectories(r Resolver, mode fs.FileMode, names ...string) (map[string]Result, error) {
	results := make(map[string]Result, len(names))
	for _, name := range names {
		path, err := r.String(name)
		if err != nil {
			return results, err
		}
		result, err := EnsureDirectory(path, mode)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		results[name] = result
	}
	return results, nil
}
