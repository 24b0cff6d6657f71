package adapters

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// FilesystemAdapter manages site document roots and files inside them.
type FilesystemAdapter struct{}

// NewFilesystemAdapter constructs a filesystem adapter.
func NewFilesystemAdapter() *FilesystemAdapter {
	return &FilesystemAdapter{}
}

// CreateDir creates a directory (and missing parents) with the given mode.
func (a *FilesystemAdapter) CreateDir(_ context.Context, path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// DeleteDir removes a directory tree recursively.
func (a *FilesystemAdapter) DeleteDir(_ context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete directory %s: %w", path, err)
	}
	return nil
}

// WriteFile writes content to a file with the given mode.
func (a *FilesystemAdapter) WriteFile(_ context.Context, path string, content []byte, mode fs.FileMode) error {
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a file.
func (a *FilesystemAdapter) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path) //nolint:gosec // Paths come from adapter-owned call sites.
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return content, nil
}

// Exists reports whether a path exists.
func (a *FilesystemAdapter) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// DirEmpty reports whether a directory contains no entries.
func (a *FilesystemAdapter) DirEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("read directory %s: %w", path, err)
	}
	return len(entries) == 0, nil
}

// ListDirs returns the names of subdirectories of path. A missing path
// yields an empty list rather than an error, so listing works before the
// web root has ever been populated.
func (a *FilesystemAdapter) ListDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// SetOwnerAndMode walks the tree applying ownership and permissions, with
// separate modes for directories and files. An empty owner skips the chown,
// which keeps the operation usable in unprivileged runs.
func (a *FilesystemAdapter) SetOwnerAndMode(_ context.Context, path, owner string, dirMode, fileMode fs.FileMode) error {
	uid, gid := -1, -1
	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return fmt.Errorf("lookup owner %s: %w", owner, err)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return fmt.Errorf("parse uid for %s: %w", owner, err)
		}
		if gid, err = strconv.Atoi(u.Gid); err != nil {
			return fmt.Errorf("parse gid for %s: %w", owner, err)
		}
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		mode := fileMode
		if d.IsDir() {
			mode = dirMode
		}
		if err := os.Chmod(p, mode); err != nil {
			return fmt.Errorf("chmod %s: %w", p, err)
		}
		if uid >= 0 {
			if err := os.Chown(p, uid, gid); err != nil {
				return fmt.Errorf("chown %s: %w", p, err)
			}
		}
		return nil
	})
}
