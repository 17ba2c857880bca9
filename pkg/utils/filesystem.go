// Package utils provides filesystem helpers shared by the pipeline steps
package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Exists checks if a path exists
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirectoryExists checks if a directory exists
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDirectory ensures a directory exists
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// RemoveReadOnly removes path and everything below it. Entries without the
// owner write bit (read-only files checked out on Windows, git pack files)
// are made writable first. A missing path is not an error.
func RemoveReadOnly(path string) error {
	if !Exists(path) {
		return nil
	}

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().Perm()&0200 == 0 {
			if err := os.Chmod(p, info.Mode().Perm()|0200); err != nil {
				return fmt.Errorf("failed to make %s writable: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return os.RemoveAll(path)
}

// ResetDirectory removes a directory (read-only aware) and recreates it empty
func ResetDirectory(path string) error {
	if err := RemoveReadOnly(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	if err := EnsureDirectory(path); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, keeping the original file mode when the file already exists
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// FindFiles finds files under root whose base name ends with suffix
func FindFiles(root string, suffix string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			matches = append(matches, path)
		}
		return nil
	})

	return matches, err
}

// AbsPath returns the absolute form of path, or path unchanged if it cannot
// be resolved
func AbsPath(path string) string {
	if path == "" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
