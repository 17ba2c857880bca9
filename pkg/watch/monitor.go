// Package watch reports build artifacts as they appear on disk
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/utils"
)

// Artifact is a file observed below the monitored root
type Artifact struct {
	Path string
	Size int64
}

// ArtifactMonitor watches an archive directory recursively and logs every
// file written into it. It never modifies the tree.
type ArtifactMonitor struct {
	watcher *fsnotify.Watcher
	logger  logger.Logger
	root    string

	mu    sync.RWMutex
	files map[string]int64
}

// NewArtifactMonitor creates the root if needed and starts watching it
func NewArtifactMonitor(root string, log logger.Logger) (*ArtifactMonitor, error) {
	if err := utils.EnsureDirectory(root); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	m := &ArtifactMonitor{
		watcher: watcher,
		logger:  log,
		root:    root,
		files:   make(map[string]int64),
	}
	if err := m.addTree(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return m, nil
}

// Run processes events until ctx is cancelled or the monitor is closed
func (m *ArtifactMonitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			m.handle(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn(fmt.Sprintf("Watcher error: %v", err))
		}
	}
}

// Close stops the underlying watcher
func (m *ArtifactMonitor) Close() error {
	return m.watcher.Close()
}

// Artifacts returns the observed files sorted by path
func (m *ArtifactMonitor) Artifacts() []Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Artifact, 0, len(m.files))
	for p, size := range m.files {
		out = append(out, Artifact{Path: p, Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// TotalSize sums the size of all observed files
func (m *ArtifactMonitor) TotalSize() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, size := range m.files {
		total += size
	}
	return total
}

func (m *ArtifactMonitor) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		m.mu.Lock()
		delete(m.files, event.Name)
		m.mu.Unlock()
		return
	case !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write):
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// files may land before the new directory is watched
		if err := m.addTree(event.Name); err != nil {
			m.logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", event.Name, err))
		}
		return
	}
	m.record(event.Name, info.Size())
}

// addTree watches dir and every directory below it, recording files that
// already exist
func (m *ArtifactMonitor) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return m.watcher.Add(p)
		}
		if info, err := d.Info(); err == nil {
			m.record(p, info.Size())
		}
		return nil
	})
}

func (m *ArtifactMonitor) record(path string, size int64) {
	m.mu.Lock()
	prev, seen := m.files[path]
	m.files[path] = size
	m.mu.Unlock()

	if seen && prev == size {
		return
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}
	if !seen {
		m.logger.Info("Artifact created", logger.WithField("file", rel))
		return
	}
	m.logger.Debug("Artifact updated",
		logger.WithField("file", rel),
		logger.WithField("size", utils.FormatBytes(size)))
}
