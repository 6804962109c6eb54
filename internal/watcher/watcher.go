package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileCallback is called with the path of a calendar interchange file that
// appeared or changed in a watched directory.
type FileCallback func(path string)

// ImportWatcher monitors import directories for CSV and ICS drops and
// hands each changed file to its directory's callback.
type ImportWatcher struct {
	watcher   *fsnotify.Watcher
	callbacks map[string]FileCallback
	mutex     sync.RWMutex
	stopChan  chan struct{}
	stopped   bool
}

// NewImportWatcher creates an import watcher. Stop must be called to
// release the underlying fsnotify resources.
func NewImportWatcher() (*ImportWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	iw := &ImportWatcher{
		watcher:   watcher,
		callbacks: make(map[string]FileCallback),
		stopChan:  make(chan struct{}),
	}
	go iw.processEvents()
	return iw, nil
}

// AddDirectory starts watching a directory for interchange files.
func (iw *ImportWatcher) AddDirectory(path string, callback FileCallback) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", path)
	}

	if err := iw.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", path, err)
	}

	iw.mutex.Lock()
	iw.callbacks[filepath.Clean(path)] = callback
	iw.mutex.Unlock()
	return nil
}

// IsWatching reports whether the directory is being watched.
func (iw *ImportWatcher) IsWatching(path string) bool {
	iw.mutex.RLock()
	defer iw.mutex.RUnlock()

	_, ok := iw.callbacks[filepath.Clean(path)]
	return ok
}

// WatchedPaths returns the watched directories.
func (iw *ImportWatcher) WatchedPaths() []string {
	iw.mutex.RLock()
	defer iw.mutex.RUnlock()

	paths := make([]string, 0, len(iw.callbacks))
	for path := range iw.callbacks {
		paths = append(paths, path)
	}
	return paths
}

// Stop shuts down the watcher.
func (iw *ImportWatcher) Stop() error {
	iw.mutex.Lock()
	defer iw.mutex.Unlock()

	if iw.stopped {
		return nil
	}
	iw.stopped = true
	close(iw.stopChan)
	return iw.watcher.Close()
}

// processEvents forwards create/write events for interchange files to the
// right directory callback.
func (iw *ImportWatcher) processEvents() {
	for {
		select {
		case <-iw.stopChan:
			return

		case ev, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !IsImportFile(ev.Name) {
				continue
			}
			iw.mutex.RLock()
			callback := iw.callbacks[filepath.Clean(filepath.Dir(ev.Name))]
			iw.mutex.RUnlock()
			if callback != nil {
				callback(ev.Name)
			}

		case _, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			// fsnotify errors are transient; keep watching.
		}
	}
}

// IsImportFile reports whether the path looks like a calendar interchange
// file.
func IsImportFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".ics":
		return true
	default:
		return false
	}
}
