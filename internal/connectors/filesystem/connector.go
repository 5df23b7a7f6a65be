// Package filesystem discovers and watches input files on the local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.FileSource = (*Connector)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("filesystem connector closed")

// Filter decides whether a file path is a candidate for ingestion.
type Filter func(path string) bool

// Option configures the connector.
type Option func(*Connector)

// WithRecursive controls whether subdirectories are walked and watched.
func WithRecursive(recursive bool) Option {
	return func(c *Connector) {
		c.recursive = recursive
	}
}

// WithFilter sets the file filter. Without one every file passes.
func WithFilter(filter Filter) Option {
	return func(c *Connector) {
		c.filter = filter
	}
}

// Connector lists and watches files under a root directory.
type Connector struct {
	rootPath  string
	recursive bool
	filter    Filter

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath:  rootPath,
		recursive: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the input directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks the root exists and is a directory.
func (c *Connector) Validate() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("%w: root path error: %w", domain.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path error: %s is not a directory", domain.ErrConfiguration, c.rootPath)
	}
	return nil
}

// Discover walks the root and returns every candidate file, sorted.
func (c *Connector) Discover(ctx context.Context) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(c.rootPath, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path == c.rootPath {
				return nil
			}
			if !c.recursive || isHidden(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(rel) || !d.Type().IsRegular() {
			return nil
		}
		if c.filter != nil && !c.filter(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", c.rootPath, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Watch emits changes to candidate files until ctx is done.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.FileChange, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addWatches(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = watcher.Close()
		return nil, ErrClosed
	}
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
	c.watcher = watcher
	c.mu.Unlock()

	changes := make(chan domain.FileChange)
	go func() {
		defer close(changes)
		defer func() {
			_ = watcher.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.trackNewDir(watcher, event)
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

// addWatches registers dir, and its visible subdirectories when recursive.
func (c *Connector) addWatches(watcher *fsnotify.Watcher, dir string) error {
	if !c.recursive {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(c.rootPath, path); path != c.rootPath && isHidden(rel) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// trackNewDir starts watching directories created under the root.
func (c *Connector) trackNewDir(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !c.recursive || !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if rel, _ := filepath.Rel(c.rootPath, event.Name); isHidden(rel) {
		return
	}
	if err := c.addWatches(watcher, event.Name); err != nil {
		logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
	}
}

// handleFsEvent converts an fsnotify event into a FileChange, or nil when
// the event is irrelevant (chmod, directories, hidden or filtered files).
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.FileChange {
	rel, err := filepath.Rel(c.rootPath, event.Name)
	if err != nil {
		rel = event.Name
	}
	if isHidden(rel) {
		return nil
	}
	if c.filter != nil && !c.filter(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.FileChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.FileChange{Type: changeType, Path: event.Name}
	default:
		return nil
	}
}

// Close stops any active watch. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
