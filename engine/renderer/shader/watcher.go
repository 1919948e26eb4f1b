package shader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long a watched file must stay quiet before it is reloaded.
const DefaultWatchDebounce = 100 * time.Millisecond

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("shader: watcher closed")

type watchEntry struct {
	key     string
	options []ShaderBuilderOption
	timer   *time.Timer
}

type watcher struct {
	mu       *sync.Mutex
	library  Library
	fs       *fsnotify.Watcher
	entries  map[string]*watchEntry
	dirs     map[string]int
	debounce time.Duration
	onReload func(key string, err error)
	closed   bool
	done     chan struct{}
}

// Watcher reloads shader files into a Library when they change on disk. Reloads go through
// Library.Replace, so a file saved with a syntax error is logged and the previous shader
// stays in use.
type Watcher interface {
	// Watch loads path under key if it is not loaded yet and reloads it on every change.
	//
	// Parameters:
	//   - key: the shader key
	//   - path: the WGSL file
	//   - options: entry point options passed to NewShader on every reload
	//
	// Returns:
	//   - error: a load error, a watch error, or ErrWatcherClosed
	Watch(key, path string, options ...ShaderBuilderOption) error

	// Close stops watching. Pending reloads are dropped.
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher feeding library.
//
// Parameters:
//   - library: the library reloaded shaders are swapped into
//   - options: functional options such as WithDebounce
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the file system watcher could not be created
func NewWatcher(library Library, options ...WatcherBuilderOption) (Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader: failed to create file watcher: %w", err)
	}
	w := &watcher{
		mu:       &sync.Mutex{},
		library:  library,
		fs:       fs,
		entries:  make(map[string]*watchEntry),
		dirs:     make(map[string]int),
		debounce: DefaultWatchDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}
	go w.loop()
	return w, nil
}

func (w *watcher) Watch(key, path string, options ...ShaderBuilderOption) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("shader: failed to resolve %q: %w", path, err)
	}
	if _, err := w.library.LoadFile(key, abs, options...); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.entries[abs]; ok {
		w.entries[abs].key = key
		w.entries[abs].options = options
		return nil
	}

	// Editors often save by renaming a temp file over the target, which drops a watch on the
	// file itself, so the parent directory is watched instead.
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("shader: failed to watch %q: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.entries[abs] = &watchEntry{key: key, options: options}
	common.Logger().Info("shader: watching", "shader", key, "path", abs)
	return nil
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.schedule(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader: watcher error", "error", err)
		}
	}
}

// schedule restarts the entry's debounce timer.
func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[path]
	if !ok || w.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(w.debounce, func() { w.reload(path) })
}

func (w *watcher) reload(path string) {
	w.mu.Lock()
	e, ok := w.entries[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	key, options, onReload := e.key, e.options, w.onReload
	w.mu.Unlock()

	data, err := os.ReadFile(path)
	if err == nil {
		_, err = w.library.Replace(key, string(data), options...)
	}
	if err != nil {
		common.Logger().Warn("shader: reload failed, keeping previous shader", "shader", key, "path", path, "error", err)
	}
	if onReload != nil {
		onReload(key, err)
	}
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, e := range w.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}
