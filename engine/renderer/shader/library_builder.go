package shader

import "time"

// DefaultPreloadWorkers is the number of goroutines Preload parses shaders on.
const DefaultPreloadWorkers = 4

// LibraryBuilderOption is a functional option used to configure a Library during construction.
type LibraryBuilderOption func(*library)

// WithPreloadWorkers sets the size of the worker pool used by Preload.
//
// Parameters:
//   - n: the number of workers, values below one are treated as one
//
// Returns:
//   - LibraryBuilderOption: a function that sets the worker count
func WithPreloadWorkers(n int) LibraryBuilderOption {
	return func(l *library) {
		if n < 1 {
			n = 1
		}
		l.workers = n
	}
}

// WatcherBuilderOption is a functional option used to configure a Watcher during construction.
type WatcherBuilderOption func(*watcher)

// WithDebounce sets how long a file must stay unchanged before it is reloaded.
//
// Parameters:
//   - d: the quiet period
//
// Returns:
//   - WatcherBuilderOption: a function that sets the debounce
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		w.debounce = d
	}
}

// WithReloadCallback registers a function called after every reload attempt, with the
// error that kept the previous shader in place, if any. It runs on the watcher's goroutine.
func WithReloadCallback(fn func(key string, err error)) WatcherBuilderOption {
	return func(w *watcher) {
		w.onReload = fn
	}
}
