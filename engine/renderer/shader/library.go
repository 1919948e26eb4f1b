package shader

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
)

type library struct {
	mu      *sync.Mutex
	shaders map[string]Shader
	retired []Shader

	workers int
	pool    worker.DynamicWorkerPool
}

// Library is a keyed registry of parsed shaders. Parsing and reflection run once per key;
// Preload spreads that work across a worker pool.
type Library interface {
	// Load parses source under key, or returns the shader already registered under key.
	//
	// Parameters:
	//   - key: the shader key
	//   - source: the WGSL source
	//   - options: entry point options passed to NewShader
	//
	// Returns:
	//   - Shader: the registered shader
	//   - error: an error wrapping ErrMalformedShader if parsing fails
	Load(key, source string, options ...ShaderBuilderOption) (Shader, error)

	// LoadFile reads a WGSL file and loads it under key.
	LoadFile(key, path string, options ...ShaderBuilderOption) (Shader, error)

	// Preload parses every source concurrently. Keys that are already loaded are skipped.
	//
	// Parameters:
	//   - sources: WGSL sources keyed by shader key
	//
	// Returns:
	//   - error: every parse failure joined together, or nil
	Preload(sources map[string]string) error

	// Replace parses source and swaps it in under key, whether or not key was loaded. The
	// previous shader is retired rather than released, so Replace never touches the device and
	// is safe to call from any goroutine. A parse failure leaves the registry unchanged.
	//
	// Parameters:
	//   - key: the shader key
	//   - source: the new WGSL source
	//   - options: entry point options passed to NewShader
	//
	// Returns:
	//   - Shader: the new shader
	//   - error: an error wrapping ErrMalformedShader if parsing fails
	Replace(key, source string, options ...ShaderBuilderOption) (Shader, error)

	// ReleaseRetired frees the GPU objects of every shader retired by Replace.
	//
	// Parameters:
	//   - dev: the device that owns the shaders' objects
	//
	// Returns:
	//   - int: the number of shaders released
	ReleaseRetired(dev device.Device) int

	// Get returns the shader registered under key.
	Get(key string) (Shader, bool)

	// Keys returns every registered key in sorted order.
	Keys() []string

	// Remove releases the shader's GPU objects and unregisters it.
	Remove(dev device.Device, key string)

	// Close releases every shader and stops the worker pool.
	Close(dev device.Device)
}

var _ Library = &library{}

// NewLibrary creates an empty Library.
//
// Parameters:
//   - options: functional options such as WithPreloadWorkers
//
// Returns:
//   - Library: the new library
func NewLibrary(options ...LibraryBuilderOption) Library {
	l := &library{
		mu:      &sync.Mutex{},
		shaders: make(map[string]Shader),
		workers: DefaultPreloadWorkers,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *library) Load(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	if s, ok := l.Get(key); ok {
		return s, nil
	}
	s, err := NewShader(key, source, options...)
	if err != nil {
		return nil, err
	}
	return l.register(s), nil
}

func (l *library) LoadFile(key, path string, options ...ShaderBuilderOption) (Shader, error) {
	if s, ok := l.Get(key); ok {
		return s, nil
	}
	s, err := NewShaderFromPath(key, path, options...)
	if err != nil {
		return nil, err
	}
	return l.register(s), nil
}

// register stores s unless another goroutine registered the key first, and returns the winner.
func (l *library) register(s Shader) Shader {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.shaders[s.Key()]; ok {
		return existing
	}
	l.shaders[s.Key()] = s
	return s
}

func (l *library) Replace(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s, err := NewShader(key, source, options...)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	old, ok := l.shaders[key]
	l.shaders[key] = s
	if ok {
		l.retired = append(l.retired, old)
	}
	l.mu.Unlock()

	common.Logger().Info("shader: replaced", "shader", key, "hash", s.Hash())
	return s, nil
}

func (l *library) ReleaseRetired(dev device.Device) int {
	l.mu.Lock()
	retired := l.retired
	l.retired = nil
	l.mu.Unlock()

	if dev != nil {
		for _, s := range retired {
			s.Release(dev)
		}
	}
	return len(retired)
}

func (l *library) Preload(sources map[string]string) error {
	l.mu.Lock()
	if l.pool == nil {
		l.pool = worker.NewDynamicWorkerPool(l.workers, len(sources)+1, 1*time.Second)
	}
	pool := l.pool
	l.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 0, len(sources))
	errMu := &sync.Mutex{}

	taskID := 0
	for key, source := range sources {
		if _, ok := l.Get(key); ok {
			continue
		}
		wg.Add(1)
		k, src := key, source
		pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				_, err := l.Load(k, src)
				if err != nil {
					errMu.Lock()
					errs = append(errs, err)
					errMu.Unlock()
				}
				return nil, err
			},
		})
		taskID++
	}
	wg.Wait()

	common.Logger().Info("shader: preload complete", "requested", len(sources), "failed", len(errs))
	return errors.Join(errs...)
}

func (l *library) Get(key string) (Shader, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.shaders[key]
	return s, ok
}

func (l *library) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.shaders))
	for k := range l.shaders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *library) Remove(dev device.Device, key string) {
	l.mu.Lock()
	s, ok := l.shaders[key]
	delete(l.shaders, key)
	l.mu.Unlock()

	if ok && dev != nil {
		s.Release(dev)
	}
}

func (l *library) Close(dev device.Device) {
	l.mu.Lock()
	shaders := l.shaders
	l.shaders = make(map[string]Shader)
	pool := l.pool
	l.pool = nil
	l.mu.Unlock()

	if dev != nil {
		for _, s := range shaders {
			s.Release(dev)
		}
	}
	l.ReleaseRetired(dev)
	if pool != nil {
		pool.Stop()
	}
	common.Logger().Debug(fmt.Sprintf("shader: library closed, released %d shaders", len(shaders)))
}
