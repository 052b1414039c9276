package backend

import (
	"fmt"
	"sync"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// Factory creates a new device. It fails when the backend cannot run in the
// current process, e.g. no GL context is current.
type Factory func() (gpucore.Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	// GL > WGPU > Software (GL matches the shader set shipped by default,
	// Software is the headless fallback).
	backendPriority = []string{BackendGL, BackendWGPU, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns a list of registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get creates a device from the named backend.
func Get(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrBackendNotAvailable, name)
	}
	d, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return d, nil
}

// Default creates a device from the best available backend based on
// priority. Backends whose factory fails are skipped.
// Returns nil if no backend can create a device.
func Default() gpucore.Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	tried := make(map[string]bool, len(backendPriority))
	for _, name := range backendPriority {
		tried[name] = true
		if factory, ok := backends[name]; ok {
			if d, err := factory(); err == nil && d != nil {
				return d
			}
		}
	}

	// Fallback: first other backend that opens
	for name, factory := range backends {
		if tried[name] {
			continue
		}
		if d, err := factory(); err == nil && d != nil {
			return d
		}
	}

	return nil
}

// MustDefault returns the default device or panics.
func MustDefault() gpucore.Device {
	d := Default()
	if d == nil {
		panic("backend: no backend available")
	}
	return d
}

// InitDefault returns the default device, or ErrBackendNotAvailable.
// This is called by cgs.New when no device or backend name is given.
func InitDefault() (gpucore.Device, error) {
	d := Default()
	if d == nil {
		return nil, ErrBackendNotAvailable
	}
	return d, nil
}
