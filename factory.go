package cudaext

import (
	"fmt"
	"sort"
)

// BackendFactory manages the registration and selection of backends.
//
// Create a factory with the standard backends:
//
//	factory := cudaext.NewBackendFactory()
//	backend, err := factory.BackendFor("nvcc")
//
// # Thread Safety
//
// BackendFactory is NOT thread-safe for registration.
// Register all backends before concurrent use.
type BackendFactory struct {
	backends map[string]Backend
}

// NewBackendFactory creates a factory with the nvcc and command backends
// registered.
func NewBackendFactory() *BackendFactory {
	factory := &BackendFactory{}

	factory.Register(&NvccBackend{})
	factory.Register(&CommandBackend{})

	return factory
}

// Register adds a backend under its Name. A later registration with the
// same name replaces the earlier one.
func (f *BackendFactory) Register(backend Backend) {
	if f.backends == nil {
		f.backends = make(map[string]Backend)
	}
	f.backends[backend.Name()] = backend
}

// BackendFor returns the backend registered under name.
func (f *BackendFactory) BackendFor(name string) (Backend, error) {
	if backend, ok := f.backends[name]; ok {
		return backend, nil
	}
	return nil, fmt.Errorf("no backend registered as %q (available: %v)", name, f.Names())
}

// Names returns the registered backend names in sorted order.
func (f *BackendFactory) Names() []string {
	names := make([]string, 0, len(f.backends))
	for name := range f.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
