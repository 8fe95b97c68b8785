package cudaext

import "context"

// Backend defines the interface every native build backend implements.
//
// A backend receives an assembled Configuration and produces a loadable
// module on disk. It owns compiler invocation, object placement and
// cleanup of its own output; the pipeline only waits for it.
//
// # Backend Lifecycle
//
//  1. Name() - Used for selection and in error messages
//  2. Build() - Compile and link the module
//  3. Clean() - Optional removal of build artifacts
//
// # Example Implementation
//
//	type EchoBackend struct{}
//
//	func (b *EchoBackend) Name() string { return "echo" }
//
//	func (b *EchoBackend) Build(ctx context.Context, cfg *Configuration, opts *BuildOptions) (*BuildResult, error) {
//	    return &BuildResult{Success: true, Output: cfg.Sources()}, nil
//	}
//
//	func (b *EchoBackend) Clean(ctx context.Context, cfg *Configuration, opts *BuildOptions) error {
//	    return nil
//	}
//
// # Thread Safety
//
// Backend implementations should be stateless; the same instance may be
// used for several builds.
type Backend interface {
	// Name returns the registry name of this backend, e.g. "nvcc".
	Name() string

	// Build compiles the configured sources into a module.
	//
	// Returns:
	//   - BuildResult with Success=true and Artifacts on success
	//   - BuildResult with Success=false and Error on failure
	Build(ctx context.Context, cfg *Configuration, opts *BuildOptions) (*BuildResult, error)

	// Clean removes build artifacts. Returns nil when there is nothing
	// to clean.
	Clean(ctx context.Context, cfg *Configuration, opts *BuildOptions) error
}
