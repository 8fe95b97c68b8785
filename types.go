package cudaext

import "context"

// BuildResult contains the output and status of a build operation.
//
// After a build completes, this structure provides:
//   - Success status indicating if the build completed without errors
//   - Output lines captured from the compilers (stdout/stderr)
//   - Artifacts list of loadable modules produced (.so/.pyd)
//   - Error information if the build failed
type BuildResult struct {
	Success   bool     // True if build completed successfully
	Output    []string // Lines of output from the compilers
	Artifacts []string // Paths to built module files
	Error     error    // Error if build failed, nil otherwise
}

// BuildOptions controls how a backend turns a Configuration into a binary.
//
// Source paths:
//   - SourceDir: Directory the configured source files are relative to
//   - BuildDir: Directory for object files and the linked module
//   - DestPath: Optional install root for the finished module
//
// Toolchain:
//   - NvccPath / CXXPath: Device and host compiler executables
//   - IncludeDirs: Extra include directories (host runtime headers)
//   - LinkArgs: Extra arguments for the final link
//   - Env: Environment variables set for every compiler invocation
//
// Behavior:
//   - Parallel: Maximum concurrent compile jobs (0 = one per source)
//   - Verbose: Record the command lines in the build output
//   - CleanFirst: Remove BuildDir before building
type BuildOptions struct {
	// Source paths
	SourceDir string
	BuildDir  string
	DestPath  string

	// Toolchain
	NvccPath    string
	CXXPath     string
	IncludeDirs []string
	LinkArgs    []string
	Env         map[string]string

	// Command is the argv template used by CommandBackend.
	Command []string

	// Build options
	Parallel   int
	Verbose    bool
	CleanFirst bool
}

// CommonBuildSteps defines the 3-step build pattern shared by backends.
//
//  1. Prepare: Create (or reset) the build directory
//  2. Build: Compile and link the module
//  3. Find: Locate the produced module files
//
// Example usage in a backend:
//
//	return runCommonBuild(ctx, cfg, opts, CommonBuildSteps{
//	    PrepareFunc: b.prepare,
//	    BuildFunc:   b.compileAndLink,
//	    FindFunc:    b.findArtifacts,
//	})
type CommonBuildSteps struct {
	// PrepareFunc readies the build directory
	PrepareFunc func(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error

	// BuildFunc compiles and links the module
	BuildFunc func(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error

	// FindFunc locates the produced module files after the build completes
	FindFunc func(cfg *Configuration, opts *BuildOptions) ([]string, error)
}
