package cudaext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
	"golang.org/x/sync/errgroup"
)

// NvccBackend compiles the extension directly with the CUDA toolchain.
//
// Device sources (.cu) go through nvcc with the configured device flags;
// host flags are forwarded to nvcc's host compiler with -Xcompiler.
// Host sources (.cpp, .cc, .cxx) go straight to the host compiler. All
// objects are then linked into one shared module by nvcc.
//
// Build layout:
//
//	<BuildDir>/obj/<source>.o
//	<BuildDir>/lib/simple_knn/_C.so
type NvccBackend struct{}

// Name returns the backend name
func (b *NvccBackend) Name() string {
	return "nvcc"
}

// RequiredTools returns the tools needed for nvcc builds
func (b *NvccBackend) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    "nvcc",
			Purpose: "CUDA device compiler",
		},
		{
			Name:         "c++",
			Alternatives: []string{"g++", "clang++", "cl"},
			Purpose:      "C++ host compiler for the binding code",
		},
	}
}

// CheckTools verifies that the CUDA toolchain is available
func (b *NvccBackend) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// Build compiles every source and links the module
func (b *NvccBackend) Build(ctx context.Context, cfg *Configuration, opts *BuildOptions) (*BuildResult, error) {
	return runCommonBuild(ctx, cfg, resolveOptions(cfg.Environment(), opts), CommonBuildSteps{
		PrepareFunc: b.prepare,
		BuildFunc:   b.compileAndLink,
		FindFunc:    b.findArtifacts,
	})
}

// Clean removes the build directory
func (b *NvccBackend) Clean(ctx context.Context, cfg *Configuration, opts *BuildOptions) error {
	return sh.Rm(resolveOptions(cfg.Environment(), opts).BuildDir)
}

func (b *NvccBackend) prepare(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error {
	if opts.CleanFirst {
		if err := sh.Rm(opts.BuildDir); err != nil {
			return fmt.Errorf("clean %s: %w", opts.BuildDir, err)
		}
	}

	for _, dir := range []string{b.objectDir(opts), filepath.Dir(b.modulePath(cfg, opts))} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create build directory: %w", err)
		}
	}

	if opts.Verbose {
		result.Output = append(result.Output, fmt.Sprintf("nvcc backend, building %s in %s", cfg.ModuleName(), opts.BuildDir))
	}
	return nil
}

// compileAndLink compiles all sources concurrently, then links them.
// Output is recorded in source order regardless of completion order.
func (b *NvccBackend) compileAndLink(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error {
	sources := cfg.Sources()
	objects := make([]string, len(sources))
	outputs := make([][]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}

	for i, source := range sources {
		i, source := i, source
		objects[i] = b.objectPath(cfg, opts, source)
		g.Go(func() error {
			lines, err := b.compile(gctx, cfg, opts, source, objects[i])
			outputs[i] = lines
			return err
		})
	}

	err := g.Wait()
	for _, lines := range outputs {
		result.Output = append(result.Output, lines...)
	}
	if err != nil {
		return err
	}

	lines, err := b.link(ctx, cfg, opts, objects)
	result.Output = append(result.Output, lines...)
	return err
}

func (b *NvccBackend) compile(ctx context.Context, cfg *Configuration, opts *BuildOptions, source, object string) ([]string, error) {
	src := sourcePath(opts, source)
	windows := cfg.Environment().IsWindows()

	if MatchesExtension(source, ".cu") {
		args := []string{"-c", src, "-o", object}
		args = append(args, cfg.DeviceFlags()...)
		for _, flag := range cfg.HostFlags() {
			args = append(args, "-Xcompiler="+flag)
		}
		if !windows {
			args = append(args, "-Xcompiler=-fPIC")
		}
		args = append(args, includeArgs(opts.IncludeDirs, false)...)
		return runTool(ctx, opts, "nvcc", opts.SourceDir, opts.NvccPath, args...)
	}

	var args []string
	if windows {
		args = []string{"/nologo", "/c", src, "/Fo" + object}
	} else {
		args = []string{"-c", src, "-o", object, "-fPIC"}
	}
	args = append(args, cfg.HostFlags()...)
	args = append(args, includeArgs(opts.IncludeDirs, windows)...)
	return runTool(ctx, opts, "cxx", opts.SourceDir, opts.CXXPath, args...)
}

func (b *NvccBackend) link(ctx context.Context, cfg *Configuration, opts *BuildOptions, objects []string) ([]string, error) {
	args := []string{"-shared"}
	args = append(args, objects...)
	args = append(args, "-o", b.modulePath(cfg, opts))
	args = append(args, opts.LinkArgs...)
	return runTool(ctx, opts, "nvcc link", opts.SourceDir, opts.NvccPath, args...)
}

func (b *NvccBackend) findArtifacts(cfg *Configuration, opts *BuildOptions) ([]string, error) {
	path := b.modulePath(cfg, opts)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("linked module not found: %w", err)
	}
	return []string{path}, nil
}

func (b *NvccBackend) objectDir(opts *BuildOptions) string {
	return filepath.Join(opts.BuildDir, "obj")
}

// objectPath keeps the source extension in the object name so that
// foo.cu and foo.cpp never collide.
func (b *NvccBackend) objectPath(cfg *Configuration, opts *BuildOptions, source string) string {
	suffix := ".o"
	if cfg.Environment().IsWindows() {
		suffix = ".obj"
	}
	return filepath.Join(b.objectDir(opts), filepath.Base(source)+suffix)
}

func (b *NvccBackend) modulePath(cfg *Configuration, opts *BuildOptions) string {
	return filepath.Join(opts.BuildDir, "lib", moduleFile(cfg))
}

func includeArgs(dirs []string, msvc bool) []string {
	args := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if msvc {
			args = append(args, "/I"+dir)
		} else {
			args = append(args, "-I"+dir)
		}
	}
	return args
}
