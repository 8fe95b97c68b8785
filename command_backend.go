package cudaext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/magefile/mage/sh"
)

// Environment variables exported to the configured build command.
const (
	EnvModule    = "CUDAEXT_MODULE"
	EnvSources   = "CUDAEXT_SOURCES"
	EnvNvccFlags = "CUDAEXT_NVCC_FLAGS"
	EnvCXXFlags  = "CUDAEXT_CXX_FLAGS"
	EnvBuildDir  = "CUDAEXT_BUILD_DIR"
)

// CommandBackend hands the configuration to an external build command,
// such as a host-runtime packaging script.
//
// The command is BuildOptions.Command, an argv template. Placeholders:
//
//	{{module}}     - dotted module name
//	{{dir}}        - the build directory
//	{{sources}}    - expands to one argument per source file
//	{{nvcc_flags}} - expands to one argument per device flag
//	{{cxx_flags}}  - expands to one argument per host flag
//
// The same values are exported as CUDAEXT_* environment variables,
// space separated. After the command exits successfully, loadable
// modules (.so, .pyd, .dylib, .dll) anywhere under the build directory
// are collected.
type CommandBackend struct{}

// Name returns the backend name
func (b *CommandBackend) Name() string {
	return "command"
}

// Build runs the configured command
func (b *CommandBackend) Build(ctx context.Context, cfg *Configuration, opts *BuildOptions) (*BuildResult, error) {
	return runCommonBuild(ctx, cfg, resolveOptions(cfg.Environment(), opts), CommonBuildSteps{
		PrepareFunc: b.prepare,
		BuildFunc:   b.runCommand,
		FindFunc:    b.findArtifacts,
	})
}

// Clean removes the build directory
func (b *CommandBackend) Clean(ctx context.Context, cfg *Configuration, opts *BuildOptions) error {
	return sh.Rm(resolveOptions(cfg.Environment(), opts).BuildDir)
}

func (b *CommandBackend) prepare(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error {
	if len(opts.Command) == 0 {
		return fmt.Errorf("no build command configured for %s backend", b.Name())
	}

	if opts.CleanFirst {
		if err := sh.Rm(opts.BuildDir); err != nil {
			return fmt.Errorf("clean %s: %w", opts.BuildDir, err)
		}
	}

	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}
	return nil
}

func (b *CommandBackend) runCommand(ctx context.Context, cfg *Configuration, opts *BuildOptions, result *BuildResult) error {
	args := expandCommand(opts.Command, cfg, opts.BuildDir)
	if len(args) == 0 {
		return fmt.Errorf("build command %v expands to nothing", opts.Command)
	}

	env := make(map[string]string, len(opts.Env)+5)
	for key, value := range opts.Env {
		env[key] = value
	}
	env[EnvModule] = cfg.ModuleName()
	env[EnvSources] = strings.Join(cfg.Sources(), " ")
	env[EnvNvccFlags] = strings.Join(cfg.DeviceFlags(), " ")
	env[EnvCXXFlags] = strings.Join(cfg.HostFlags(), " ")
	env[EnvBuildDir] = opts.BuildDir

	runOpts := *opts
	runOpts.Env = env

	lines, err := runTool(ctx, &runOpts, b.Name(), opts.SourceDir, args[0], args[1:]...)
	result.Output = append(result.Output, lines...)
	return err
}

// expandCommand substitutes placeholders in the argv template. List
// placeholders must stand alone as an argument.
func expandCommand(template []string, cfg *Configuration, buildDir string) []string {
	var args []string
	for _, arg := range template {
		switch arg {
		case "{{sources}}":
			args = append(args, cfg.Sources()...)
			continue
		case "{{nvcc_flags}}":
			args = append(args, cfg.DeviceFlags()...)
			continue
		case "{{cxx_flags}}":
			args = append(args, cfg.HostFlags()...)
			continue
		}

		arg = strings.ReplaceAll(arg, "{{module}}", cfg.ModuleName())
		arg = strings.ReplaceAll(arg, "{{dir}}", buildDir)
		args = append(args, arg)
	}
	return args
}

func (b *CommandBackend) findArtifacts(cfg *Configuration, opts *BuildOptions) ([]string, error) {
	var modules []string

	for suffix := range loadableModuleSuffixes {
		pattern := filepath.Join(opts.BuildDir, "**", "*"+suffix)
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %v", pattern, err)
		}
		modules = append(modules, matches...)
	}

	if len(modules) == 0 {
		return nil, fmt.Errorf("build command produced no loadable module under %s", opts.BuildDir)
	}
	sort.Strings(modules)
	return modules, nil
}
