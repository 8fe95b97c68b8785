package cudaext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runCommonBuild executes the standard 3-step build process.
//
//  1. Prepare: Create the build directory
//  2. Build: Compile the sources and link the module
//  3. Find: Locate the module file and install it under DestPath
//
// If any step fails, processing stops and the error is returned with
// Success=false. Partial output is left in place for the caller to
// inspect; nothing is rolled back.
func runCommonBuild(ctx context.Context, cfg *Configuration, opts *BuildOptions, steps CommonBuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	// Step 1: Prepare the build directory
	if err := steps.PrepareFunc(ctx, cfg, opts, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 2: Compile and link
	if err := steps.BuildFunc(ctx, cfg, opts, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 3: Find the built module
	built, err := steps.FindFunc(cfg, opts)
	if err != nil {
		result.Error = err
		return result, err
	}

	artifacts, err := finalizeArtifacts(cfg, opts, built)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Artifacts = artifacts
	result.Success = true
	return result, nil
}

// resolveOptions fills in defaults without modifying the caller's copy.
//
//   - BuildDir defaults to <SourceDir>/build
//   - NvccPath defaults to $CUDA_HOME/bin/nvcc, then nvcc on PATH
//   - CXXPath defaults to $CXX, then cl on Windows and c++ elsewhere
func resolveOptions(env Environment, opts *BuildOptions) *BuildOptions {
	resolved := &BuildOptions{}
	if opts != nil {
		*resolved = *opts
	}

	if resolved.SourceDir == "" {
		resolved.SourceDir = "."
	}
	if resolved.BuildDir == "" {
		resolved.BuildDir = filepath.Join(resolved.SourceDir, "build")
	}

	resolved.SourceDir = absPath(resolved.SourceDir)
	resolved.BuildDir = absPath(resolved.BuildDir)
	if resolved.DestPath != "" {
		resolved.DestPath = absPath(resolved.DestPath)
	}

	if resolved.NvccPath == "" {
		if cudaHome := lookupEnv(resolved.Env, "CUDA_HOME"); cudaHome != "" {
			resolved.NvccPath = filepath.Join(cudaHome, "bin", "nvcc")
		} else {
			resolved.NvccPath = "nvcc"
		}
	}

	if resolved.CXXPath == "" {
		switch {
		case lookupEnv(resolved.Env, "CXX") != "":
			resolved.CXXPath = lookupEnv(resolved.Env, "CXX")
		case env.IsWindows():
			resolved.CXXPath = "cl"
		default:
			resolved.CXXPath = "c++"
		}
	}

	return resolved
}

// absPath anchors relative directories at the working directory, since
// tools run with SourceDir as their working directory.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// lookupEnv prefers the build environment over the process environment.
func lookupEnv(env map[string]string, key string) string {
	if value, ok := env[key]; ok {
		return value
	}
	return os.Getenv(key)
}

// sourcePath resolves a configured source against the source directory.
func sourcePath(opts *BuildOptions, source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(opts.SourceDir, source)
}

// runTool runs one external command and returns its output lines. A
// failing command yields a *BuildFailure labelled with label.
func runTool(ctx context.Context, opts *BuildOptions, label, dir, name string, args ...string) ([]string, error) {
	//nolint:gosec // Command comes from the build configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	// Set environment variables
	cmd.Env = os.Environ()
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	output, err := cmd.CombinedOutput()
	lines := splitOutput(output)

	if opts.Verbose {
		lines = append(lines,
			fmt.Sprintf("Running: %s %s", name, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", dir))
	}

	if err != nil {
		return lines, BuildError(label, lines, err)
	}

	return lines, nil
}
