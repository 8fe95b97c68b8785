package cudaext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompiler logs its argv to $FAKE_LOG and creates the -o target.
const fakeCompiler = `#!/bin/sh
echo "$(basename "$0") $*" >> "$FAKE_LOG"
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; out="$1"; fi
  shift
done
if [ -n "$out" ]; then : > "$out"; fi
exit 0
`

const failingCompiler = `#!/bin/sh
echo "spatial.cu(12): error: identifier \"foo\" is undefined" >&2
exit 3
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == platformWindows {
		t.Skip("fake compilers are shell scripts")
	}
}

func readLog(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func findLine(lines []string, substr string) string {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}

func TestNvccBackendBuildsAndInstalls(t *testing.T) {
	requireShell(t)

	tools := t.TempDir()
	work := t.TempDir()
	logPath := filepath.Join(work, "compilers.log")

	opts := &BuildOptions{
		SourceDir:   filepath.Join(work, "src"),
		BuildDir:    filepath.Join(work, "build"),
		DestPath:    filepath.Join(work, "site"),
		NvccPath:    writeScript(t, tools, "nvcc", fakeCompiler),
		CXXPath:     writeScript(t, tools, "c++", fakeCompiler),
		IncludeDirs: []string{"/opt/torch/include"},
		LinkArgs:    []string{"-lc10"},
		Env:         map[string]string{"FAKE_LOG": logPath},
		Parallel:    2,
	}
	require.NoError(t, os.MkdirAll(opts.SourceDir, 0o755))

	cfg := AssembleConfiguration(Environment{GOOS: "linux"}, ProbeResult{Dir: "/store/x-libxcrypt/include"})

	result, err := (&NvccBackend{}).Build(context.Background(), cfg, opts)
	require.NoError(t, err)
	require.True(t, result.Success)

	installed := filepath.Join(opts.DestPath, "simple_knn", "_C.so")
	assert.Equal(t, []string{installed}, result.Artifacts)
	assert.FileExists(t, installed)
	assert.FileExists(t, filepath.Join(opts.BuildDir, "lib", "simple_knn", "_C.so"))

	lines := readLog(t, logPath)
	require.Len(t, lines, 4)

	spatial := findLine(lines, "spatial.cu ")
	require.NotEmpty(t, spatial)
	assert.True(t, strings.HasPrefix(spatial, "nvcc -c "+filepath.Join(opts.SourceDir, "spatial.cu")))
	assert.Contains(t, spatial, "-o "+filepath.Join(opts.BuildDir, "obj", "spatial.cu.o"))
	assert.Contains(t, spatial, "-gencode=arch=compute_60,code=compute_60")
	assert.Contains(t, spatial, "-gencode=arch=compute_86,code=compute_86")
	assert.Contains(t, spatial, "-I/store/x-libxcrypt/include")
	assert.Contains(t, spatial, "-Xcompiler=-fPIC")
	assert.Contains(t, spatial, "-I/opt/torch/include")

	assert.NotEmpty(t, findLine(lines, "nvcc -c "+filepath.Join(opts.SourceDir, "simple_knn.cu")))

	ext := findLine(lines, "ext.cpp")
	require.NotEmpty(t, ext)
	assert.True(t, strings.HasPrefix(ext, "c++ -c "))
	assert.Contains(t, ext, "-fPIC")
	assert.NotContains(t, ext, "-gencode")

	link := findLine(lines, "-shared")
	require.NotEmpty(t, link)
	assert.True(t, strings.HasPrefix(link, "nvcc -shared "))
	assert.Contains(t, link, filepath.Join(opts.BuildDir, "obj", "ext.cpp.o"))
	assert.True(t, strings.HasSuffix(link, "-lc10"))
}

func TestNvccBackendCompilerFailure(t *testing.T) {
	requireShell(t)

	tools := t.TempDir()
	work := t.TempDir()
	opts := &BuildOptions{
		SourceDir: work,
		NvccPath:  writeScript(t, tools, "nvcc", failingCompiler),
		CXXPath:   writeScript(t, tools, "c++", fakeCompiler),
		Env:       map[string]string{"FAKE_LOG": filepath.Join(work, "log")},
	}

	cfg := AssembleConfiguration(Environment{GOOS: "linux"}, ProbeResult{})
	result, err := (&NvccBackend{}).Build(context.Background(), cfg, opts)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, result.Artifacts)

	var failure *BuildFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "nvcc", failure.Backend)
	assert.Equal(t, 3, ExitStatus(err))
	assert.Contains(t, err.Error(), `identifier "foo" is undefined`)

	_, statErr := os.Stat(filepath.Join(work, "build", "lib", "simple_knn", "_C.so"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNvccBackendMissingCompiler(t *testing.T) {
	work := t.TempDir()
	opts := &BuildOptions{
		SourceDir: work,
		NvccPath:  filepath.Join(work, "no-such-nvcc"),
		CXXPath:   filepath.Join(work, "no-such-cxx"),
	}

	cfg := AssembleConfiguration(Environment{GOOS: runtime.GOOS}, ProbeResult{})
	_, err := (&NvccBackend{}).Build(context.Background(), cfg, opts)
	require.Error(t, err)
	assert.Equal(t, 1, ExitStatus(err))
}

func TestNvccBackendCleanFirstAndClean(t *testing.T) {
	requireShell(t)

	tools := t.TempDir()
	work := t.TempDir()
	stale := filepath.Join(work, "build", "obj", "stale.o")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	opts := &BuildOptions{
		SourceDir:  work,
		NvccPath:   writeScript(t, tools, "nvcc", fakeCompiler),
		CXXPath:    writeScript(t, tools, "c++", fakeCompiler),
		Env:        map[string]string{"FAKE_LOG": filepath.Join(work, "log")},
		CleanFirst: true,
	}

	backend := &NvccBackend{}
	cfg := AssembleConfiguration(Environment{GOOS: "linux"}, ProbeResult{})

	result, err := backend.Build(context.Background(), cfg, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(work, "build", "lib", "simple_knn", "_C.so")}, result.Artifacts)
	assert.NoFileExists(t, stale)

	require.NoError(t, backend.Clean(context.Background(), cfg, opts))
	assert.NoDirExists(t, filepath.Join(work, "build"))

	// Cleaning twice is fine.
	require.NoError(t, backend.Clean(context.Background(), cfg, opts))
}

func TestNvccBackendWindowsLayout(t *testing.T) {
	backend := &NvccBackend{}
	cfg := AssembleConfiguration(Environment{GOOS: "windows"}, ProbeResult{})
	opts := resolveOptions(cfg.Environment(), &BuildOptions{SourceDir: "src", Env: map[string]string{"CUDA_HOME": "", "CXX": ""}})

	assert.Equal(t, "spatial.cu.obj", filepath.Base(backend.objectPath(cfg, opts, "spatial.cu")))
	assert.Equal(t, "_C.pyd", filepath.Base(backend.modulePath(cfg, opts)))
	assert.Equal(t, "cl", opts.CXXPath)
	assert.Equal(t, []string{"/Iinc"}, includeArgs([]string{"inc"}, true))
}

func TestNvccBackendRequiredTools(t *testing.T) {
	tools := (&NvccBackend{}).RequiredTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "nvcc", tools[0].Name)
	assert.Contains(t, tools[1].Alternatives, "cl")
}

func TestResolveOptionsDefaults(t *testing.T) {
	env := Environment{GOOS: "linux"}

	opts := resolveOptions(env, &BuildOptions{
		SourceDir: "src",
		Env:       map[string]string{"CUDA_HOME": "/usr/local/cuda", "CXX": "g++-13"},
	})
	assert.True(t, filepath.IsAbs(opts.SourceDir))
	assert.Equal(t, filepath.Join(opts.SourceDir, "build"), opts.BuildDir)
	assert.Equal(t, filepath.Join("/usr/local/cuda", "bin", "nvcc"), opts.NvccPath)
	assert.Equal(t, "g++-13", opts.CXXPath)

	plain := resolveOptions(env, &BuildOptions{Env: map[string]string{"CUDA_HOME": "", "CXX": ""}})
	assert.Equal(t, "nvcc", plain.NvccPath)
	assert.Equal(t, "c++", plain.CXXPath)

	original := &BuildOptions{SourceDir: "src"}
	resolveOptions(env, original)
	assert.Equal(t, "src", original.SourceDir)
	assert.Empty(t, original.BuildDir)
}
