package cudaext

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/sh"
)

// MatchesExtension checks if a filename has any of the given extensions.
//
// This is a case-insensitive suffix check, used to route sources to the
// device or host compiler.
//
//	if MatchesExtension(source, ".cu") {
//	    // device code
//	}
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// BuildFailure is the error returned when a compiler or the configured
// build command fails. It keeps the captured output so the caller can
// print the diagnostics verbatim, and the tool's exit status so the
// process can exit with it.
type BuildFailure struct {
	Backend string   // Backend or step label, e.g. "nvcc", "nvcc link"
	Output  []string // Captured output of the failing command
	Err     error    // Underlying error, usually *exec.ExitError
}

// Error formats the failure with the build output appended.
//
// With error and output:
//
//	nvcc build failed: exit status 2
//
//	Build output:
//	spatial.cu(12): error: identifier "foo" is undefined
func (e *BuildFailure) Error() string {
	var prefix string
	if e.Err != nil {
		prefix = fmt.Sprintf("%s build failed: %v", e.Backend, e.Err)
	} else {
		prefix = fmt.Sprintf("%s build failed", e.Backend)
	}

	if outputStr := strings.Join(e.Output, "\n"); outputStr != "" {
		return fmt.Sprintf("%s\n\nBuild output:\n%s", prefix, outputStr)
	}
	return prefix
}

func (e *BuildFailure) Unwrap() error {
	return e.Err
}

// ExitStatus returns the failing tool's exit code, or 1 when the tool
// did not exit normally (not found, killed by a signal).
func (e *BuildFailure) ExitStatus() int {
	if code := sh.ExitStatus(e.Err); code > 0 {
		return code
	}
	return 1
}

// BuildError creates a standardized build error with output context.
//
//	err := BuildError("nvcc", output, fmt.Errorf("exit status 2"))
func BuildError(backend string, output []string, err error) error {
	return &BuildFailure{
		Backend: backend,
		Output:  append([]string(nil), output...),
		Err:     err,
	}
}

// splitOutput turns combined command output into lines, dropping the
// trailing empty line most tools emit.
func splitOutput(output []byte) []string {
	text := strings.TrimRight(string(output), "\r\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
