package cudaext

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

const (
	shimLibrary = "libxcrypt"
	shimHeader  = "crypt.h"
)

// ProbeResult is the outcome of ProbeIncludePath.
//
// Dir is the include directory to add, or empty when nothing was found.
// Err is set only when the lookup itself failed (unreadable store, bad
// pattern); it never fails a build and exists so callers can tell "not
// present" apart from "could not look".
type ProbeResult struct {
	Dir string
	Err error
}

// Found reports whether the probe produced an include directory.
func (r ProbeResult) Found() bool {
	return r.Dir != ""
}

// ProbeIncludePath looks for the libxcrypt crypt.h header inside the
// environment's package store.
//
// Stores lay packages out as <root>/<hash>-<name>/include/..., so the
// search is a single-level glob. Only headers whose path names libxcrypt
// qualify; other packages shipping a crypt.h are ignored. Matches are
// sorted so the chosen directory does not depend on directory order.
func ProbeIncludePath(env Environment) (result ProbeResult) {
	if env.StoreRoot == "" {
		return ProbeResult{}
	}

	defer func() {
		if r := recover(); r != nil {
			result = ProbeResult{Err: fmt.Errorf("probe %s: %v", env.StoreRoot, r)}
		}
	}()

	if _, err := os.Stat(env.StoreRoot); err != nil {
		if os.IsNotExist(err) {
			return ProbeResult{}
		}
		return ProbeResult{Err: err}
	}

	pattern := filepath.Join(env.StoreRoot, "*", "include", shimHeader)
	matches, err := doublestar.Glob(pattern)
	if err != nil {
		return ProbeResult{Err: fmt.Errorf("glob %s: %w", pattern, err)}
	}

	sort.Strings(matches)
	for _, match := range matches {
		if strings.Contains(match, shimLibrary) {
			return ProbeResult{Dir: filepath.Dir(match)}
		}
	}

	return ProbeResult{}
}
