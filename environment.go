package cudaext

import "runtime"

const (
	platformWindows = "windows"
	platformLinux   = "linux"

	// DefaultStoreRoot is where content-addressed package stores keep
	// their entries on Linux distributions that use one.
	DefaultStoreRoot = "/nix/store"
)

// Environment is the set of host facts configuration assembly depends on.
//
// Assembly never consults the running system directly; callers pass an
// Environment so every platform branch can be exercised from tests.
type Environment struct {
	// GOOS is the operating system family, in runtime.GOOS spelling.
	GOOS string `yaml:"goos"`

	// StoreRoot is the package store scanned for the libxcrypt headers.
	// Empty disables the probe.
	StoreRoot string `yaml:"storeRoot,omitempty"`
}

// DetectEnvironment describes the machine the process is running on.
func DetectEnvironment() Environment {
	env := Environment{GOOS: runtime.GOOS}
	if env.GOOS == platformLinux {
		env.StoreRoot = DefaultStoreRoot
	}
	return env
}

// IsWindows reports whether the environment targets the MSVC toolchain.
func (e Environment) IsWindows() bool {
	return e.GOOS == platformWindows
}
