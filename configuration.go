package cudaext

import (
	"strings"
)

// Tool identifies a compiler in the per-tool flag mapping.
type Tool string

const (
	// DeviceCompiler compiles the GPU kernels.
	DeviceCompiler Tool = "nvcc"
	// HostCompiler compiles the CPU binding code.
	HostCompiler Tool = "cxx"
)

const (
	// PackageName is the host-runtime package the module belongs to.
	PackageName = "simple_knn"
	// SubmoduleName is the implementation-detail submodule.
	SubmoduleName = "_C"

	// msvcTemplateWarning silences C4624 from MSVC standard headers when
	// they meet the generated binding code.
	msvcTemplateWarning = "/wd4624"
)

// computeCapabilities are the GPU generations code is generated for, in
// emission order.
var computeCapabilities = []string{"60", "61", "70", "75", "80", "86"}

// sourceFiles are compiled in this order: spatial kernel, driver kernel,
// binding glue.
var sourceFiles = []string{"spatial.cu", "simple_knn.cu", "ext.cpp"}

// Configuration is the immutable description of one extension build.
//
// Build it with AssembleConfiguration; accessors hand out copies.
type Configuration struct {
	moduleName  string
	sources     []string
	flags       map[Tool][]string
	includePath string
	env         Environment
}

// AssembleConfiguration derives the build configuration from the
// environment and the include probe outcome. It performs no I/O.
func AssembleConfiguration(env Environment, probe ProbeResult) *Configuration {
	device := make([]string, 0, len(computeCapabilities)+1)
	for _, cc := range computeCapabilities {
		device = append(device, gencodeFlag(cc))
	}
	if probe.Found() {
		device = append(device, "-I"+probe.Dir)
	}

	host := []string{}
	if env.IsWindows() {
		host = append(host, msvcTemplateWarning)
	}

	return &Configuration{
		moduleName: PackageName + "." + SubmoduleName,
		sources:    append([]string(nil), sourceFiles...),
		flags: map[Tool][]string{
			DeviceCompiler: device,
			HostCompiler:   host,
		},
		includePath: probe.Dir,
		env:         env,
	}
}

func gencodeFlag(cc string) string {
	return "-gencode=arch=compute_" + cc + ",code=compute_" + cc
}

// ModuleName returns the dotted module identifier, e.g. "simple_knn._C".
func (c *Configuration) ModuleName() string {
	return c.moduleName
}

// ModulePath returns the module identifier as a relative path without
// suffix, e.g. "simple_knn/_C".
func (c *Configuration) ModulePath() string {
	return strings.ReplaceAll(c.moduleName, ".", "/")
}

// Sources returns the source files in compile order.
func (c *Configuration) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Flags returns the flag list for one compiler. Unknown tools yield an
// empty, non-nil slice.
func (c *Configuration) Flags(tool Tool) []string {
	return append([]string{}, c.flags[tool]...)
}

// DeviceFlags is shorthand for Flags(DeviceCompiler).
func (c *Configuration) DeviceFlags() []string {
	return c.Flags(DeviceCompiler)
}

// HostFlags is shorthand for Flags(HostCompiler).
func (c *Configuration) HostFlags() []string {
	return c.Flags(HostCompiler)
}

// IncludePath returns the probed include directory, or "" when the probe
// found nothing.
func (c *Configuration) IncludePath() string {
	return c.includePath
}

// Environment returns the environment the configuration was assembled for.
func (c *Configuration) Environment() Environment {
	return c.env
}

// MarshalYAML renders the configuration for the config command.
func (c *Configuration) MarshalYAML() (interface{}, error) {
	type view struct {
		Module        string              `yaml:"module"`
		Sources       []string            `yaml:"sources"`
		CompilerFlags map[string][]string `yaml:"compilerFlags"`
		IncludePath   string              `yaml:"includePath,omitempty"`
		Platform      string              `yaml:"platform"`
	}

	flags := make(map[string][]string, len(c.flags))
	for tool, list := range c.flags {
		flags[string(tool)] = append([]string{}, list...)
	}

	return view{
		Module:        c.moduleName,
		Sources:       c.Sources(),
		CompilerFlags: flags,
		IncludePath:   c.includePath,
		Platform:      c.env.GOOS,
	}, nil
}
