package cudaext

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML file controlling a build. Every field
// has a default; a missing file is not an error for the CLI.
//
//	logger:
//	  verbosity: debug
//	backend: nvcc
//	build:
//	  sourceDir: submodules/simple-knn
//	  parallel: 2
//	  includeDirs:
//	    - /opt/torch/include
type Settings struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`

	Backend string `yaml:"backend"`

	Store struct {
		// Root overrides the package store location; disabled skips
		// the libxcrypt probe.
		Root     string `yaml:"root"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"store"`

	Build struct {
		SourceDir   string            `yaml:"sourceDir"`
		BuildDir    string            `yaml:"buildDir"`
		DestPath    string            `yaml:"destPath"`
		Nvcc        string            `yaml:"nvcc"`
		CXX         string            `yaml:"cxx"`
		IncludeDirs []string          `yaml:"includeDirs"`
		LinkArgs    []string          `yaml:"linkArgs"`
		Env         map[string]string `yaml:"env"`
		Command     []string          `yaml:"command"`
		Parallel    int               `yaml:"parallel"`
		Verbose     bool              `yaml:"verbose"`
		CleanFirst  bool              `yaml:"cleanFirst"`
	} `yaml:"build"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	s := &Settings{Backend: "nvcc"}
	s.Logger.Verbosity = "info"
	s.Build.SourceDir = "."
	return s
}

// LoadSettings reads a YAML settings file over DefaultSettings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	err = yaml.Unmarshal(data, settings)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// Environment applies the store settings to a detected environment.
func (s *Settings) Environment(detected Environment) Environment {
	env := detected
	if s.Store.Root != "" {
		env.StoreRoot = s.Store.Root
	}
	if s.Store.Disabled {
		env.StoreRoot = ""
	}
	return env
}

// BuildOptions converts the build section into backend options.
func (s *Settings) BuildOptions() *BuildOptions {
	return &BuildOptions{
		SourceDir:   s.Build.SourceDir,
		BuildDir:    s.Build.BuildDir,
		DestPath:    s.Build.DestPath,
		NvccPath:    s.Build.Nvcc,
		CXXPath:     s.Build.CXX,
		IncludeDirs: append([]string(nil), s.Build.IncludeDirs...),
		LinkArgs:    append([]string(nil), s.Build.LinkArgs...),
		Env:         s.Build.Env,
		Command:     append([]string(nil), s.Build.Command...),
		Parallel:    s.Build.Parallel,
		Verbose:     s.Build.Verbose,
		CleanFirst:  s.Build.CleanFirst,
	}
}
