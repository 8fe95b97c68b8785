package cudaext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var loadableModuleSuffixes = map[string]struct{}{
	".so":    {},
	".pyd":   {},
	".dylib": {},
	".dll":   {},
}

// moduleSuffix is the file suffix the host runtime loads extension
// modules from on the given platform.
func moduleSuffix(env Environment) string {
	if env.IsWindows() {
		return ".pyd"
	}
	return ".so"
}

// moduleFile is the module's path relative to an output root,
// e.g. simple_knn/_C.so.
func moduleFile(cfg *Configuration) string {
	return filepath.FromSlash(cfg.ModulePath()) + moduleSuffix(cfg.Environment())
}

// finalizeArtifacts copies built modules into DestPath following the
// package layout and returns the installed paths. Without a DestPath the
// build outputs are returned as they are.
func finalizeArtifacts(cfg *Configuration, opts *BuildOptions, built []string) ([]string, error) {
	if len(built) == 0 {
		return nil, fmt.Errorf("no loadable module produced for %s", cfg.ModuleName())
	}

	if opts.DestPath == "" {
		return uniqueStrings(built), nil
	}

	var installed []string
	for _, path := range built {
		if !isLoadableModule(path) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		dest := filepath.Join(opts.DestPath, installRelativePath(cfg, path))
		if err := copyFile(path, dest); err != nil {
			return nil, fmt.Errorf("install %s: %w", filepath.Base(path), err)
		}
		installed = append(installed, dest)
	}

	if len(installed) == 0 {
		return nil, fmt.Errorf("no loadable module among build outputs: %v", built)
	}

	return uniqueStrings(installed), nil
}

// installRelativePath places the primary module at its package path and
// any other loadable outputs next to it.
func installRelativePath(cfg *Configuration, built string) string {
	primary := moduleFile(cfg)
	if filepath.Base(built) == filepath.Base(primary) {
		return primary
	}
	return filepath.Join(filepath.Dir(primary), filepath.Base(built))
}

func isLoadableModule(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := loadableModuleSuffixes[ext]
	return ok
}

func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	var result []string

	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}
