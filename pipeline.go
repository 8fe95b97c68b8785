package cudaext

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Pipeline runs one extension build: probe, assemble, delegate.
//
//	p := &cudaext.Pipeline{
//	    Env:     cudaext.DetectEnvironment(),
//	    Backend: &cudaext.NvccBackend{},
//	    Options: &cudaext.BuildOptions{SourceDir: "submodules/simple-knn"},
//	    Logger:  log,
//	}
//	result, err := p.Run(ctx)
//	os.Exit(cudaext.ExitStatus(err))
type Pipeline struct {
	Env     Environment
	Backend Backend
	Options *BuildOptions
	Logger  *zap.Logger

	// Probe overrides ProbeIncludePath, mostly for tests.
	Probe func(Environment) ProbeResult
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Configure probes the environment and assembles the configuration.
// Probe failures are logged at debug level and otherwise ignored.
func (p *Pipeline) Configure() *Configuration {
	probe := p.Probe
	if probe == nil {
		probe = ProbeIncludePath
	}

	result := probe(p.Env)
	log := p.logger()
	switch {
	case result.Found():
		log.Info("found libxcrypt headers", zap.String("dir", result.Dir))
	case result.Err != nil:
		log.Debug("libxcrypt probe failed, continuing without it",
			zap.String("storeRoot", p.Env.StoreRoot), zap.Error(result.Err))
	}

	return AssembleConfiguration(p.Env, result)
}

// Run assembles the configuration and hands it to the backend. The
// backend's error is returned unchanged so ExitStatus can see the
// compiler's exit code.
func (p *Pipeline) Run(ctx context.Context) (*BuildResult, error) {
	if p.Backend == nil {
		return nil, errors.New("no build backend configured")
	}

	cfg := p.Configure()
	log := p.logger().With(zap.String("module", cfg.ModuleName()), zap.String("backend", p.Backend.Name()))

	log.Info("building extension",
		zap.Strings("sources", cfg.Sources()),
		zap.Strings("nvccFlags", cfg.DeviceFlags()),
		zap.Strings("cxxFlags", cfg.HostFlags()))

	if err := ctx.Err(); err != nil {
		return &BuildResult{Error: err}, err
	}

	result, err := p.Backend.Build(ctx, cfg, p.Options)
	if result == nil {
		result = &BuildResult{Success: err == nil, Error: err}
	}
	if err != nil {
		log.Error("extension build failed", zap.Int("exitStatus", ExitStatus(err)))
		return result, err
	}

	log.Info("extension built", zap.Strings("artifacts", result.Artifacts))
	return result, nil
}

// Clean asks the backend to remove its build output.
func (p *Pipeline) Clean(ctx context.Context) error {
	if p.Backend == nil {
		return errors.New("no build backend configured")
	}
	cfg := p.Configure()
	if err := p.Backend.Clean(ctx, cfg, p.Options); err != nil {
		return fmt.Errorf("clean %s: %w", cfg.ModuleName(), err)
	}
	return nil
}

// ExitStatus maps a build error to a process exit code: 0 for nil, the
// compiler's own code for tool failures, 1 for anything else.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}

	var coded interface{ ExitStatus() int }
	if errors.As(err, &coded) {
		if code := coded.ExitStatus(); code > 0 {
			return code
		}
	}
	return 1
}
