package main

import (
	"fmt"
	"os"

	cudaext "github.com/contriboss/cudaext-go"
	"github.com/contriboss/cudaext-go/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// app holds what the Before hook loads for the commands.
type app struct {
	settings *cudaext.Settings
	log      *zap.Logger
}

func (a *app) pipeline() (*cudaext.Pipeline, error) {
	backend, err := cudaext.NewBackendFactory().BackendFor(a.settings.Backend)
	if err != nil {
		return nil, err
	}
	return &cudaext.Pipeline{
		Env:     a.settings.Environment(cudaext.DetectEnvironment()),
		Backend: backend,
		Options: a.settings.BuildOptions(),
		Logger:  a.log,
	}, nil
}

func main() {
	state := &app{}
	var configPath, verbosity, sourceDir string

	cliApp := &cli.App{
		Name:  "simple-knn-build",
		Usage: "Build the simple_knn._C CUDA extension module",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to a YAML settings file",
				EnvVars:     []string{"CUDAEXT_CONFIG"},
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "verbosity",
				Usage:       "Log level (debug, info, warn, error)",
				EnvVars:     []string{"CUDAEXT_VERBOSITY"},
				Destination: &verbosity,
			},
			&cli.StringFlag{
				Name:        "source-dir",
				Usage:       "Directory containing spatial.cu, simple_knn.cu and ext.cpp",
				EnvVars:     []string{"CUDAEXT_SOURCE_DIR"},
				Destination: &sourceDir,
			},
		},
		Before: func(c *cli.Context) error {
			settings := cudaext.DefaultSettings()
			if configPath != "" {
				var err error
				settings, err = cudaext.LoadSettings(configPath)
				if err != nil {
					return fmt.Errorf("load settings: %w", err)
				}
			}
			if verbosity != "" {
				settings.Logger.Verbosity = verbosity
			}
			if sourceDir != "" {
				settings.Build.SourceDir = sourceDir
			}

			log, err := logger.New(settings.Logger.Verbosity)
			if err != nil {
				return err
			}
			state.settings = settings
			state.log = log.Named("cudaext")
			return nil
		},
		After: func(c *cli.Context) error {
			if state.log != nil {
				_ = state.log.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return buildAction(state, c)
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Compile and link the extension module",
				Action: func(c *cli.Context) error {
					return buildAction(state, c)
				},
			},
			{
				Name:  "config",
				Usage: "Print the assembled build configuration without building",
				Action: func(c *cli.Context) error {
					p, err := state.pipeline()
					if err != nil {
						return err
					}
					enc := yaml.NewEncoder(c.App.Writer)
					defer enc.Close()
					return enc.Encode(p.Configure())
				},
			},
			{
				Name:  "clean",
				Usage: "Remove the build directory",
				Action: func(c *cli.Context) error {
					p, err := state.pipeline()
					if err != nil {
						return err
					}
					return p.Clean(c.Context)
				},
			},
			{
				Name:  "check-tools",
				Usage: "Verify the backend's compilers are on PATH",
				Action: func(c *cli.Context) error {
					p, err := state.pipeline()
					if err != nil {
						return err
					}
					checker, ok := p.Backend.(cudaext.ToolChecker)
					if !ok {
						fmt.Fprintf(c.App.Writer, "%s backend does not declare its tools\n", p.Backend.Name())
						return nil
					}
					if err := checker.CheckTools(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Fprintf(c.App.Writer, "%s toolchain available\n", p.Backend.Name())
					return nil
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildAction runs the pipeline. Compiler diagnostics go to stderr and
// the process exits with the failing compiler's status.
func buildAction(state *app, c *cli.Context) error {
	p, err := state.pipeline()
	if err != nil {
		return err
	}

	result, err := p.Run(c.Context)
	if err != nil {
		fmt.Fprintln(c.App.ErrWriter, err)
		return cli.Exit("", cudaext.ExitStatus(err))
	}

	for _, artifact := range result.Artifacts {
		fmt.Fprintln(c.App.Writer, artifact)
	}
	return nil
}
