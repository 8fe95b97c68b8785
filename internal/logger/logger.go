package logger

import (
	"go.uber.org/zap"
)

// New builds a production zap logger writing to stderr at the given
// level ("debug", "info", ...). An empty level means info.
func New(verbosity string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if verbosity == "" {
		verbosity = "info"
	}
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level
	return config.Build()
}
