package runlog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes a structured JSON log of one orchestration run, for CI
// archiving. A nil-configured logger drops everything.
type Logger struct {
	z *zap.Logger
}

// New creates a run logger writing to path. When verbose is false the
// logger is a no-op.
func New(verbose bool, path string) (*Logger, error) {
	if !verbose {
		return &Logger{z: zap.NewNop()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log dir: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	return &Logger{z: z}, nil
}

// Step logs a pipeline step transition
func (l *Logger) Step(name string, fields ...zap.Field) {
	l.z.Info("step", append([]zap.Field{zap.String("step", name)}, fields...)...)
}

// Trial logs the verdict of one trial merge
func (l *Logger) Trial(kind, label, result string, fields ...zap.Field) {
	l.z.Info("trial",
		append([]zap.Field{
			zap.String("kind", kind),
			zap.String("label", label),
			zap.String("result", result),
		}, fields...)...)
}

// Error logs a fatal condition before the run aborts
func (l *Logger) Error(msg string, err error) {
	l.z.Error(msg, zap.Error(err))
}

// Sync flushes buffered entries
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
