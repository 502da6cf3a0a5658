// Package logging builds the structured logger the daemon threads into
// the core session/transport layers via session.WithLogger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger writing ISO8601-timestamped,
// capital-level console output to stdout at levelStr ("debug", "info",
// "warn", "error"). An empty levelStr defaults to info; an unrecognized one
// returns an error.
func New(levelStr string) (*zap.SugaredLogger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", levelStr, err)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}
