package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger on stderr. LOG_LEVEL selects the level (default info).
// stdout stays free for command output and the stdio bridge.
func New() *zap.Logger {
	return NewWithLevel(os.Getenv("LOG_LEVEL"))
}

func NewWithLevel(level string) *zap.Logger {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl.SetLevel(zapcore.InfoLevel)
		}
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if os.Getenv("NO_COLOR") != "" {
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller())
}
