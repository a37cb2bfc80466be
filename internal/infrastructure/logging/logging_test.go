package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWithLevel(t *testing.T) {
	if !NewWithLevel("debug").Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be enabled")
	}
	if NewWithLevel("").Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected info default")
	}
	if NewWithLevel("nonsense").Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected info fallback for an unknown level")
	}
}
