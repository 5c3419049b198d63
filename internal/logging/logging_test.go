package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		verbose bool
		debugOn bool
		warnOn  bool
		infoOn  bool
	}{
		{verbose: false, debugOn: false, warnOn: true, infoOn: false},
		{verbose: true, debugOn: true, warnOn: true, infoOn: true},
	}

	for _, tt := range tests {
		logger, err := New(tt.verbose)
		if err != nil {
			t.Fatalf("New(%v) error = %v", tt.verbose, err)
		}
		core := logger.Core()
		if got := core.Enabled(zapcore.DebugLevel); got != tt.debugOn {
			t.Errorf("New(%v) debug enabled = %v, want %v", tt.verbose, got, tt.debugOn)
		}
		if got := core.Enabled(zapcore.InfoLevel); got != tt.infoOn {
			t.Errorf("New(%v) info enabled = %v, want %v", tt.verbose, got, tt.infoOn)
		}
		if got := core.Enabled(zapcore.WarnLevel); got != tt.warnOn {
			t.Errorf("New(%v) warn enabled = %v, want %v", tt.verbose, got, tt.warnOn)
		}
	}
}

func TestMustNew(t *testing.T) {
	if MustNew(false) == nil {
		t.Error("MustNew returned nil")
	}
}
