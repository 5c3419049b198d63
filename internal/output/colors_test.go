package output

import (
	"strings"
	"testing"
)

func TestColorSchemes(t *testing.T) {
	scheme := DefaultColorScheme()
	for i, c := range scheme.all() {
		if c == nil {
			t.Errorf("DefaultColorScheme color %d is nil", i)
		}
	}

	plain := NoColorScheme()
	if got := plain.Bad.Sprint("x"); got != "x" {
		t.Errorf("NoColorScheme().Bad.Sprint = %q, want plain text", got)
	}

	forced := DefaultColorScheme().forceColors()
	if got := forced.Bad.Sprint("x"); !strings.Contains(got, "\033[") {
		t.Errorf("forced colors produced %q, want ANSI codes", got)
	}
}

func TestRateColor(t *testing.T) {
	s := NoColorScheme()
	tests := []struct {
		rate float64
		want string
	}{
		{100, "good"},
		{99, "good"},
		{97.5, "warn"},
		{50, "bad"},
		{0, "bad"},
	}

	for _, tt := range tests {
		got := s.rateColor(tt.rate)
		var name string
		switch got {
		case s.Good:
			name = "good"
		case s.Warn:
			name = "warn"
		case s.Bad:
			name = "bad"
		}
		if name != tt.want {
			t.Errorf("rateColor(%v) = %s, want %s", tt.rate, name, tt.want)
		}
	}
}

func TestIcons(t *testing.T) {
	tests := []struct {
		name string
		fn   func(bool) string
		want string
	}{
		{"success", SuccessIcon, "✓"},
		{"error", ErrorIcon, "✗"},
		{"warning", WarningIcon, "⚠"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(true); got != tt.want {
				t.Errorf("%s(true) = %q, want %q", tt.name, got, tt.want)
			}
			if got := tt.fn(false); !strings.Contains(got, tt.want) {
				t.Errorf("%s(false) = %q, should contain %q", tt.name, got, tt.want)
			}
		})
	}
}
