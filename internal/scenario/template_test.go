package scenario

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestRandomInt(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := randomInt(1, 5)
		if v < 1 || v > 5 {
			t.Fatalf("randomInt(1, 5) = %d, out of range", v)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Errorf("randomInt(1, 5) produced %d distinct values, want 5 (bounds inclusive)", len(seen))
	}

	if v := randomInt(7, 7); v != 7 {
		t.Errorf("randomInt(7, 7) = %d, want 7", v)
	}
}

func TestRandomFloat(t *testing.T) {
	for i := 0; i < 500; i++ {
		s := randomFloat(100, 50000, 2)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("randomFloat returned %q: %v", s, err)
		}
		if v < 100 || v > 50000 {
			t.Fatalf("randomFloat = %v, out of range", v)
		}
		if dot := strings.IndexByte(s, '.'); dot < 0 || len(s)-dot-1 != 2 {
			t.Fatalf("randomFloat = %q, want 2 decimal places", s)
		}
	}
}

func TestRandomChoice(t *testing.T) {
	if got := randomChoice(); got != "" {
		t.Errorf("randomChoice() = %q, want empty", got)
	}
	if got := randomChoice("only"); got != "only" {
		t.Errorf("randomChoice(only) = %q", got)
	}
}

func TestTemplateEngine(t *testing.T) {
	engine := NewTemplateEngine()

	tmpl, err := engine.Parse("t", `{"id": "{{requestID}}", "n": {{randomInt 3 3}}, "c": "{{randomChoice "x"}}", "u": "{{uuid}}"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out, err := engine.Execute(tmpl, TemplateData{RequestID: "abc"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{`"id": "abc"`, `"n": 3`, `"c": "x"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, `"u": ""`) {
		t.Errorf("uuid rendered empty: %q", out)
	}
}

func TestTemplateEngine_RandomLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(path, []byte("alice\n\nbob\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := NewTemplateEngine()
	for i := 0; i < 20; i++ {
		line, err := engine.randomLine(path)
		if err != nil {
			t.Fatalf("randomLine() error = %v", err)
		}
		if line != "alice" && line != "bob" {
			t.Errorf("randomLine() = %q", line)
		}
	}

	if _, err := engine.randomLine(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("randomLine() on missing file: want error")
	}
}
