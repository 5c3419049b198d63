// Package scenario turns configured request types into load.Actions that
// issue HTTP calls with freshly rendered payloads.
package scenario

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

// TemplateEngine parses and renders body and header templates.
//
// Template functions draw from the package level math/rand source, which is
// safe for concurrent use by all workers.
type TemplateEngine struct {
	fileCache map[string][]string
	mu        sync.RWMutex
	funcMap   template.FuncMap
}

// TemplateData is passed to every template execution.
type TemplateData struct {
	RequestID string
}

// NewTemplateEngine initializes the engine and its functions.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"randomInt":    randomInt,
		"randomFloat":  randomFloat,
		"randomChoice": randomChoice,
		"randomLine":   e.randomLine,
		"uuid":         uuid.NewString,
	}

	return e
}

// Parse creates a new template with the engine's functions.
// {{requestID}} is shorthand for the per-call request id.
func (e *TemplateEngine) Parse(name, text string) (*template.Template, error) {
	text = strings.ReplaceAll(text, "{{requestID}}", "{{.RequestID}}")
	return template.New(name).Funcs(e.funcMap).Option("missingkey=error").Parse(text)
}

// Execute runs the template with data.
func (e *TemplateEngine) Execute(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// randomInt returns a uniform integer in [min, max].
func randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// randomFloat returns a uniform number in [min, max) formatted with the
// given number of decimal places.
func randomFloat(min, max float64, places int) string {
	v := min
	if max > min {
		v = min + rand.Float64()*(max-min)
	}
	return strconv.FormatFloat(v, 'f', places, 64)
}

func randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}

// randomLine returns a random non-empty line of filename. Files are read
// once and cached.
func (e *TemplateEngine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()

	if !ok {
		var err error
		if lines, err = e.loadLines(filename); err != nil {
			return "", err
		}
	}

	if len(lines) == 0 {
		return "", nil
	}
	return lines[rand.Intn(len(lines))], nil
}

func (e *TemplateEngine) loadLines(filename string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lines, ok := e.fileCache[filename]; ok {
		return lines, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			loaded = append(loaded, line)
		}
	}

	e.fileCache[filename] = loaded
	return loaded, nil
}
