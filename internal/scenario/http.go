package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/wesleyorama2/mixload/internal/config"
	"github.com/wesleyorama2/mixload/internal/load"
)

// RequestIDHeader carries the per-call id.
const RequestIDHeader = "X-Request-ID"

// HTTPAction issues one HTTP request per Execute.
type HTTPAction struct {
	Name    string
	Method  string
	URL     string
	Headers map[string]string

	client *http.Client
	engine *TemplateEngine
	body   *template.Template
}

// Execute renders the body, sends the request and drains the response.
//
// Elapsed is measured from sending the request until the response headers
// arrive. Any HTTP status is a completed call; only transport and
// rendering problems are returned as errors.
func (a *HTTPAction) Execute(ctx context.Context) (load.Result, error) {
	requestID := uuid.NewString()

	var body io.Reader
	if a.body != nil {
		rendered, err := a.engine.Execute(a.body, TemplateData{RequestID: requestID})
		if err != nil {
			return load.Result{}, fmt.Errorf("failed to render body: %w", err)
		}
		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, body)
	if err != nil {
		return load.Result{}, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := a.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return load.Result{}, err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return load.Result{}, fmt.Errorf("failed to read response body: %w", err)
	}

	return load.Result{Status: resp.StatusCode, Elapsed: elapsed}, nil
}

// Build creates the ScenarioSet for cfg. Every body template is parsed and
// rendered once up front; a body that looks like JSON must render to valid
// JSON.
func Build(cfg *config.TestConfig, client *http.Client, logger *zap.Logger) (*load.ScenarioSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := NewTemplateEngine()
	entries := make([]load.Entry, 0, len(cfg.Scenarios))

	for _, sc := range cfg.Scenarios {
		action, err := newHTTPAction(cfg, sc, client, engine)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		entries = append(entries, load.Entry{Label: sc.Name, Weight: sc.Weight, Action: action})
	}

	set, err := load.NewScenarioSet(entries...)
	if err != nil {
		return nil, err
	}
	if set.Normalized() {
		logger.Warn("scenario weights do not sum to 1, normalizing",
			zap.Float64("sum", set.DeclaredWeightSum()))
	}

	return set, nil
}

func newHTTPAction(cfg *config.TestConfig, sc config.ScenarioConfig, client *http.Client, engine *TemplateEngine) (*HTTPAction, error) {
	action := &HTTPAction{
		Name:    sc.Name,
		Method:  sc.Method,
		URL:     resolveURL(cfg.BaseURL, sc.Path),
		Headers: make(map[string]string, len(cfg.Headers)+len(sc.Headers)),
		client:  client,
		engine:  engine,
	}
	if action.Method == "" {
		action.Method = http.MethodGet
	}

	for k, v := range cfg.Headers {
		action.Headers[k] = v
	}
	for k, v := range sc.Headers {
		action.Headers[k] = v
	}

	if sc.Body == "" {
		return action, nil
	}

	tmpl, err := engine.Parse(sc.Name, sc.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid body template: %w", err)
	}

	sample, err := engine.Execute(tmpl, TemplateData{RequestID: uuid.NewString()})
	if err != nil {
		return nil, fmt.Errorf("body template failed: %w", err)
	}
	if looksLikeJSON(sample) && !gjson.Valid(sample) {
		return nil, fmt.Errorf("body does not render to valid JSON: %s", sample)
	}

	action.body = tmpl
	return action, nil
}

func resolveURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
