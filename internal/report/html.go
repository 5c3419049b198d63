package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strconv"
)

// htmlData is what the HTML template renders.
type htmlData struct {
	*Document
	Title          string
	MaxScenario    int
	StatusCodeRows []StatusCount
}

// WriteHTML renders doc as a standalone HTML page.
func WriteHTML(w io.Writer, doc *Document) error {
	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	data := htmlData{Document: doc, Title: doc.Name}
	if data.Title == "" {
		data.Title = "mixload"
	}
	for _, sc := range doc.Summary.Scenarios {
		if sc.Count > data.MaxScenario {
			data.MaxScenario = sc.Count
		}
	}
	for code, count := range doc.Summary.StatusCodes {
		status, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		data.StatusCodeRows = append(data.StatusCodeRows, StatusCount{Status: status, Count: count})
	}
	sort.Slice(data.StatusCodeRows, func(i, j int) bool {
		return data.StatusCodeRows[i].Status < data.StatusCodeRows[j].Status
	})

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatSeconds": formatSeconds,
		"formatNumber":  formatNumber,
		"barWidth":      barWidth,
		"statusClass":   statusClass,
	}
}

// formatSeconds formats a latency given in seconds.
func formatSeconds(s float64) string {
	switch {
	case s == 0:
		return "0"
	case s < 0.001:
		return fmt.Sprintf("%.0fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.1fms", s*1e3)
	default:
		return fmt.Sprintf("%.2fs", s)
	}
}

// formatNumber formats a count with thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := strconv.Itoa(n)
	result := make([]byte, 0, len(str)+len(str)/3)
	for i := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}

// barWidth returns count as a percentage of max.
func barWidth(count, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(count) / float64(max) * 100
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "fail"
	case status >= 400:
		return "warn"
	default:
		return "pass"
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Load Test Report</title>
    <style>
        :root {
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --muted: #64748b;
            --border: #e2e8f0;
            --accent: #3b82f6;
            --success: #22c55e;
            --warning: #f59e0b;
            --error: #ef4444;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
        }
        .container { max-width: 1100px; margin: 0 auto; padding: 2rem; }
        .card {
            background: var(--card);
            border-radius: 12px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
            box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }
        .header { display: flex; justify-content: space-between; align-items: center; flex-wrap: wrap; gap: 1rem; }
        .meta { color: var(--muted); font-size: 0.875rem; }
        .status { padding: 0.5rem 1.25rem; border-radius: 8px; font-weight: 600; }
        .status.pass { background: rgba(34, 197, 94, 0.1); color: var(--success); }
        .status.fail { background: rgba(239, 68, 68, 0.1); color: var(--error); }
        .status.warn { background: rgba(245, 158, 11, 0.1); color: var(--warning); }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 1rem; }
        .metric .label { color: var(--muted); font-size: 0.8rem; text-transform: uppercase; }
        .metric .value { font-size: 1.5rem; font-weight: 700; }
        h2 { font-size: 1.1rem; margin-bottom: 1rem; }
        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid var(--border); }
        th { color: var(--muted); font-weight: 600; }
        .bar { background: var(--accent); height: 0.6rem; border-radius: 4px; }
        td.pass { color: var(--success); }
        td.warn { color: var(--warning); }
        td.fail { color: var(--error); }
    </style>
</head>
<body>
<div class="container">
    <div class="card header">
        <div>
            <h1>{{.Title}}</h1>
            <div class="meta">
                {{if .TargetURL}}{{.TargetURL}} &middot; {{end}}{{.Workers}} workers &middot;
                {{.StartTime.Format "2006-01-02 15:04:05"}} &middot; {{printf "%.1f" .Summary.Duration}}s
                {{if .Interrupted}}&middot; interrupted{{end}}
            </div>
        </div>
        {{if .Passed}}<span class="status pass">Passed</span>{{else}}<span class="status fail">Failed</span>{{end}}
    </div>

    <div class="card grid">
        <div class="metric"><div class="label">Requests</div><div class="value">{{formatNumber .Summary.TotalRequests}}</div></div>
        <div class="metric"><div class="label">Successful</div><div class="value">{{formatNumber .Summary.Successful}}</div></div>
        <div class="metric"><div class="label">Failed</div><div class="value">{{formatNumber .Summary.Failed}}</div></div>
        <div class="metric"><div class="label">Success rate</div><div class="value">{{printf "%.2f" .Summary.SuccessRate}}%</div></div>
        <div class="metric"><div class="label">Requests/s</div><div class="value">{{printf "%.2f" .Summary.RequestsPerSecond}}</div></div>
    </div>

    <div class="card">
        <h2>Response times</h2>
        <table>
            <tr><th>Avg</th><th>Min</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr>
            <tr>
                <td>{{formatSeconds .Summary.AvgResponseTime}}</td>
                <td>{{formatSeconds .Summary.MinResponseTime}}</td>
                <td>{{formatSeconds (index .Summary.Percentiles "p50")}}</td>
                <td>{{formatSeconds (index .Summary.Percentiles "p90")}}</td>
                <td>{{formatSeconds (index .Summary.Percentiles "p95")}}</td>
                <td>{{formatSeconds (index .Summary.Percentiles "p99")}}</td>
                <td>{{formatSeconds .Summary.MaxResponseTime}}</td>
            </tr>
        </table>
    </div>

    <div class="card">
        <h2>Scenarios</h2>
        <table>
            <tr><th>Scenario</th><th>Requests</th><th>Successful</th><th>Failed</th><th>Avg</th><th style="width:30%"></th></tr>
            {{range .Summary.Scenarios}}
            <tr>
                <td>{{.Label}}</td>
                <td>{{formatNumber .Count}}</td>
                <td>{{formatNumber .Successful}}</td>
                <td>{{formatNumber .Failed}}</td>
                <td>{{formatSeconds .AvgResponseTime}}</td>
                <td><div class="bar" style="width: {{printf "%.1f" (barWidth .Count $.MaxScenario)}}%"></div></td>
            </tr>
            {{end}}
        </table>
    </div>

    {{if .StatusCodeRows}}
    <div class="card">
        <h2>Status codes</h2>
        <table>
            <tr><th>Status</th><th>Count</th></tr>
            {{range .StatusCodeRows}}<tr><td class="{{statusClass .Status}}">{{.Status}}</td><td>{{formatNumber .Count}}</td></tr>{{end}}
        </table>
    </div>
    {{end}}

    {{if .Summary.Errors}}
    <div class="card">
        <h2>Errors</h2>
        <table>
            <tr><th>Error</th><th>Count</th></tr>
            {{range .Summary.Errors}}<tr><td class="fail">{{.Message}}</td><td>{{formatNumber .Count}}</td></tr>{{end}}
        </table>
    </div>
    {{end}}

    {{if .Thresholds}}
    <div class="card">
        <h2>Thresholds</h2>
        <table>
            <tr><th></th><th>Expression</th><th>Actual</th><th></th></tr>
            {{range .Thresholds}}
            <tr>
                {{if .Passed}}<td class="pass">&#10003;</td>{{else}}<td class="fail">&#10007;</td>{{end}}
                <td>{{.Expression}}</td>
                <td>{{.Value}}</td>
                <td class="meta">{{.Message}}</td>
            </tr>
            {{end}}
        </table>
    </div>
    {{end}}
</div>
</body>
</html>
`
