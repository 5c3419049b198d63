package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format represents the available report formats
type Format string

const (
	// FormatText is the human-readable console summary
	FormatText Format = "text"
	// FormatJSON outputs the report document as JSON
	FormatJSON Format = "json"
	// FormatYAML outputs the report document as YAML
	FormatYAML Format = "yaml"
	// FormatJUnit outputs thresholds and scenarios as JUnit XML (for CI/CD integration)
	FormatJUnit Format = "junit"
	// FormatHTML outputs a standalone HTML page
	FormatHTML Format = "html"
)

// ParseFormat parses a format name. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML, FormatJUnit, FormatHTML:
		return f, nil
	case "htm":
		return FormatHTML, nil
	case "yml":
		return FormatYAML, nil
	case "xml":
		return FormatJUnit, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, yaml, junit or html)", s)
}

// FormatForPath picks a format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatJUnit
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatJSON
	}
}

// Document is the machine-readable form of a report. Times are in seconds.
type Document struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	TargetURL   string            `json:"targetUrl,omitempty" yaml:"targetUrl,omitempty"`
	Workers     int               `json:"workers" yaml:"workers"`
	StartTime   time.Time         `json:"startTime" yaml:"startTime"`
	EndTime     time.Time         `json:"endTime" yaml:"endTime"`
	Interrupted bool              `json:"interrupted" yaml:"interrupted"`
	Summary     DocumentSummary   `json:"summary" yaml:"summary"`
	Thresholds  []ThresholdResult `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Passed      bool              `json:"passed" yaml:"passed"`
}

// DocumentSummary mirrors Summary with durations in seconds.
type DocumentSummary struct {
	TotalRequests     int                     `json:"totalRequests" yaml:"totalRequests"`
	Successful        int                     `json:"successfulRequests" yaml:"successfulRequests"`
	Failed            int                     `json:"failedRequests" yaml:"failedRequests"`
	TransportErrors   int                     `json:"transportErrors" yaml:"transportErrors"`
	SuccessRate       float64                 `json:"successRate" yaml:"successRate"`
	AvgResponseTime   float64                 `json:"avgResponseTime" yaml:"avgResponseTime"`
	MinResponseTime   float64                 `json:"minResponseTime" yaml:"minResponseTime"`
	MaxResponseTime   float64                 `json:"maxResponseTime" yaml:"maxResponseTime"`
	Percentiles       map[string]float64      `json:"percentiles" yaml:"percentiles"`
	RequestsPerSecond float64                 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Duration          float64                 `json:"duration" yaml:"duration"`
	Scenarios         []DocumentScenarioCount `json:"scenarios" yaml:"scenarios"`
	StatusCodes       map[string]int          `json:"statusCodes" yaml:"statusCodes"`
	Errors            []ErrorCount            `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// DocumentScenarioCount is one row of the per-scenario breakdown.
type DocumentScenarioCount struct {
	Label           string  `json:"label" yaml:"label"`
	Count           int     `json:"count" yaml:"count"`
	Successful      int     `json:"successful" yaml:"successful"`
	Failed          int     `json:"failed" yaml:"failed"`
	AvgResponseTime float64 `json:"avgResponseTime" yaml:"avgResponseTime"`
}

// NewDocument builds the report document for a summary.
func NewDocument(s *Summary, thresholds []ThresholdResult) *Document {
	doc := &Document{
		Thresholds: thresholds,
		Passed:     Passed(thresholds),
		Summary: DocumentSummary{
			TotalRequests:     s.Total,
			Successful:        s.Successful,
			Failed:            s.Failed,
			TransportErrors:   s.TransportErrors,
			SuccessRate:       s.SuccessRate,
			AvgResponseTime:   s.AvgElapsed.Seconds(),
			MinResponseTime:   s.MinElapsed.Seconds(),
			MaxResponseTime:   s.MaxElapsed.Seconds(),
			RequestsPerSecond: s.RequestsPerSecond,
			Duration:          s.Duration.Seconds(),
			Percentiles: map[string]float64{
				"p50": s.Latency.P50.Seconds(),
				"p90": s.Latency.P90.Seconds(),
				"p95": s.Latency.P95.Seconds(),
				"p99": s.Latency.P99.Seconds(),
			},
			StatusCodes: make(map[string]int, len(s.ByStatus)),
			Errors:      s.Errors,
		},
	}

	doc.Summary.Scenarios = make([]DocumentScenarioCount, 0, len(s.ByScenario))
	for _, sc := range s.ByScenario {
		doc.Summary.Scenarios = append(doc.Summary.Scenarios, DocumentScenarioCount{
			Label:           sc.Label,
			Count:           sc.Count,
			Successful:      sc.Successful,
			Failed:          sc.Failed,
			AvgResponseTime: sc.AvgElapsed.Seconds(),
		})
	}
	for _, st := range s.ByStatus {
		doc.Summary.StatusCodes[fmt.Sprintf("%d", st.Status)] = st.Count
	}

	return doc
}

// Write writes doc in the given machine-readable format.
func Write(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatYAML:
		return WriteYAML(w, doc)
	case FormatJUnit:
		return WriteJUnit(w, doc)
	case FormatHTML:
		return WriteHTML(w, doc)
	default:
		return fmt.Errorf("format %q cannot be written as a document", format)
	}
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes the document as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return enc.Close()
}

// JUnitTestSuites represents the root element containing all test suites
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a JUnit test suite
type JUnitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
	SystemOut string          `xml:"system-out,omitempty"`
}

// JUnitTestCase represents a JUnit test case
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a JUnit test failure
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// WriteJUnit writes thresholds as failing or passing test cases and each
// scenario as an informational test case.
func WriteJUnit(w io.Writer, doc *Document) error {
	name := doc.Name
	if name == "" {
		name = "mixload"
	}

	suite := JUnitTestSuite{
		Name:      name,
		Time:      doc.Summary.Duration,
		Timestamp: doc.StartTime.Format(time.RFC3339),
		SystemOut: fmt.Sprintf("total=%d successful=%d failed=%d successRate=%.2f%% rps=%.2f",
			doc.Summary.TotalRequests, doc.Summary.Successful, doc.Summary.Failed,
			doc.Summary.SuccessRate, doc.Summary.RequestsPerSecond),
	}

	for _, t := range doc.Thresholds {
		tc := JUnitTestCase{
			Name:      t.Expression,
			Classname: name + ".thresholds",
		}
		if !t.Passed {
			msg := t.Message
			if msg == "" {
				msg = fmt.Sprintf("actual %s", t.Value)
			}
			tc.Failure = &JUnitFailure{Message: msg, Type: "ThresholdFailure", Content: t.Value}
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, sc := range doc.Summary.Scenarios {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      sc.Label,
			Classname: name + ".scenarios",
			Time:      sc.AvgResponseTime,
			SystemOut: fmt.Sprintf("count=%d successful=%d failed=%d", sc.Count, sc.Successful, sc.Failed),
		})
	}
	suite.Tests = len(suite.TestCases)

	data, err := xml.MarshalIndent(JUnitTestSuites{TestSuites: []JUnitTestSuite{suite}}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Save writes doc to path. An empty format is picked from the extension.
func Save(path string, format Format, doc *Document) error {
	if format == "" || format == FormatText {
		format = FormatForPath(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := Write(f, format, doc); err != nil {
		return err
	}
	return f.Close()
}
