package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ThresholdResult is the verdict of one threshold expression.
type ThresholdResult struct {
	Metric     string `json:"metric"`
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Value      string `json:"value"`
	Message    string `json:"message,omitempty"`
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*([<>=!]+)\s*(.+)$`)

var durationMetrics = map[string]func(*Summary) time.Duration{
	"avg": func(s *Summary) time.Duration { return s.AvgElapsed },
	"min": func(s *Summary) time.Duration { return s.MinElapsed },
	"max": func(s *Summary) time.Duration { return s.MaxElapsed },
	"p50": func(s *Summary) time.Duration { return s.Latency.P50 },
	"p90": func(s *Summary) time.Duration { return s.Latency.P90 },
	"p95": func(s *Summary) time.Duration { return s.Latency.P95 },
	"p99": func(s *Summary) time.Duration { return s.Latency.P99 },
}

var numberMetrics = map[string]func(*Summary) float64{
	"total":       func(s *Summary) float64 { return float64(s.Total) },
	"successful":  func(s *Summary) float64 { return float64(s.Successful) },
	"failed":      func(s *Summary) float64 { return float64(s.Failed) },
	"successRate": func(s *Summary) float64 { return s.SuccessRate },
	"failureRate": func(s *Summary) float64 { return failureRate(s) },
	"rps":         func(s *Summary) float64 { return s.RequestsPerSecond },
}

func failureRate(s *Summary) float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 - s.SuccessRate
}

// Passed reports whether every result passed.
func Passed(results []ThresholdResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Evaluate checks every expression against the summary.
//
// Expressions have the form "<metric> <op> <value>", for example
// "p95 < 500ms", "successRate >= 99" or "failed == 0". Latency metrics
// (avg, min, max, p50, p90, p95, p99) take Go durations; rates are
// percentages and may carry a trailing %.
func Evaluate(s *Summary, exprs []string) []ThresholdResult {
	results := make([]ThresholdResult, 0, len(exprs))
	for _, expr := range exprs {
		results = append(results, evaluate(s, expr))
	}
	return results
}

func evaluate(s *Summary, expr string) ThresholdResult {
	result := ThresholdResult{Expression: expr}

	metric, op, valueStr, err := parseThresholdExpression(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}
	result.Metric = metric

	if get, ok := durationMetrics[metric]; ok {
		threshold, err := time.ParseDuration(valueStr)
		if err != nil {
			result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
			return result
		}

		actual := get(s)
		result.Value = actual.String()
		result.Passed = compareValues(float64(actual), op, float64(threshold))
		if !result.Passed {
			result.Message = fmt.Sprintf("%s is %s, threshold: %s %s", metric, actual, op, threshold)
		}
		return result
	}

	if get, ok := numberMetrics[metric]; ok {
		threshold, err := strconv.ParseFloat(strings.TrimSuffix(valueStr, "%"), 64)
		if err != nil {
			result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
			return result
		}

		actual := get(s)
		result.Value = fmt.Sprintf("%.2f", actual)
		result.Passed = compareValues(actual, op, threshold)
		if !result.Passed {
			result.Message = fmt.Sprintf("%s is %.2f, threshold: %s %.2f", metric, actual, op, threshold)
		}
		return result
	}

	result.Message = fmt.Sprintf("unknown metric: %s", metric)
	return result
}

// ValidateThreshold checks that expr can be evaluated.
func ValidateThreshold(expr string) error {
	metric, op, valueStr, err := parseThresholdExpression(expr)
	if err != nil {
		return err
	}
	if !validOperator(op) {
		return fmt.Errorf("unknown operator %q", op)
	}
	if _, ok := durationMetrics[metric]; ok {
		if _, err := time.ParseDuration(valueStr); err != nil {
			return fmt.Errorf("invalid duration %q for %s", valueStr, metric)
		}
		return nil
	}
	if _, ok := numberMetrics[metric]; ok {
		if _, err := strconv.ParseFloat(strings.TrimSuffix(valueStr, "%"), 64); err != nil {
			return fmt.Errorf("invalid number %q for %s", valueStr, metric)
		}
		return nil
	}
	return fmt.Errorf("unknown metric: %s", metric)
}

// parseThresholdExpression parses an expression like "p95 < 500ms".
func parseThresholdExpression(expr string) (metric, op, value string, err error) {
	matches := thresholdPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if len(matches) != 4 {
		return "", "", "", fmt.Errorf("invalid expression format: %s", expr)
	}

	return matches[1], matches[2], strings.TrimSpace(matches[3]), nil
}

func validOperator(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "=", "!=", "<>":
		return true
	}
	return false
}

// compareValues compares two values using the given operator.
func compareValues(actual float64, op string, threshold float64) bool {
	switch op {
	case "<":
		return actual < threshold
	case "<=":
		return actual <= threshold
	case ">":
		return actual > threshold
	case ">=":
		return actual >= threshold
	case "==", "=":
		return actual == threshold
	case "!=", "<>":
		return actual != threshold
	default:
		return false
	}
}
