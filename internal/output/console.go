// Package output renders the console side of a load run: the header, a live
// progress display and the final report.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/mixload/internal/load"
	"github.com/wesleyorama2/mixload/internal/load/metrics"
	"github.com/wesleyorama2/mixload/internal/report"
)

// ANSI escape codes for cursor control
const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"
)

const (
	ruleWidth = 50

	boxHorizontal  = "━"
	boxVertical    = "│"
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"

	progressFilled = "█"
	progressEmpty  = "░"

	// maxErrorLines caps the error breakdown in the summary.
	maxErrorLines = 10
)

// LiveStats contains real-time statistics for display.
type LiveStats struct {
	Progress  float64
	Elapsed   time.Duration
	Remaining time.Duration

	ActiveWorkers int
	Workers       int

	CurrentRPS    float64
	TotalRequests int64
	Failed        int64
	FailureRate   float64

	LatencyP95 time.Duration
	LatencyAvg time.Duration
}

// Console manages console output for one run.
type Console struct {
	name     string
	target   string
	workers  int
	duration time.Duration
	writer   io.Writer
	isTTY    bool
	noColor  bool
	quiet    bool
	colors   *ColorScheme

	mu          sync.Mutex
	linesOutput int
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Name     string
	Target   string
	Workers  int
	Duration time.Duration
	Writer   io.Writer
	Quiet    bool
	NoColor  bool

	// ForceColors and ForceTTY override terminal detection.
	ForceColors bool
	ForceTTY    bool
}

// NewConsole creates a console writer.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	isTTY := config.ForceTTY || isTerminal(config.Writer)
	useColors := !config.NoColor && (config.ForceColors || (isTTY && supportsColors()))

	scheme := NoColorScheme()
	if useColors {
		scheme = DefaultColorScheme().forceColors()
	}

	return &Console{
		name:     config.Name,
		target:   config.Target,
		workers:  config.Workers,
		duration: config.Duration,
		writer:   config.Writer,
		isTTY:    isTTY,
		noColor:  !useColors,
		quiet:    config.Quiet,
		colors:   scheme,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run parameters.
func (c *Console) PrintHeader() {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.name != "" {
		c.writeln(c.colors.Title.Sprint(c.name))
	}
	c.writeln("Starting load test...")
	c.writeln(fmt.Sprintf("Duration: %d seconds", int64(c.duration.Seconds())))
	c.writeln(fmt.Sprintf("Workers: %d", c.workers))
	c.writeln(fmt.Sprintf("Target: %s", c.colors.Value.Sprint(c.target)))
	c.writeln(strings.Repeat("-", ruleWidth))
}

// PrintScenarioMix lists the scenarios with their effective weights.
func (c *Console) PrintScenarioMix(set *load.ScenarioSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(c.colors.Title.Sprint("Scenario mix:"))
	for _, e := range set.Entries() {
		c.writeln(fmt.Sprintf("  %-16s %s", e.Label, c.colors.Value.Sprintf("%5.1f%%", e.Weight*100)))
	}
	if set.Normalized() {
		c.writeln(fmt.Sprintf("  %s declared weights summed to %.4f and were normalized",
			WarningIcon(c.noColor), set.DeclaredWeightSum()))
	}
}

// Update redraws the live display. It is a no-op unless the output is a
// terminal; use PrintProgress otherwise.
func (c *Console) Update(stats *LiveStats) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()

	lines := c.renderLiveStats(stats)
	c.linesOutput = len(lines)
	for _, line := range lines {
		c.writeln(line)
	}
}

// PrintProgress prints a single status line. Used when output is not a TTY
// (e.g., piped to a file or CI/CD).
func (c *Console) PrintProgress(stats *LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Progress: %.0f%% | Workers: %d | Reqs: %d | RPS: %.1f | Failed: %d (%.1f%%) | P95: %s",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveWorkers,
		stats.TotalRequests,
		stats.CurrentRPS,
		stats.Failed,
		stats.FailureRate*100,
		formatDurationShort(stats.LatencyP95)))
}

// Report prints live stats the way the output supports.
func (c *Console) Report(stats *LiveStats) {
	if c.isTTY {
		c.Update(stats)
		return
	}
	c.PrintProgress(stats)
}

// PrintInterrupted prints the interrupt notice.
func (c *Console) PrintInterrupted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()
	c.writeln("")
	c.writeln("")
	c.writeln(c.colors.Warn.Sprint("Test interrupted by user"))
}

// PrintSummary prints the final report. In quiet mode only the verdict is
// printed.
func (c *Console) PrintSummary(s *report.Summary, thresholds []report.ThresholdResult) {
	passed := report.Passed(thresholds)
	if c.quiet {
		if passed {
			c.writeln(c.colors.Good.Sprint("PASSED"))
		} else {
			c.writeln(c.colors.Bad.Sprint("FAILED"))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()

	rule := c.colors.Rule.Sprint(strings.Repeat("=", ruleWidth))
	c.writeln("")
	c.writeln(rule)
	c.writeln(c.colors.Title.Sprint("Load Test Results"))
	c.writeln(rule)

	c.writeln(fmt.Sprintf("Total Requests: %d", s.Total))
	c.writeln(fmt.Sprintf("Successful: %s", c.colors.Good.Sprint(s.Successful)))
	failed := c.colors.Good
	if s.Failed > 0 {
		failed = c.colors.Bad
	}
	c.writeln(fmt.Sprintf("Failed: %s", failed.Sprint(s.Failed)))
	c.writeln(fmt.Sprintf("Success Rate: %s", c.colors.rateColor(s.SuccessRate).Sprintf("%.2f%%", s.SuccessRate)))

	c.writeln("")
	c.writeln("Response Times:")
	c.writeln(fmt.Sprintf("  Average: %.3fs", s.AvgElapsed.Seconds()))
	c.writeln(fmt.Sprintf("  Min: %.3fs", s.MinElapsed.Seconds()))
	c.writeln(fmt.Sprintf("  Max: %.3fs", s.MaxElapsed.Seconds()))

	c.writeln("")
	c.writeln(fmt.Sprintf("Requests per second: %.2f", s.RequestsPerSecond))

	c.writeln("")
	c.writeln("Requests by Service:")
	for _, sc := range s.ByScenario {
		c.writeln(fmt.Sprintf("  %s: %d", sc.Label, sc.Count))
	}

	if s.Successful > 0 {
		c.writeln("")
		c.writeln("Latency Distribution:")
		c.writeln(fmt.Sprintf("  P50: %.3fs", s.Latency.P50.Seconds()))
		c.writeln(fmt.Sprintf("  P90: %.3fs", s.Latency.P90.Seconds()))
		c.writeln(fmt.Sprintf("  P95: %.3fs", s.Latency.P95.Seconds()))
		c.writeln(fmt.Sprintf("  P99: %.3fs", s.Latency.P99.Seconds()))
	}

	if len(s.ByStatus) > 0 {
		c.writeln("")
		c.writeln("Status Codes:")
		for _, st := range s.ByStatus {
			c.writeln(fmt.Sprintf("  %s: %d", c.statusColor(st.Status).Sprint(st.Status), st.Count))
		}
	}

	if len(s.Errors) > 0 {
		c.writeln("")
		c.writeln(fmt.Sprintf("Errors (%d):", s.TransportErrors))
		for i, e := range s.Errors {
			if i == maxErrorLines {
				c.writeln(c.colors.Dim.Sprintf("  ... and %d more", len(s.Errors)-maxErrorLines))
				break
			}
			c.writeln(fmt.Sprintf("  %s: %d", c.colors.Bad.Sprint(e.Message), e.Count))
		}
	}

	if len(thresholds) > 0 {
		c.writeln("")
		c.writeln("Thresholds:")
		for _, t := range thresholds {
			icon := SuccessIcon(c.noColor)
			if !t.Passed {
				icon = ErrorIcon(c.noColor)
			}
			line := fmt.Sprintf("  %s %s (actual: %s)", icon, t.Expression, t.Value)
			if t.Message != "" {
				line += " " + c.colors.Dim.Sprint(t.Message)
			}
			c.writeln(line)
		}
	}
}

func (c *Console) statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return c.colors.Bad
	case status >= 400:
		return c.colors.Warn
	default:
		return c.colors.Good
	}
}

// clearLive erases the live display. Callers hold c.mu.
func (c *Console) clearLive() {
	if !c.isTTY || c.linesOutput == 0 {
		return
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	for i := 0; i < c.linesOutput; i++ {
		c.write(clearLine + "\n")
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	c.linesOutput = 0
}

func (c *Console) renderLiveStats(stats *LiveStats) []string {
	var lines []string

	progressBar := renderProgressBar(stats.Progress, 40)
	timeInfo := fmt.Sprintf("%s / %s", formatDuration(stats.Elapsed), formatDuration(stats.Elapsed+stats.Remaining))
	lines = append(lines, fmt.Sprintf("Progress: %s %s | %s",
		c.colors.Good.Sprint(progressBar),
		c.colors.Title.Sprintf("%.0f%%", stats.Progress*100),
		c.colors.Dim.Sprint(timeInfo)))

	boxWidth := 55
	lines = append(lines, c.colors.Dim.Sprint(boxTopLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxTopRight))

	workers := fmt.Sprintf("Workers:  %s / %d", c.colors.Value.Sprint(stats.ActiveWorkers), stats.Workers)
	reqs := fmt.Sprintf("Requests: %s", c.colors.Value.Sprint(formatNumber(stats.TotalRequests)))
	lines = append(lines, c.formatBoxRow(workers, reqs, boxWidth))

	failColor := c.colors.Good
	if stats.FailureRate > 0.01 {
		failColor = c.colors.Warn
	}
	if stats.FailureRate > 0.05 {
		failColor = c.colors.Bad
	}
	rps := fmt.Sprintf("RPS:      %s", c.colors.Good.Sprintf("%.1f", stats.CurrentRPS))
	fails := fmt.Sprintf("Failed:   %s", failColor.Sprintf("%d (%.1f%%)", stats.Failed, stats.FailureRate*100))
	lines = append(lines, c.formatBoxRow(rps, fails, boxWidth))

	p95 := fmt.Sprintf("P95:      %s", c.colors.Value.Sprint(formatDurationShort(stats.LatencyP95)))
	avg := fmt.Sprintf("Avg:      %s", c.colors.Value.Sprint(formatDurationShort(stats.LatencyAvg)))
	lines = append(lines, c.formatBoxRow(p95, avg, boxWidth))

	lines = append(lines, c.colors.Dim.Sprint(boxBottomLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxBottomRight))
	return lines
}

// formatBoxRow formats a row inside the stats box with two columns.
func (c *Console) formatBoxRow(left, right string, boxWidth int) string {
	colWidth := (boxWidth - 4) / 2

	leftPadding := colWidth - visibleLen(left)
	if leftPadding < 0 {
		leftPadding = 0
	}
	rightPadding := colWidth - visibleLen(right)
	if rightPadding < 0 {
		rightPadding = 0
	}

	border := c.colors.Dim.Sprint(boxVertical)
	return fmt.Sprintf("%s %s%s%s %s%s %s",
		border,
		left, strings.Repeat(" ", leftPadding),
		border,
		right, strings.Repeat(" ", rightPadding),
		border)
}

func (c *Console) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// StatsFromSnapshot creates LiveStats from a metrics snapshot.
func StatsFromSnapshot(snap *metrics.Snapshot, progress float64, total time.Duration, workers int) *LiveStats {
	if snap == nil {
		return &LiveStats{Progress: progress, Workers: workers, Remaining: total}
	}

	remaining := total - snap.Elapsed
	if remaining < 0 {
		remaining = 0
	}

	return &LiveStats{
		Progress:      progress,
		Elapsed:       snap.Elapsed,
		Remaining:     remaining,
		ActiveWorkers: snap.ActiveWorkers,
		Workers:       workers,
		CurrentRPS:    snap.CurrentRPS,
		TotalRequests: snap.TotalRequests,
		Failed:        snap.FailedRequests,
		FailureRate:   snap.ErrorRate,
		LatencyP95:    snap.Latency.P95,
		LatencyAvg:    snap.Latency.Mean,
	}
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// formatDurationShort formats a duration in a short format.
func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if n < 0 || len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}

// visibleLen counts the runes of s outside ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		n++
	}
	return n
}
