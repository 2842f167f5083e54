// Package reporter renders a TestRunResult as a colorized console
// report (header, summary counts, per-result detail lines) or as JSON.
package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"

	"github.com/devrickard/testcascade/internal/domain/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service renders TestRunResult reports.
type Service struct {
	colorEnabled bool
}

// Option configures a Service.
type Option func(*Service)

// WithColor toggles colored console output (enabled by default).
func WithColor(enabled bool) Option {
	return func(s *Service) { s.colorEnabled = enabled }
}

// NewService creates a reporter Service with color enabled.
func NewService(options ...Option) *Service {
	s := &Service{colorEnabled: true}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// PrintConsole writes a human-readable report to w.
func (s *Service) PrintConsole(w io.Writer, run *models.TestRunResult) {
	statusColor := map[models.Status]*color.Color{
		models.StatusPassed:  color.New(color.FgGreen, color.Bold),
		models.StatusFailed:  color.New(color.FgRed, color.Bold),
		models.StatusSkipped: color.New(color.FgYellow),
		models.StatusBlocked: color.New(color.FgYellow, color.Bold),
		models.StatusError:   color.New(color.FgMagenta, color.Bold),
	}

	heading := color.New(color.Bold)
	if !s.colorEnabled {
		color.NoColor = true
	}

	heading.Fprintln(w, "===============================================")
	fmt.Fprintf(w, "  Run %s\n", run.RunID)
	fmt.Fprintf(w, "  Base URL: %s\n", run.BaseURL)
	heading.Fprintln(w, "===============================================")
	fmt.Fprintf(w, "Started:  %s\n", run.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %.0f ms\n\n", run.EndTime.Sub(run.StartTime).Seconds()*1000)

	fmt.Fprintln(w, "SUMMARY:")
	fmt.Fprintf(w, "  Total:    %d\n", run.Total())
	fmt.Fprintf(w, "  Passed:   %d\n", run.Passed())
	fmt.Fprintf(w, "  Failed:   %d\n", run.Failed())
	fmt.Fprintf(w, "  Skipped:  %d\n", run.Skipped())
	fmt.Fprintf(w, "  Blocked:  %d\n", run.Blocked())
	fmt.Fprintf(w, "  Errors:   %d\n\n", run.Errored())

	fmt.Fprintln(w, "RESULTS:")
	for i, result := range run.Results {
		c, ok := statusColor[result.Status]
		label := string(result.Status)
		if ok {
			label = c.Sprint(label)
		}

		fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, result.Name, label)
		if result.Request != nil {
			fmt.Fprintf(w, "     %s %s\n", result.Request.Method, result.Request.URL)
		}
		fmt.Fprintf(w, "     Duration: %d ms, Retries: %d\n", result.DurationMs, result.RetryAttempts)
		if result.ErrorMessage != "" {
			fmt.Fprintf(w, "     Error: %s\n", result.ErrorMessage)
		}
		for _, ar := range result.AssertionResults {
			if ar.Passed {
				continue
			}
			fmt.Fprintf(w, "     Assertion failed (%s %s): %s\n", ar.Assertion.Type, ar.Assertion.Condition, ar.Message)
		}
		fmt.Fprintln(w)
	}
}

// JSON renders run as indented JSON.
func (s *Service) JSON(run *models.TestRunResult) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}

// SaveJSON writes run as JSON to path, creating parent directories as
// needed.
func (s *Service) SaveJSON(path string, run *models.TestRunResult) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := s.JSON(run)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// FailuresFirst returns a copy of results ordered with non-Passed
// outcomes first, preserving original order within each group, used by
// the CLI to surface failures without discarding the canonical ordering
// in the saved report.
func FailuresFirst(results []models.TestCaseResult) []models.TestCaseResult {
	ordered := make([]models.TestCaseResult, len(results))
	copy(ordered, results)

	rank := func(status models.Status) int {
		if status == models.StatusPassed {
			return 1
		}
		return 0
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i].Status) < rank(ordered[j].Status)
	})

	return ordered
}
