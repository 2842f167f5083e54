// Package coordinator owns run-scoped identity and state: it seeds
// global variables, drives the Scheduler, and assembles the final
// TestRunResult. Fatal setup errors surface as per-test Error results
// rather than as a returned error.
package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devrickard/testcascade/internal/application"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// Service implements application.Coordinator.
type Service struct {
	scheduler application.Scheduler
	logger    logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Run Coordinator.
func NewService(scheduler application.Scheduler, options ...Option) *Service {
	s := &Service{
		scheduler: scheduler,
		logger:    logging.NewNullLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Execute runs tests against baseURL and returns the aggregated
// TestRunResult. It never returns an error: a missing or malformed
// baseURL surfaces as an Error result for every test instead of aborting
// the run, so a caller always gets a complete, reportable result.
func (s *Service) Execute(
	ctx context.Context,
	tests []models.TestCase,
	baseURL string,
	globalHeaders, globalVariables map[string]string,
	opts ...models.RunOptions,
) *models.TestRunResult {
	runID := uuid.NewString()
	start := time.Now()

	vars := make(map[string]string, len(globalVariables))
	for k, v := range globalVariables {
		vars[k] = v
	}

	run := &models.TestRunResult{
		RunID:           runID,
		BaseURL:         baseURL,
		StartTime:       start,
		GlobalVariables: vars,
	}

	logger := s.logger.Scoped("run " + runID)

	normalized := normalizeBaseURL(baseURL)
	if normalized == "" {
		logger.Errorf("coordinator: no base URL, every test errors")
		run.Results = errorAll(tests, "base URL is required")
		run.EndTime = time.Now()
		return run
	}
	run.BaseURL = normalized

	logger.Infof("coordinator: executing %d test(s) against %s", len(tests), normalized)
	run.Results = s.scheduler.Run(ctx, tests, normalized, globalHeaders, vars, opts...)
	run.EndTime = time.Now()
	return run
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	return trimmed
}

func errorAll(tests []models.TestCase, message string) []models.TestCaseResult {
	results := make([]models.TestCaseResult, 0, len(tests))
	now := time.Now()
	for _, tc := range tests {
		results = append(results, models.TestCaseResult{
			TestCaseID:   tc.TestCaseID,
			Name:         tc.Name,
			Status:       models.StatusError,
			ErrorMessage: message,
			StartTime:    now,
			EndTime:      now,
		})
	}
	return results
}
