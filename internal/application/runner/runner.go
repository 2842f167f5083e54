// Package runner executes one test case end to end: build the request,
// send it, evaluate assertions, extract variables, and retry transient
// or failed attempts up to the configured budget.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/devrickard/testcascade/internal/application/httpclient"
	"github.com/devrickard/testcascade/internal/application/requestbuilder"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/asserter"
	"github.com/devrickard/testcascade/internal/infrastructure/extractor"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// Service implements application.Runner.
type Service struct {
	pool         *httpclient.Pool
	builder      *requestbuilder.Service
	evaluator    *asserter.Service
	extractor    *extractor.Service
	logger       logging.Logger
	maxRetries   int
	retryDelayMs int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMaxRetries sets the default additional-attempt budget (MaxRetries+1
// total attempts), used when a TestCase doesn't override it.
func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

// WithRetryDelay sets the default inter-attempt sleep in milliseconds.
func WithRetryDelay(ms int) Option {
	return func(s *Service) { s.retryDelayMs = ms }
}

// NewService creates a Single-Test Runner.
func NewService(
	pool *httpclient.Pool,
	builder *requestbuilder.Service,
	evaluator *asserter.Service,
	ext *extractor.Service,
	options ...Option,
) *Service {
	s := &Service{
		pool:      pool,
		builder:   builder,
		evaluator: evaluator,
		extractor: ext,
		logger:    logging.NewNullLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run executes tc against baseURL, retrying transient failures up to
// MaxRetries times. DurationMs on the returned result measures request
// time for the final reported attempt only, not cumulative retry time.
func (s *Service) Run(
	ctx context.Context,
	tc models.TestCase,
	baseURL string,
	globalHeaders map[string]string,
	variables map[string]string,
) models.TestCaseResult {
	result := models.TestCaseResult{
		TestCaseID: tc.TestCaseID,
		Name:       tc.Name,
		Status:     models.StatusRunning,
		StartTime:  time.Now(),
	}

	if tc.Skip {
		result.Status = models.StatusSkipped
		result.EndTime = time.Now()
		return result
	}

	maxRetries := s.maxRetries
	if tc.MaxRetries != nil {
		maxRetries = *tc.MaxRetries
	}
	retryDelay := time.Duration(s.retryDelayMs) * time.Millisecond
	if tc.RetryDelayMs != nil {
		retryDelay = time.Duration(*tc.RetryDelayMs) * time.Millisecond
	}

	if tc.WaitBeforeMs > 0 {
		if !sleep(ctx, time.Duration(tc.WaitBeforeMs)*time.Millisecond) {
			result.Status = models.StatusSkipped
			result.ErrorMessage = "cancelled"
			result.EndTime = time.Now()
			return result
		}
	}

	logger := s.logger.Scoped(tc.TestCaseID)

	attempts := 0
	for {
		attemptResult, retryable := s.attempt(ctx, tc, baseURL, globalHeaders, variables)
		result = mergeAttempt(result, attemptResult)
		result.RetryAttempts = attempts

		if attemptResult.Status == models.StatusSkipped {
			break
		}
		if !retryable || attempts >= maxRetries {
			break
		}

		attempts++
		logger.Warnf("runner: attempt %d finished %s, retrying (%d of %d)",
			attempts, attemptResult.Status, attempts, maxRetries)
		if !sleep(ctx, retryDelay) {
			result.Status = models.StatusSkipped
			result.ErrorMessage = "cancelled"
			break
		}
	}

	if tc.WaitAfterMs > 0 {
		sleep(ctx, time.Duration(tc.WaitAfterMs)*time.Millisecond)
	}

	result.EndTime = time.Now()
	return result
}

// mergeAttempt folds one attempt's outcome into the running result,
// preserving StartTime/TestCaseID/Name while taking the attempt's status
// and details as authoritative (the final attempt's state is the
// reported one).
func mergeAttempt(base, attempt models.TestCaseResult) models.TestCaseResult {
	attempt.TestCaseID = base.TestCaseID
	attempt.Name = base.Name
	attempt.StartTime = base.StartTime
	attempt.RetryAttempts = base.RetryAttempts
	return attempt
}

// attempt runs exactly one HTTP exchange plus assertion/extraction, and
// reports whether the caller should consider retrying.
func (s *Service) attempt(
	ctx context.Context,
	tc models.TestCase,
	baseURL string,
	globalHeaders map[string]string,
	variables map[string]string,
) (models.TestCaseResult, bool) {
	result := models.TestCaseResult{Status: models.StatusRunning}

	if ctx.Err() != nil {
		result.Status = models.StatusSkipped
		result.ErrorMessage = "cancelled"
		return result, false
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.pool.RequestTimeout())
	defer cancel()

	req, echo, err := s.builder.Build(reqCtx, baseURL, tc, variables, globalHeaders)
	if err != nil {
		result.Status = models.StatusError
		result.ErrorMessage = err.Error()
		return result, false // configuration failure, not retried
	}
	result.Request = echo

	if err := s.pool.Wait(reqCtx); err != nil {
		result.Status = models.StatusError
		result.ErrorMessage = err.Error()
		return result, false
	}

	start := time.Now()
	resp, err := s.pool.Client().Do(req)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			result.Status = models.StatusSkipped
			result.ErrorMessage = "cancelled"
			return result, false
		}
		result.Status = models.StatusError
		result.ErrorMessage = fmt.Sprintf("request failed: %v", err)
		// Anything the transport surfaces here (DNS, connect, TLS,
		// timeout, abort) is transient; request-build failures were
		// already excluded above.
		return result, true
	}
	defer resp.Body.Close()

	bodyBytes, truncated, err := httpclient.ReadBody(resp.Body)
	if err != nil {
		result.Status = models.StatusError
		result.ErrorMessage = fmt.Sprintf("failed to read response body: %v", err)
		return result, true
	}
	body := string(bodyBytes)

	result.Response = &models.ResponseEcho{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Truncated:  truncated,
	}

	durationMs := duration.Milliseconds()
	result.DurationMs = durationMs

	assertions := tc.Assertions
	if len(assertions) == 0 && tc.ExpectedResponse != nil && tc.ExpectedResponse.StatusCode != nil {
		assertions = []models.Assertion{{
			Type:          models.AssertionStatusCode,
			Condition:     models.ConditionEquals,
			ExpectedValue: strconv.Itoa(*tc.ExpectedResponse.StatusCode),
		}}
	}

	allPassed := true
	assertionResults := make([]models.AssertionResult, 0, len(assertions))
	for _, assertion := range assertions {
		ar := s.evaluator.Evaluate(resp.StatusCode, resp.Header, body, durationMs, variables, assertion)
		assertionResults = append(assertionResults, ar)
		if !ar.Passed {
			allPassed = false
		}
	}
	result.AssertionResults = assertionResults

	if allPassed {
		result.Status = models.StatusPassed
		result.ExtractedVariables = s.extractor.Extract(resp.StatusCode, resp.Header, body, tc.ExtractVariables)
		return result, false
	}

	result.Status = models.StatusFailed
	result.ErrorMessage = "one or more assertions failed"
	return result, true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
