package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrickard/testcascade/internal/domain/models"
)

// stubRunner maps a TestCaseID to the status it should report, and always
// extracts one variable named after its own TestCaseID, with value "ran".
type stubRunner struct {
	statuses map[string]models.Status
	calls    []string
	seenVars map[string]map[string]string
}

func (r *stubRunner) Run(_ context.Context, tc models.TestCase, _ string, _ map[string]string, vars map[string]string) models.TestCaseResult {
	r.calls = append(r.calls, tc.TestCaseID)
	if r.seenVars != nil {
		r.seenVars[tc.TestCaseID] = vars
	}
	status := r.statuses[tc.TestCaseID]
	if status == "" {
		status = models.StatusPassed
	}
	return models.TestCaseResult{
		TestCaseID:         tc.TestCaseID,
		Name:               tc.Name,
		Status:             status,
		ExtractedVariables: map[string]string{tc.TestCaseID: "ran"},
	}
}

func TestRunOrdersIndependentTestsInOneLayer(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{}}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a"},
		{TestCaseID: "b"},
	}

	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].TestCaseID)
	assert.Equal(t, "b", results[1].TestCaseID)
	assert.Equal(t, models.StatusPassed, results[0].Status)
	assert.Equal(t, models.StatusPassed, results[1].Status)
}

func TestRunBlocksOnFailedPrerequisite(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{"a": models.StatusFailed}}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a"},
		{TestCaseID: "b", Prerequisites: []string{"a"}},
	}

	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil)
	require.Len(t, results, 2)
	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.Equal(t, models.StatusBlocked, results[1].Status)
}

func TestRunDropsSelfAndUnknownPrerequisites(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{}}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a", Prerequisites: []string{"a", "ghost"}},
	}

	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusPassed, results[0].Status)
}

func TestRunBlocksCycles(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{}}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a", Prerequisites: []string{"b"}},
		{TestCaseID: "b", Prerequisites: []string{"a"}},
	}

	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil)
	require.Len(t, results, 2)
	assert.Equal(t, models.StatusBlocked, results[0].Status)
	assert.Equal(t, models.StatusBlocked, results[1].Status)
}

func TestRunOverlaysVariablesFromPrerequisites(t *testing.T) {
	runner := &stubRunner{
		statuses: map[string]models.Status{},
		seenVars: map[string]map[string]string{},
	}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a"},
		{TestCaseID: "b", Prerequisites: []string{"a"}, Variables: map[string]string{"own": "yes"}},
	}

	s.Run(context.Background(), tests, "http://example.com/", nil, map[string]string{"env": "staging"})
	assert.Equal(t, []string{"a", "b"}, runner.calls)

	// b's context layers globals, then a's extraction, then its own
	// variables.
	bVars := runner.seenVars["b"]
	assert.Equal(t, "staging", bVars["env"])
	assert.Equal(t, "ran", bVars["a"])
	assert.Equal(t, "yes", bVars["own"])

	// a's extraction must not leak into its own context.
	aVars := runner.seenVars["a"]
	assert.NotContains(t, aVars, "a")
}

func TestRunFailFastBlocksLaterLayers(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{"a": models.StatusFailed}}
	s := NewService(runner)

	tests := []models.TestCase{
		{TestCaseID: "a"},
		{TestCaseID: "b"}, // independent, same layer as a
		{TestCaseID: "c", Prerequisites: []string{"b"}}, // later layer, never reached
	}

	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil, models.RunOptions{FailFast: true})
	require.Len(t, results, 3)

	byID := map[string]models.TestCaseResult{}
	for _, r := range results {
		byID[r.TestCaseID] = r
	}
	assert.Equal(t, models.StatusFailed, byID["a"].Status)
	assert.Equal(t, models.StatusPassed, byID["b"].Status)
	assert.Equal(t, models.StatusBlocked, byID["c"].Status)
	assert.Equal(t, "run stopped: fail-fast", byID["c"].ErrorMessage)
}

func TestRunSkipsFlaggedTests(t *testing.T) {
	runner := &stubRunner{statuses: map[string]models.Status{}}
	s := NewService(runner)

	tests := []models.TestCase{{TestCaseID: "a", Skip: true}}
	results := s.Run(context.Background(), tests, "http://example.com/", nil, nil)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusSkipped, results[0].Status)
}
