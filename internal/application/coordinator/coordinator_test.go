package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrickard/testcascade/internal/domain/models"
)

type stubScheduler struct {
	called  bool
	baseURL string
	results []models.TestCaseResult
}

func (s *stubScheduler) Run(_ context.Context, tests []models.TestCase, baseURL string, _, _ map[string]string, _ ...models.RunOptions) []models.TestCaseResult {
	s.called = true
	s.baseURL = baseURL
	if s.results != nil {
		return s.results
	}
	out := make([]models.TestCaseResult, len(tests))
	for i, tc := range tests {
		out[i] = models.TestCaseResult{TestCaseID: tc.TestCaseID, Status: models.StatusPassed}
	}
	return out
}

func TestExecuteDelegatesToScheduler(t *testing.T) {
	sched := &stubScheduler{}
	c := NewService(sched)

	tests := []models.TestCase{{TestCaseID: "a"}, {TestCaseID: "b"}}
	run := c.Execute(context.Background(), tests, "https://api.example.com", nil, nil)

	require.True(t, sched.called)
	assert.Equal(t, "https://api.example.com/", run.BaseURL)
	assert.NotEmpty(t, run.RunID)
	assert.Len(t, run.Results, 2)
	assert.False(t, run.EndTime.Before(run.StartTime))
}

func TestExecuteErrorsAllWhenBaseURLMissing(t *testing.T) {
	sched := &stubScheduler{}
	c := NewService(sched)

	tests := []models.TestCase{{TestCaseID: "a"}, {TestCaseID: "b"}}
	run := c.Execute(context.Background(), tests, "   ", nil, nil)

	assert.False(t, sched.called)
	require.Len(t, run.Results, 2)
	for _, r := range run.Results {
		assert.Equal(t, models.StatusError, r.Status)
		assert.NotEmpty(t, r.ErrorMessage)
	}
}

func TestExecuteCopiesGlobalVariables(t *testing.T) {
	sched := &stubScheduler{}
	c := NewService(sched)

	globals := map[string]string{"env": "staging"}
	run := c.Execute(context.Background(), nil, "https://api.example.com", nil, globals)

	globals["env"] = "mutated"
	assert.Equal(t, "staging", run.GlobalVariables["env"])
}

func TestExecuteProducesUniqueRunIDs(t *testing.T) {
	sched := &stubScheduler{}
	c := NewService(sched)

	first := c.Execute(context.Background(), nil, "https://api.example.com", nil, nil)
	second := c.Execute(context.Background(), nil, "https://api.example.com", nil, nil)

	assert.NotEqual(t, first.RunID, second.RunID)
}
