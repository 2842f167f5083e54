package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrickard/testcascade/internal/application/httpclient"
	"github.com/devrickard/testcascade/internal/application/requestbuilder"
	"github.com/devrickard/testcascade/internal/application/runner"
	"github.com/devrickard/testcascade/internal/application/scheduler"
	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/asserter"
	"github.com/devrickard/testcascade/internal/infrastructure/extractor"
)

func newEngine(parallelism int) *Service {
	sub := substitutor.NewService()
	r := runner.NewService(
		httpclient.NewPool(httpclient.WithRequestTimeout(5*time.Second)),
		requestbuilder.NewService(sub),
		asserter.NewService(sub),
		extractor.NewService(),
	)
	return NewService(scheduler.NewService(r, scheduler.WithMaxParallelism(parallelism)))
}

func TestExecuteChainsExtractedVariables(t *testing.T) {
	var seenAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"auth":{"token":"tok-123"}}`))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	statusOK := http.StatusOK
	tests := []models.TestCase{
		{
			TestCaseID:       "login",
			Name:             "login",
			Request:          models.Request{Method: models.MethodGet, Path: "/login"},
			ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
			ExtractVariables: []models.VariableExtractionRule{
				{Name: "token", Source: models.ExtractFromResponseBody, Path: "auth.token"},
			},
		},
		{
			TestCaseID:    "profile",
			Name:          "profile",
			Prerequisites: []string{"login"},
			Request: models.Request{
				Method:  models.MethodGet,
				Path:    "/profile",
				Headers: map[string]string{"Authorization": "Bearer {{token}}"},
			},
			ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
		},
	}

	run := newEngine(4).Execute(context.Background(), tests, server.URL, nil, nil)

	require.Len(t, run.Results, 2)
	assert.Equal(t, models.StatusPassed, run.Results[0].Status)
	assert.Equal(t, models.StatusPassed, run.Results[1].Status)
	assert.Equal(t, "Bearer tok-123", seenAuth.Load())
}

func TestExecuteBlocksDependentsOfFailedTest(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	statusOK := http.StatusOK
	tests := []models.TestCase{
		{
			TestCaseID:       "a",
			Request:          models.Request{Method: models.MethodGet, Path: "/a"},
			ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
		},
		{TestCaseID: "b", Prerequisites: []string{"a"}, Request: models.Request{Method: models.MethodGet, Path: "/b"}},
		{TestCaseID: "c", Prerequisites: []string{"b"}, Request: models.Request{Method: models.MethodGet, Path: "/c"}},
	}

	run := newEngine(4).Execute(context.Background(), tests, server.URL, nil, nil)

	require.Len(t, run.Results, 3)
	assert.Equal(t, models.StatusFailed, run.Results[0].Status)
	assert.Equal(t, models.StatusBlocked, run.Results[1].Status)
	assert.Equal(t, models.StatusBlocked, run.Results[2].Status)
	assert.Equal(t, int64(1), requests.Load())
}

func TestExecuteRunsLayerInParallel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	statusOK := http.StatusOK
	var tests []models.TestCase
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"} {
		tests = append(tests, models.TestCase{
			TestCaseID:       id,
			Request:          models.Request{Method: models.MethodGet, Path: "/slow"},
			ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
		})
	}

	start := time.Now()
	run := newEngine(4).Execute(context.Background(), tests, server.URL, nil, nil)
	elapsed := time.Since(start)

	assert.Equal(t, 8, run.Passed())
	// 8 tests at 100ms across 4 workers is two waves, well under the
	// 800ms a serial run would take.
	assert.Less(t, elapsed, 700*time.Millisecond)
}

func TestExecuteCountsIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	statusOK := http.StatusOK
	wrong := http.StatusTeapot
	tests := []models.TestCase{
		{TestCaseID: "pass", Request: models.Request{Method: models.MethodGet, Path: "/"}, ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK}},
		{TestCaseID: "fail", Request: models.Request{Method: models.MethodGet, Path: "/"}, ExpectedResponse: &models.ExpectedResponse{StatusCode: &wrong}},
		{TestCaseID: "skip", Skip: true, Request: models.Request{Method: models.MethodGet, Path: "/"}},
		{TestCaseID: "blocked", Prerequisites: []string{"fail"}, Request: models.Request{Method: models.MethodGet, Path: "/"}},
	}

	run := newEngine(2).Execute(context.Background(), tests, server.URL, nil, nil)

	total := run.Passed() + run.Failed() + run.Skipped() + run.Blocked() + run.Errored()
	assert.Equal(t, run.Total(), total)
	assert.Equal(t, 4, run.Total())
}
