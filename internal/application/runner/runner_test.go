package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrickard/testcascade/internal/application/httpclient"
	"github.com/devrickard/testcascade/internal/application/requestbuilder"
	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/asserter"
	"github.com/devrickard/testcascade/internal/infrastructure/extractor"
)

func newTestService() *Service {
	sub := substitutor.NewService()
	return NewService(
		httpclient.NewPool(httpclient.WithRequestTimeout(2*time.Second)),
		requestbuilder.NewService(sub),
		asserter.NewService(sub),
		extractor.NewService(),
	)
}

func TestRunPassesOnExpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	statusOK := http.StatusOK
	tc := models.TestCase{
		TestCaseID:       "t1",
		Name:             "happy path",
		Request:          models.Request{Method: models.MethodGet, Path: "/users"},
		ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
		ExtractVariables: []models.VariableExtractionRule{
			{Name: "id", Source: models.ExtractFromResponseBody, Path: "id"},
		},
	}

	result := newTestService().Run(context.Background(), tc, server.URL, nil, nil)

	require.Equal(t, models.StatusPassed, result.Status)
	assert.Equal(t, "1", result.ExtractedVariables["id"])
	assert.Equal(t, 0, result.RetryAttempts)
}

func TestRunRetriesOnAssertionFailureThenSucceeds(t *testing.T) {
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	statusOK := http.StatusOK
	retryDelay := 1
	maxRetries := 2
	tc := models.TestCase{
		TestCaseID:       "t2",
		Request:          models.Request{Method: models.MethodGet, Path: "/flaky"},
		ExpectedResponse: &models.ExpectedResponse{StatusCode: &statusOK},
		MaxRetries:       &maxRetries,
		RetryDelayMs:     &retryDelay,
	}

	result := newTestService().Run(context.Background(), tc, server.URL, nil, nil)

	require.Equal(t, models.StatusPassed, result.Status)
	assert.Equal(t, 1, result.RetryAttempts)
	assert.Equal(t, 2, attempt)
}

func TestRunSkipsWhenFlagged(t *testing.T) {
	tc := models.TestCase{TestCaseID: "t3", Skip: true, Request: models.Request{Method: models.MethodGet, Path: "/x"}}
	result := newTestService().Run(context.Background(), tc, "http://example.invalid", nil, nil)
	assert.Equal(t, models.StatusSkipped, result.Status)
}

func TestRunErrorsOnConfigurationFailure(t *testing.T) {
	tc := models.TestCase{
		TestCaseID: "t4",
		Request: models.Request{
			Method: models.MethodPost,
			Path:   "/upload",
			FileParameters: []models.FileParameter{
				{FieldName: "file", FileName: "missing.txt", FilePath: "/nonexistent/path/missing.txt"},
			},
		},
	}

	result := newTestService().Run(context.Background(), tc, "http://example.invalid", nil, nil)
	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, 0, result.RetryAttempts)
}

func TestRunSynthesizesDefaultStatusAssertion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	wrongStatus := http.StatusOK
	tc := models.TestCase{
		TestCaseID:       "t5",
		Request:          models.Request{Method: models.MethodGet, Path: "/"},
		ExpectedResponse: &models.ExpectedResponse{StatusCode: &wrongStatus},
	}

	result := newTestService().Run(context.Background(), tc, server.URL, nil, nil)
	require.Len(t, result.AssertionResults, 1)
	assert.Equal(t, strconv.Itoa(wrongStatus), result.AssertionResults[0].Assertion.ExpectedValue)
	assert.Equal(t, models.StatusFailed, result.Status)
}
