package application

import (
	"context"
	"net/http"
	"time"

	"github.com/devrickard/testcascade/internal/domain/models"
)

// VariableSubstitutor expands {{name}} placeholders in a string against a
// variable context.
type VariableSubstitutor interface {
	Expand(template string, ctx map[string]string) string
}

// JSONSelector resolves a dotted/indexed path against a parsed JSON
// value.
type JSONSelector interface {
	Select(root interface{}, path string) (node interface{}, ok bool)
	NodeValue(node interface{}) interface{}
}

// AssertionEvaluator applies one Assertion to an HTTP response.
type AssertionEvaluator interface {
	Evaluate(
		status int,
		headers map[string][]string,
		body string,
		durationMs int64,
		ctx map[string]string,
		assertion models.Assertion,
	) models.AssertionResult
}

// VariableExtractor reads values out of a response per an ordered rule
// set.
type VariableExtractor interface {
	Extract(
		status int,
		headers map[string][]string,
		body string,
		rules []models.VariableExtractionRule,
	) map[string]string
}

// RequestBuilder composes an outgoing *http.Request from a TestCase,
// effective variables, authentication and global headers.
type RequestBuilder interface {
	Build(
		ctx context.Context,
		baseURL string,
		tc models.TestCase,
		variables map[string]string,
		globalHeaders map[string]string,
	) (*http.Request, *models.RequestEcho, error)
}

// Runner executes one test with timeouts and retries.
type Runner interface {
	Run(
		ctx context.Context,
		tc models.TestCase,
		baseURL string,
		globalHeaders map[string]string,
		variables map[string]string,
	) models.TestCaseResult
}

// Scheduler layers a set of test cases by prerequisite and drives a
// Runner with bounded parallelism per layer.
type Scheduler interface {
	Run(
		ctx context.Context,
		tests []models.TestCase,
		baseURL string,
		globalHeaders, globalVariables map[string]string,
		opts ...models.RunOptions,
	) []models.TestCaseResult
}

// Coordinator owns run-scoped state and produces the final
// TestRunResult.
type Coordinator interface {
	Execute(
		ctx context.Context,
		tests []models.TestCase,
		baseURL string,
		globalHeaders, globalVariables map[string]string,
		opts ...models.RunOptions,
	) *models.TestRunResult
}

// TestCaseExtractor parses arbitrary LLM text into a validated list of
// test cases.
type TestCaseExtractor interface {
	Extract(text string) []models.TestCase
}

// ClientPool provides a shared, reusable *http.Client.
type ClientPool interface {
	Client() *http.Client
	RequestTimeout() time.Duration
}

// ConfigProvider retrieves configuration values, viper-backed in
// production.
type ConfigProvider interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
}

// GenerationClient is the thin transport contract the extractor imposes
// on whatever LLM-backed generation service produced the text: raw text
// in, no prompt engineering implied.
type GenerationClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// OpenAPIIntake parses an uploaded OpenAPI/Swagger document far enough to
// list its operations as endpoint descriptors.
type OpenAPIIntake interface {
	Endpoints(ctx context.Context, data []byte) ([]models.EndpointDescriptor, error)
}

// PostmanExporter renders a TestRunResult as a Postman collection.
type PostmanExporter interface {
	Export(run *models.TestRunResult) ([]byte, error)
}
