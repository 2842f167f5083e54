package asserter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/domain/models"
)

func newEvaluator() *Service {
	return NewService(substitutor.NewService())
}

func TestEvaluateStatusCode(t *testing.T) {
	s := newEvaluator()
	result := s.Evaluate(200, nil, "", 0, nil, models.Assertion{
		Type:          models.AssertionStatusCode,
		Condition:     models.ConditionEquals,
		ExpectedValue: "200",
	})
	assert.True(t, result.Passed)
}

func TestEvaluateStatusCodeFailure(t *testing.T) {
	s := newEvaluator()
	result := s.Evaluate(500, nil, "", 0, nil, models.Assertion{
		Type:          models.AssertionStatusCode,
		Condition:     models.ConditionEquals,
		ExpectedValue: "200",
	})
	assert.False(t, result.Passed)
}

func TestEvaluateJsonPathValue(t *testing.T) {
	s := newEvaluator()
	body := `{"user":{"name":"Ada"}}`
	result := s.Evaluate(200, nil, body, 0, nil, models.Assertion{
		Type:          models.AssertionJsonPathValue,
		Target:        "user.name",
		Condition:     models.ConditionEquals,
		ExpectedValue: "Ada",
	})
	assert.True(t, result.Passed)
}

func TestEvaluateJsonPathExists(t *testing.T) {
	s := newEvaluator()
	body := `{"user":{"name":"Ada"}}`

	exists := s.Evaluate(200, nil, body, 0, nil, models.Assertion{
		Type:      models.AssertionJsonPathExists,
		Target:    "user.name",
		Condition: models.ConditionExists,
	})
	assert.True(t, exists.Passed)

	notExists := s.Evaluate(200, nil, body, 0, nil, models.Assertion{
		Type:      models.AssertionJsonPathNotExists,
		Target:    "user.missing",
		Condition: models.ConditionNotExists,
	})
	assert.True(t, notExists.Passed)
}

func TestEvaluateHeaderExists(t *testing.T) {
	s := newEvaluator()
	headers := map[string][]string{"X-Trace-Id": {"abc"}}
	result := s.Evaluate(200, headers, "", 0, nil, models.Assertion{
		Type:      models.AssertionHeaderExists,
		Target:    "x-trace-id",
		Condition: models.ConditionExists,
	})
	assert.True(t, result.Passed)
}

func TestEvaluateBodyContainsString(t *testing.T) {
	s := newEvaluator()
	result := s.Evaluate(200, nil, "hello world", 0, nil, models.Assertion{
		Type:          models.AssertionBodyContainsString,
		Condition:     models.ConditionContains,
		ExpectedValue: "world",
	})
	assert.True(t, result.Passed)
}

func TestEvaluateArrayLength(t *testing.T) {
	s := newEvaluator()
	body := `{"items":[1,2,3]}`
	result := s.Evaluate(200, nil, body, 0, nil, models.Assertion{
		Type:          models.AssertionArrayLength,
		Target:        "items",
		Condition:     models.ConditionEquals,
		ExpectedValue: "3",
	})
	assert.True(t, result.Passed)
}

func TestEvaluateResponseTime(t *testing.T) {
	s := newEvaluator()
	result := s.Evaluate(200, nil, "", 120, nil, models.Assertion{
		Type:          models.AssertionResponseTime,
		Condition:     models.ConditionLessThan,
		ExpectedValue: "500",
	})
	assert.True(t, result.Passed)
}

func TestEvaluateDoesNotPanicOnMalformedBody(t *testing.T) {
	s := newEvaluator()
	result := s.Evaluate(200, nil, "not json", 0, nil, models.Assertion{
		Type:          models.AssertionJsonPathValue,
		Target:        "user.name",
		Condition:     models.ConditionEquals,
		ExpectedValue: "Ada",
	})
	assert.False(t, result.Passed)
}
