// Package asserter evaluates assertions against an HTTP response: a
// dispatch table keyed by assertion type, each entry producing an
// AssertionResult and never panicking or returning an error to the
// caller.
package asserter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/xeipuuv/gojsonschema"

	"github.com/devrickard/testcascade/internal/application/selector"
	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/domain/models"
)

// Service implements application.AssertionEvaluator. It never panics:
// any internal failure (bad regex, malformed schema, selector error)
// surfaces as Passed=false with a descriptive Message.
type Service struct {
	substitutor *substitutor.Service
	selector    *selector.Service
}

// NewService creates an Assertion Evaluator.
func NewService(sub *substitutor.Service) *Service {
	if sub == nil {
		sub = substitutor.NewService()
	}
	return &Service{
		substitutor: sub,
		selector:    selector.NewService(),
	}
}

// Evaluate applies one Assertion to an HTTP response.
func (s *Service) Evaluate(
	status int,
	headers map[string][]string,
	body string,
	durationMs int64,
	ctx map[string]string,
	assertion models.Assertion,
) (result models.AssertionResult) {
	result.Assertion = assertion

	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Message = fmt.Sprintf("assertion panicked: %v", r)
		}
	}()

	expected := s.substitutor.Expand(assertion.ExpectedValue, ctx)

	switch assertion.Type {
	case models.AssertionStatusCode:
		return s.numeric(assertion, result, float64(status), expected)

	case models.AssertionResponseTime:
		return s.numeric(assertion, result, float64(durationMs), expected)

	case models.AssertionHeaderExists:
		_, found := findHeader(headers, assertion.Target)
		return s.boolResult(assertion, result, found, "", presenceMessage(assertion, found, "header"))

	case models.AssertionHeaderValue:
		values, found := findHeader(headers, assertion.Target)
		actual := strings.Join(values, ",")
		result.ActualValue = actual
		if !found {
			return s.fail(result, "header not found: "+assertion.Target)
		}
		return s.stringCompare(assertion, result, actual, expected)

	case models.AssertionBodyContainsString:
		result.ActualValue = body
		return s.evalCondition(assertion, result, strings.Contains(body, expected), "", fmt.Sprintf("Assertion failed. Expected: body to contain %q", expected))

	case models.AssertionBodyEqualsString:
		result.ActualValue = body
		return s.bodyEquals(assertion, result, body, expected)

	case models.AssertionBodyMatchesRegex:
		result.ActualValue = body
		re, err := regexp.Compile(expected)
		if err != nil {
			return s.fail(result, "invalid regex: "+err.Error())
		}
		return s.evalCondition(assertion, result, re.MatchString(body), "", fmt.Sprintf("Assertion failed. Expected: match of /%s/, Actual: %s", expected, body))

	case models.AssertionJsonPathValue:
		return s.jsonPathValue(assertion, result, body, expected, ctx)

	case models.AssertionJsonPathExists, models.AssertionJsonPathNotExists:
		return s.jsonPathExists(assertion, result, body)

	case models.AssertionArrayLength:
		return s.arrayLength(assertion, result, body, expected)

	case models.AssertionArrayContains:
		return s.arrayContains(assertion, result, body, expected)

	case models.AssertionJsonSchemaValidation:
		return s.jsonSchema(assertion, result, body, expected)

	case models.AssertionXmlPathValue:
		return s.xmlPathValue(assertion, result, body, expected)

	case models.AssertionXmlSchemaValidation:
		return s.fail(result, "XML schema validation is not implemented")

	default:
		return s.fail(result, "unsupported assertion type: "+string(assertion.Type))
	}
}

// --- helpers -----------------------------------------------------------

func (s *Service) fail(result models.AssertionResult, message string) models.AssertionResult {
	result.Passed = false
	result.Message = message
	return result
}

func (s *Service) boolResult(assertion models.Assertion, result models.AssertionResult, actual bool, actualStr, failMessage string) models.AssertionResult {
	result.ActualValue = actualStr
	return s.evalCondition(assertion, result, actual, "", failMessage)
}

// evalCondition applies Exists/NotExists/IsNull/IsNotNull/Equals-as-bool
// semantics to a boolean "truth" computed by the caller: NotExists,
// IsNull and NotEquals pass on its negation, every other condition on
// truth itself; the expected value is not consulted. Most types funnel
// their comparison through numeric()/stringCompare() instead; this path
// backs the boolean-producing assertion types (existence checks).
func (s *Service) evalCondition(assertion models.Assertion, result models.AssertionResult, truth bool, _ string, failMessage string) models.AssertionResult {
	passed := truth
	switch assertion.Condition {
	case models.ConditionNotExists, models.ConditionIsNull:
		passed = !truth
	case models.ConditionExists, models.ConditionIsNotNull, models.ConditionEquals, "":
		passed = truth
	case models.ConditionNotEquals:
		passed = !truth
	}
	result.Passed = passed
	if !passed {
		result.Message = failMessage
	}
	return result
}

func presenceMessage(assertion models.Assertion, found bool, kind string) string {
	if found {
		return ""
	}
	return fmt.Sprintf("Assertion failed. Expected: %s %q to exist (%s), Actual: absent", kind, assertion.Target, assertion.Condition)
}

func (s *Service) numeric(assertion models.Assertion, result models.AssertionResult, actual float64, expectedStr string) models.AssertionResult {
	result.ActualValue = strconv.FormatFloat(actual, 'f', -1, 64)

	expected, err := strconv.ParseFloat(expectedStr, 64)
	if err != nil {
		return s.fail(result, "expected value is not numeric: "+expectedStr)
	}

	var passed bool
	switch assertion.Condition {
	case models.ConditionEquals, "":
		passed = actual == expected
	case models.ConditionNotEquals:
		passed = actual != expected
	case models.ConditionGreaterThan:
		passed = actual > expected
	case models.ConditionLessThan:
		passed = actual < expected
	case models.ConditionGreaterOrEqual:
		passed = actual >= expected
	case models.ConditionLessOrEqual:
		passed = actual <= expected
	default:
		return s.fail(result, "unsupported condition for numeric assertion: "+string(assertion.Condition))
	}

	result.Passed = passed
	if !passed {
		result.Message = fmt.Sprintf("Assertion failed. Expected: %s (%s), Actual: %s", expectedStr, assertion.Condition, result.ActualValue)
	}
	return result
}

func (s *Service) stringCompare(assertion models.Assertion, result models.AssertionResult, actual, expected string) models.AssertionResult {
	var passed bool
	switch assertion.Condition {
	case models.ConditionEquals, "":
		passed = actual == expected
	case models.ConditionNotEquals:
		passed = actual != expected
	case models.ConditionContains:
		passed = strings.Contains(actual, expected)
	case models.ConditionMatches:
		re, err := regexp.Compile(expected)
		if err != nil {
			return s.fail(result, "invalid regex: "+err.Error())
		}
		passed = re.MatchString(actual)
	case models.ConditionNotMatches:
		re, err := regexp.Compile(expected)
		if err != nil {
			return s.fail(result, "invalid regex: "+err.Error())
		}
		passed = !re.MatchString(actual)
	case models.ConditionIsEmpty:
		passed = actual == ""
	case models.ConditionIsNotEmpty:
		passed = actual != ""
	default:
		return s.fail(result, "unsupported condition for string assertion: "+string(assertion.Condition))
	}

	result.Passed = passed
	if !passed {
		result.Message = fmt.Sprintf("Assertion failed. Expected: %s (%s), Actual: %s", expected, assertion.Condition, actual)
	}
	return result
}

// bodyEquals special-cases BodyEqualsString to surface a readable diff
// (rather than the two full bodies) on failure.
func (s *Service) bodyEquals(assertion models.Assertion, result models.AssertionResult, actual, expected string) models.AssertionResult {
	if actual == expected {
		result.Passed = true
		return result
	}
	result.Passed = false
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	result.Message = fmt.Sprintf("Assertion failed. Expected body to equal, diff: %s", dmp.DiffPrettyText(diffs))
	return result
}

func (s *Service) jsonPathValue(assertion models.Assertion, result models.AssertionResult, body, expectedStr string, ctx map[string]string) models.AssertionResult {
	root, ok := s.parseBody(body)
	if !ok {
		return s.fail(result, "response body is not valid JSON")
	}
	node, found := s.selector.Select(root, assertion.Target)
	if !found {
		return s.fail(result, "JSON Path not found")
	}

	actual := s.selector.NodeValue(node)
	result.ActualValue = fmt.Sprintf("%v", actual)

	expected := coerce(expectedStr, actual)
	var passed bool
	switch assertion.Condition {
	case models.ConditionEquals, "":
		passed = fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
	case models.ConditionNotEquals:
		passed = fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected)
	case models.ConditionIsNull:
		passed = actual == nil
	case models.ConditionIsNotNull:
		passed = actual != nil
	default:
		// Numeric ordering when both sides parse as numbers; any other
		// condition is applied to the stringified value.
		af, aok := actual.(float64)
		ef, eerr := strconv.ParseFloat(expectedStr, 64)
		if aok && eerr == nil {
			return s.numeric(assertion, result, af, strconv.FormatFloat(ef, 'f', -1, 64))
		}
		return s.stringCompare(assertion, result, fmt.Sprintf("%v", actual), expectedStr)
	}

	result.Passed = passed
	if !passed {
		result.Message = fmt.Sprintf("Assertion failed. Expected: %v (%s), Actual: %v", expected, assertion.Condition, actual)
	}
	return result
}

func (s *Service) jsonPathExists(assertion models.Assertion, result models.AssertionResult, body string) models.AssertionResult {
	root, ok := s.parseBody(body)
	if !ok {
		result.ActualValue = "absent"
		return s.evalCondition(assertion, result, false, "", "response body is not valid JSON")
	}
	_, found := s.selector.Select(root, assertion.Target)
	result.ActualValue = fmt.Sprintf("%v", found)

	want := assertion.Type == models.AssertionJsonPathExists
	passed := found == want
	result.Passed = passed
	if !passed {
		result.Message = fmt.Sprintf("Assertion failed. Expected path %q to exist=%v, Actual: %v", assertion.Target, want, found)
	}
	return result
}

func (s *Service) arrayLength(assertion models.Assertion, result models.AssertionResult, body, expectedStr string) models.AssertionResult {
	root, ok := s.parseBody(body)
	if !ok {
		return s.fail(result, "response body is not valid JSON")
	}

	node := root
	if assertion.Target != "" && assertion.Target != "$" {
		n, found := s.selector.Select(root, assertion.Target)
		if !found {
			return s.fail(result, "JSON Path not found")
		}
		node = n
	}

	arr, ok := node.([]interface{})
	if !ok {
		return s.fail(result, "target is not an array")
	}

	return s.numeric(assertion, result, float64(len(arr)), expectedStr)
}

func (s *Service) arrayContains(assertion models.Assertion, result models.AssertionResult, body, expectedStr string) models.AssertionResult {
	root, ok := s.parseBody(body)
	if !ok {
		return s.fail(result, "response body is not valid JSON")
	}

	node, found := s.selector.Select(root, assertion.Target)
	if !found {
		return s.fail(result, "JSON Path not found")
	}

	arr, ok := node.([]interface{})
	if !ok {
		return s.fail(result, "target is not an array")
	}

	var contains bool
	for _, el := range arr {
		elVal := s.selector.NodeValue(el)
		expected := coerce(expectedStr, elVal)
		if fmt.Sprintf("%v", elVal) == fmt.Sprintf("%v", expected) {
			contains = true
			break
		}
	}

	result.ActualValue = fmt.Sprintf("%v", contains)
	result.Passed = contains == (assertion.Condition != models.ConditionNotExists)
	if !result.Passed {
		result.Message = fmt.Sprintf("Assertion failed. Expected: array to contain %s, Actual: not found", expectedStr)
	}
	return result
}

func (s *Service) jsonSchema(assertion models.Assertion, result models.AssertionResult, body, schemaText string) models.AssertionResult {
	schemaLoader := gojsonschema.NewStringLoader(schemaText)
	documentLoader := gojsonschema.NewStringLoader(body)

	validationResult, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return s.fail(result, "schema validation error: "+err.Error())
	}

	result.Passed = validationResult.Valid()
	if !result.Passed {
		var msgs []string
		for _, desc := range validationResult.Errors() {
			msgs = append(msgs, desc.String())
		}
		result.Message = "Assertion failed. Schema errors: " + strings.Join(msgs, "; ")
	}
	return result
}

// xmlPathValue supports a CSS-selector subset of XML/HTML targeting
// via goquery.
func (s *Service) xmlPathValue(assertion models.Assertion, result models.AssertionResult, body, expected string) models.AssertionResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return s.fail(result, "response body is not valid XML/HTML: "+err.Error())
	}

	selection := doc.Find(assertion.Target)
	if selection.Length() == 0 {
		return s.fail(result, "XML path not found")
	}

	actual := strings.TrimSpace(selection.First().Text())
	return s.stringCompare(assertion, result, actual, expected)
}

func (s *Service) parseBody(body string) (interface{}, bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	node, err := s.selector.Parse([]byte(trimmed))
	if err != nil {
		return nil, false
	}
	return node, true
}

func findHeader(headers map[string][]string, target string) ([]string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, target) {
			return v, true
		}
	}
	return nil, false
}

// coerce converts an expected string to the kind of like: a float64, using
// invariant-culture-style parsing (base-10, '.' decimal separator), or a
// bool, falling back to the raw string when like is neither or the
// expected string does not parse as that kind.
func coerce(expectedStr string, like interface{}) interface{} {
	switch like.(type) {
	case float64:
		if f, err := strconv.ParseFloat(expectedStr, 64); err == nil {
			return f
		}
	case bool:
		if b, err := strconv.ParseBool(expectedStr); err == nil {
			return b
		}
	}
	return expectedStr
}
