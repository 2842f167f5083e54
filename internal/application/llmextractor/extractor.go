// Package llmextractor turns arbitrary, possibly malformed LLM output
// into a validated list of TestCases. It never fails: unparseable text
// yields an empty list, invalid entries are discarded with a warning.
package llmextractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"

	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\n?(.*?)```")

// Service implements application.TestCaseExtractor.
type Service struct {
	logger logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates an LLM-Text Test Case Extractor.
func NewService(options ...Option) *Service {
	s := &Service{logger: logging.NewNullLogger()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Extract never fails: unparsable text or a wholly invalid payload
// yields an empty slice, which is a legitimate result, not an error.
// Recovery is staged: parse the first balanced JSON value as a test
// case array, retry the array parse against every balanced array
// embedded anywhere in the text, then fall back to scanning individual
// objects.
func (s *Service) Extract(text string) []models.TestCase {
	candidate := stripCodeFences(text)

	raw, ok := firstJSONValue(candidate)
	if !ok {
		s.logger.Warnf("llmextractor: no complete JSON value found in input")
		return nil
	}

	entries, err := s.parseArray(raw)
	if err == nil {
		return s.validate(entries)
	}
	s.logger.Warnf("llmextractor: lenient array parse failed, retrying embedded arrays: %v", err)

	if entries, ok := s.retryEmbeddedArrays(candidate); ok {
		return s.validate(entries)
	}

	s.logger.Warnf("llmextractor: no embedded array parsed, falling back to per-object scan")
	return s.validate(s.scanObjects(candidate))
}

// stripCodeFences removes markdown code fence markers, keeping their
// contents, and falls back to the original text if no fence is present.
func stripCodeFences(text string) string {
	if match := codeFenceRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(text)
}

// firstJSONValue scans for the first complete top-level JSON array or
// object by bracket balancing, tolerant of trailing prose after it.
func firstJSONValue(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		end, ok := balancedEnd(text, i)
		if !ok {
			return "", false
		}
		return text[i : end+1], true
	}
	return "", false
}

// balancedEnd returns the index of the bracket closing the value that
// opens at start, counting nesting to arbitrary depth and skipping
// brackets inside strings (escape-aware). ok is false when the value
// never closes.
func balancedEnd(text string, start int) (int, bool) {
	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// scanValues returns every balanced JSON value in text opening with the
// given bracket, outermost occurrences only: the scan jumps past each
// match rather than descending into it.
func scanValues(text string, open byte) []string {
	var values []string
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}
		end, ok := balancedEnd(text, i)
		if !ok {
			break
		}
		values = append(values, text[i:end+1])
		i = end
	}
	return values
}

// parseArray decodes raw as a JSON array of test case objects, repairing
// common LLM JSON mistakes (trailing commas, smart quotes, unquoted
// keys) first.
func (s *Service) parseArray(raw string) ([]models.TestCase, error) {
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		repaired = raw
	}

	var entries []models.TestCase
	if err := json.UnmarshalFromString(repaired, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// retryEmbeddedArrays reattempts the whole-array parse against every
// balanced [...] found anywhere in text, keeping the first that decodes.
// This recovers responses where prose or a summary object precedes the
// actual test case array. An array of unrelated objects (tags, endpoint
// lists) still decodes structurally since unknown fields are ignored,
// so at least one entry must look like a test case before the array is
// accepted.
func (s *Service) retryEmbeddedArrays(text string) ([]models.TestCase, bool) {
	for _, raw := range scanValues(text, '[') {
		entries, err := s.parseArray(raw)
		if err != nil || !containsTestCase(entries) {
			continue
		}
		return entries, true
	}
	return nil, false
}

func containsTestCase(entries []models.TestCase) bool {
	for _, tc := range entries {
		if tc.TestCaseID != "" && tc.Request.Path != "" {
			return true
		}
	}
	return false
}

// scanObjects is the last-resort fallback: it pulls out every outermost
// {...} value and parses each independently, so one malformed entry
// doesn't sink the rest.
func (s *Service) scanObjects(text string) []models.TestCase {
	candidates := scanValues(text, '{')
	entries := make([]models.TestCase, 0, len(candidates))

	var errs *multierror.Error
	for _, raw := range candidates {
		repaired, err := jsonrepair.JSONRepair(raw)
		if err != nil {
			repaired = raw
		}
		var tc models.TestCase
		if err := json.UnmarshalFromString(repaired, &tc); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		entries = append(entries, tc)
	}

	if errs != nil {
		s.logger.Warnf("llmextractor: %v", errs.ErrorOrNil())
	}

	return entries
}

// validate drops entries missing the fields a runnable TestCase requires,
// aggregating the reasons via multierror without aborting extraction.
func (s *Service) validate(entries []models.TestCase) []models.TestCase {
	valid := make([]models.TestCase, 0, len(entries))
	var errs *multierror.Error

	for i, tc := range entries {
		if tc.TestCaseID == "" {
			errs = multierror.Append(errs, entryError(i, "missing testCaseId"))
			continue
		}
		if tc.Name == "" {
			errs = multierror.Append(errs, entryError(i, "missing name"))
			continue
		}
		if tc.Request.Path == "" {
			errs = multierror.Append(errs, entryError(i, "missing request.path"))
			continue
		}
		valid = append(valid, tc)
	}

	if errs != nil {
		s.logger.Warnf("llmextractor: discarded invalid entries: %v", errs.ErrorOrNil())
	}

	return valid
}

func entryError(index int, reason string) error {
	return &entryValidationError{index: index, reason: reason}
}

type entryValidationError struct {
	index  int
	reason string
}

func (e *entryValidationError) Error() string {
	return "entry " + strconv.Itoa(e.index) + ": " + e.reason
}
