// Package extractor reads values out of a response per an ordered rule
// set: body (JSON path), header, or status code sourcing, with optional
// regex capture on the string form.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/devrickard/testcascade/internal/application/selector"
	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// Service implements application.VariableExtractor.
type Service struct {
	selector *selector.Service
	logger   logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Variable Extractor.
func NewService(options ...Option) *Service {
	s := &Service{
		selector: selector.NewService(),
		logger:   logging.NewNullLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Extract evaluates rules in order against the given response, returning
// a fresh Name->value mapping. A rule whose regex fails to match
// produces an empty value plus a logged warning rather than an error.
func (s *Service) Extract(
	status int,
	headers map[string][]string,
	body string,
	rules []models.VariableExtractionRule,
) map[string]string {
	result := make(map[string]string, len(rules))

	for _, rule := range rules {
		raw, ok := s.resolveRaw(status, headers, body, rule)
		if !ok {
			s.logger.Warnf("extractor: rule %q produced no value", rule.Name)
			result[rule.Name] = ""
			continue
		}

		if rule.Regex != "" {
			matched, ok := s.applyRegex(raw, rule.Regex)
			if !ok {
				s.logger.Warnf("extractor: rule %q regex %q did not match", rule.Name, rule.Regex)
				result[rule.Name] = ""
				continue
			}
			raw = matched
		}

		result[rule.Name] = raw
	}

	return result
}

func (s *Service) resolveRaw(
	status int,
	headers map[string][]string,
	body string,
	rule models.VariableExtractionRule,
) (string, bool) {
	switch rule.Source {
	case models.ExtractFromResponseStatusCode:
		return strconv.Itoa(status), true

	case models.ExtractFromResponseHeader:
		values := lookupHeader(headers, rule.Path)
		if len(values) == 0 {
			return "", false
		}
		return strings.Join(values, ","), true

	case models.ExtractFromResponseBody:
		if rule.Path == "" {
			return body, true
		}
		root, err := s.selector.Parse([]byte(body))
		if err != nil {
			// Not JSON: fall back to the raw body.
			return body, true
		}
		node, ok := s.selector.Select(root, rule.Path)
		if !ok {
			return "", false
		}
		return stringify(s.selector.NodeValue(node)), true

	default:
		return "", false
	}
}

func (s *Service) applyRegex(input, pattern string) (string, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		s.logger.Warnf("extractor: invalid regex %q: %v", pattern, err)
		return "", false
	}
	matches := re.FindStringSubmatch(input)
	if matches == nil {
		return "", false
	}
	if len(matches) > 1 {
		return matches[1], true
	}
	return matches[0], true
}

func lookupHeader(headers map[string][]string, name string) []string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
