// Package substitutor implements the Variable Substitutor: expanding
// {{name}} placeholders in a string against a variable context.
package substitutor

import (
	"strings"

	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// Service expands {{name}} tokens. Tokens are matched non-overlapping and
// non-greedily, left to right; an unknown key is replaced with the empty
// string and logged at warn level rather than failing the expansion. No
// recursive expansion is performed: a substituted value that itself
// contains "{{x}}" is left literal.
type Service struct {
	logger logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Variable Substitutor.
func NewService(options ...Option) *Service {
	s := &Service{logger: logging.NewNullLogger()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Expand replaces each {{key}} token in template with ctx[key]'s string
// form, trimming whitespace inside the braces. A nil/empty template
// yields the empty string.
func (s *Service) Expand(template string, ctx map[string]string) string {
	if template == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			b.WriteString(rest)
			break
		}
		closeIdx := strings.Index(rest[open+2:], "}}")
		if closeIdx == -1 {
			// Unbalanced braces: treat the remainder as literal.
			b.WriteString(rest)
			break
		}
		closeIdx += open + 2

		b.WriteString(rest[:open])

		key := strings.TrimSpace(rest[open+2 : closeIdx])
		if value, ok := ctx[key]; ok {
			b.WriteString(value)
		} else {
			s.logger.Warnf("substitutor: no value for variable %q", key)
		}

		rest = rest[closeIdx+2:]
	}

	return b.String()
}
