package parse

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/sanitizer"
)

// Sanitized parses a string and cleans it with policy.
// A nil policy keeps basic formatting only (sanitizer.BasicPolicy).
func Sanitized(policy *bluemonday.Policy) internal.Parser {
	return func(raw any, label string) (any, error) {
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		return sanitizer.Sanitize(s, policy), nil
	}
}

// PlainText parses a string and strips every HTML tag.
func PlainText() internal.Parser {
	return func(raw any, label string) (any, error) {
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		return sanitizer.StripHTML(s), nil
	}
}
