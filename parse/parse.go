package parse

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
)

var (
	ErrUnexpectedType = errors.New("unexpected type")
	ErrOutOfRange     = errors.New("value out of range")
	ErrNotAllowed     = errors.New("value not allowed")
)

// scalar reduces raw to a single string. Repeated values use the first one.
func scalar(raw any, label string) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", internal.MissingParam(label)
	case string:
		return v, nil
	case []string:
		if len(v) == 0 {
			return "", internal.MissingParam(label)
		}
		return v[0], nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", internal.MalformedParam(label, fmt.Errorf("%w %T", ErrUnexpectedType, raw))
	}
}

// String accepts any scalar value and returns it as a string.
func String() internal.Parser {
	return func(raw any, label string) (any, error) {
		return scalar(raw, label)
	}
}

// Required passes raw through unchanged and only rejects absent values.
func Required() internal.Parser {
	return func(raw any, label string) (any, error) {
		if raw == nil {
			return nil, internal.MissingParam(label)
		}
		return raw, nil
	}
}

// Int parses a base 10 int.
func Int() internal.Parser {
	return func(raw any, label string) (any, error) {
		n, err := integer(raw, label, strconv.IntSize)
		if err != nil {
			return nil, err
		}
		return int(n), nil
	}
}

// Int64 parses a base 10 int64.
func Int64() internal.Parser {
	return func(raw any, label string) (any, error) {
		return integer(raw, label, 64)
	}
}

func integer(raw any, label string, bits int) (int64, error) {
	if f, ok := raw.(float64); ok {
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, internal.MalformedParam(label, ErrOutOfRange)
		}
		raw = strconv.FormatFloat(f, 'f', -1, 64)
	}
	s, err := scalar(raw, label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
	if err != nil {
		return 0, internal.MalformedParam(label, err)
	}
	return n, nil
}

// Float parses a float64.
func Float() internal.Parser {
	return func(raw any, label string) (any, error) {
		if f, ok := raw.(float64); ok {
			return f, nil
		}
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, internal.MalformedParam(label, err)
		}
		return f, nil
	}
}

// Bool parses the forms accepted by strconv.ParseBool plus "yes", "no", "on" and "off".
func Bool() internal.Parser {
	return func(raw any, label string) (any, error) {
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, internal.MalformedParam(label, err)
		}
		return b, nil
	}
}

// Time parses a time.Time trying each layout in order. Defaults to RFC 3339.
func Time(layouts ...string) internal.Parser {
	if len(layouts) == 0 {
		layouts = []string{time.RFC3339Nano}
	}
	return func(raw any, label string) (any, error) {
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		var errs []error
		for _, layout := range layouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t, nil
			}
			errs = append(errs, err)
		}
		return nil, internal.MalformedParam(label, errors.Join(errs...))
	}
}

// Enum accepts only the listed values.
func Enum(values ...string) internal.Parser {
	return func(raw any, label string) (any, error) {
		s, err := scalar(raw, label)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(values, s) {
			return nil, internal.MalformedParam(label,
				fmt.Errorf("%w: %q, expected one of %s", ErrNotAllowed, s, strings.Join(values, ", ")))
		}
		return s, nil
	}
}

// Strings returns every value of a repeated parameter as []string.
// A single value yields a one element slice.
func Strings() internal.Parser {
	return func(raw any, label string) (any, error) {
		switch v := raw.(type) {
		case nil:
			return nil, internal.MissingParam(label)
		case string:
			return []string{v}, nil
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for i, item := range v {
				s, err := scalar(item, fmt.Sprintf("%s[%d]", label, i))
				if err != nil {
					return nil, err
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, internal.MalformedParam(label, fmt.Errorf("%w %T", ErrUnexpectedType, raw))
		}
	}
}

// Each applies elem to every value of a repeated parameter and returns []any.
func Each(elem internal.Parser) internal.Parser {
	return func(raw any, label string) (any, error) {
		var items []any
		switch v := raw.(type) {
		case nil:
			return nil, internal.MissingParam(label)
		case []string:
			for _, s := range v {
				items = append(items, s)
			}
		case []any:
			items = v
		default:
			items = []any{v}
		}

		out := make([]any, len(items))
		for i, item := range items {
			parsed, err := elem(item, fmt.Sprintf("%s[%d]", label, i))
			if err != nil {
				return nil, err
			}
			out[i] = parsed
		}
		return out, nil
	}
}

// Optional lets p accept an absent value, yielding nil.
func Optional(p internal.Parser) internal.Parser {
	return func(raw any, label string) (any, error) {
		if raw == nil {
			return nil, nil
		}
		return p(raw, label)
	}
}

// Default yields value when the parameter is absent.
func Default(p internal.Parser, value any) internal.Parser {
	return func(raw any, label string) (any, error) {
		if raw == nil {
			return value, nil
		}
		return p(raw, label)
	}
}
