package internal

import (
	"net/url"
	"strings"
)

// Extract builds the positional arguments for decls from req.
// The result has one slot per index up to the highest declared one; undeclared
// slots stay nil. The first failing parameter aborts extraction.
func Extract(req *Request, decls []ParameterDeclaration) (Args, error) {
	if len(decls) == 0 {
		return nil, nil
	}

	size := 0
	for _, d := range decls {
		size = max(size, d.Index+1)
	}
	args := make(Args, size)

	for _, d := range decls {
		raw, err := rawValue(req, d)
		if err != nil {
			return nil, err
		}

		value := raw
		if d.Parser != nil {
			value, err = d.Parser(raw, d.label())
			if err != nil {
				if AsValidationError(err) != nil {
					return nil, err
				}
				return nil, MalformedParam(d.label(), err)
			}
		}
		args[d.Index] = value
	}

	return args, nil
}

// rawValue reads the unparsed value of d. Absent values are nil.
func rawValue(req *Request, d ParameterDeclaration) (any, error) {
	switch d.Source {
	case SourceQuery:
		return pick(req.QueryValues(), d.Name), nil
	case SourceQueryAll:
		return req.QueryValues(), nil
	case SourcePath:
		v, ok := req.Params()[d.Name]
		if !ok {
			return nil, nil
		}
		return v, nil
	case SourceHeader:
		values := req.lowerHeaders()[strings.ToLower(d.Name)]
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case SourceCookie:
		v, ok := req.Cookie(d.Name)
		if !ok {
			return nil, nil
		}
		return v, nil
	case SourceBody:
		body, err := req.Body()
		if err != nil {
			return nil, err
		}
		return field(body, d.Name), nil
	case SourceBodyAll:
		return req.Body()
	default:
		return nil, nil
	}
}

// pick returns a single value as string, repeated values as []string and nil when absent.
func pick(values url.Values, name string) any {
	v, ok := values[name]
	switch {
	case !ok || len(v) == 0:
		return nil
	case len(v) == 1:
		return v[0]
	default:
		return v
	}
}

func field(body any, name string) any {
	switch b := body.(type) {
	case map[string]any:
		return b[name]
	case url.Values:
		return pick(b, name)
	default:
		return nil
	}
}
