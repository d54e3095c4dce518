package parse

import (
	"net/url"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/jsoncodec"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Model decodes a JSON shaped value into T and validates struct tags.
// It accepts a decoded JSON body, a form (first value per key), a JSON string
// or raw bytes. The parsed value is a T; for a pointer T such as *createUser
// the struct it points to is validated, and JSON null counts as missing.
//
//	type createUser struct {
//	    Email string `json:"email" validate:"required,email"`
//	    Age   int    `json:"age" validate:"gte=18"`
//	}
//
//	dispatch.Body(0, parse.Model[createUser]())
func Model[T any]() internal.Parser {
	return func(raw any, label string) (any, error) {
		data, err := toJSON(raw, label)
		if err != nil {
			return nil, err
		}

		var out T
		if err := jsoncodec.Unmarshal(data, &out); err != nil {
			return nil, internal.MalformedParam(label, err)
		}
		v := reflect.ValueOf(&out).Elem()
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, internal.MissingParam(label)
			}
			v = v.Elem()
		}
		if v.Kind() == reflect.Struct {
			if err := validate.Struct(v.Addr().Interface()); err != nil {
				return nil, internal.MalformedParam(label, err)
			}
		}
		return out, nil
	}
}

func toJSON(raw any, label string) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, internal.MissingParam(label)
	case []byte:
		return v, nil
	case string:
		if jsoncodec.Valid([]byte(v)) {
			return []byte(v), nil
		}
	case url.Values:
		flat := make(map[string]string, len(v))
		for k := range v {
			flat[k] = v.Get(k)
		}
		raw = flat
	}

	data, err := jsoncodec.Marshal(raw)
	if err != nil {
		return nil, internal.MalformedParam(label, err)
	}
	return data, nil
}
