package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/munnerz/goautoneg"

	"github.com/dmitrymomot/dispatch/pkg/jsoncodec"
)

const defaultBodyLimit int64 = 10 << 20 // 10MB

// Request wraps *http.Request with the lookups the binder needs.
// The parsed body is cached, so it can be bound by several parameters.
type Request struct {
	raw        *http.Request
	params     map[string]string
	headers    http.Header
	body       any
	bodyErr    error
	bodyLimit  int64
	bodyParsed bool
}

// NewRequest wraps r. A non-positive bodyLimit selects the default of 10MB.
func NewRequest(r *http.Request, bodyLimit int64) *Request {
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	return &Request{raw: r, bodyLimit: bodyLimit}
}

// HTTP returns the underlying *http.Request.
func (r *Request) HTTP() *http.Request {
	return r.raw
}

func (r *Request) Context() context.Context {
	return r.raw.Context()
}

// SetContext replaces the context later stages see. A nil ctx is ignored.
func (r *Request) SetContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	r.raw = r.raw.WithContext(ctx)
}

// replace adopts a request derived from the current one, for example by a
// net/http middleware adding context values or rewriting headers.
func (r *Request) replace(raw *http.Request) {
	if raw == nil || raw == r.raw {
		return
	}
	r.raw = raw
	r.headers = nil
}

func (r *Request) Method() string {
	return r.raw.Method
}

func (r *Request) Path() string {
	return r.raw.URL.Path
}

func (r *Request) URL() *url.URL {
	return r.raw.URL
}

// Param returns a path parameter of the matched route.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// Params returns all path parameters of the matched route.
func (r *Request) Params() map[string]string {
	return r.params
}

func (r *Request) setParams(params map[string]string) {
	r.params = params
}

// Query returns the first value of the named query parameter.
func (r *Request) Query(name string) string {
	return r.raw.URL.Query().Get(name)
}

// QueryValues returns the parsed query string.
func (r *Request) QueryValues() url.Values {
	return r.raw.URL.Query()
}

// Header returns the first value of a header. The lookup is case-insensitive.
func (r *Request) Header(name string) string {
	values := r.lowerHeaders()[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// lowerHeaders indexes headers by lower-cased name so non-canonical keys set
// directly on the header map are found as well.
func (r *Request) lowerHeaders() http.Header {
	if r.headers == nil {
		r.headers = make(http.Header, len(r.raw.Header))
		for k, v := range r.raw.Header {
			lk := strings.ToLower(k)
			r.headers[lk] = append(r.headers[lk], v...)
		}
	}
	return r.headers
}

// Cookie returns the value of the named cookie.
func (r *Request) Cookie(name string) (string, bool) {
	c, err := r.raw.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Accepts returns the best of offers for the Accept header, or "" when none is acceptable.
// A request without an Accept header accepts the first offer.
func (r *Request) Accepts(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	accept := r.raw.Header.Get("Accept")
	if strings.TrimSpace(accept) == "" {
		return offers[0]
	}
	return goautoneg.Negotiate(accept, offers)
}

// Body returns the parsed request body:
//   - JSON: the decoded value (map[string]any, []any, ...)
//   - url-encoded or multipart form: url.Values
//   - text/*: string
//   - anything else: []byte
//
// An empty body yields nil. The body is read once.
func (r *Request) Body() (any, error) {
	if !r.bodyParsed {
		r.bodyParsed = true
		r.body, r.bodyErr = r.parseBody()
	}
	return r.body, r.bodyErr
}

func (r *Request) parseBody() (any, error) {
	if r.raw.Body == nil || r.raw.Body == http.NoBody {
		return nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.raw.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.raw.Body = http.MaxBytesReader(nil, r.raw.Body, r.bodyLimit)
		if err := r.raw.ParseMultipartForm(r.bodyLimit); err != nil {
			return nil, bodyError(err)
		}
		return url.Values(r.raw.MultipartForm.Value), nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(nil, r.raw.Body, r.bodyLimit))
	if err != nil {
		return nil, bodyError(err)
	}
	// Keep the body readable for net/http middleware wrapped after binding.
	r.raw.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) == 0 {
		return nil, nil
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var v any
		if err := jsoncodec.Unmarshal(data, &v); err != nil {
			return nil, ErrBadRequest("malformed JSON body", WithError(err))
		}
		return v, nil
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, ErrBadRequest("malformed form body", WithError(err))
		}
		return values, nil
	case strings.HasPrefix(mediaType, "text/"):
		return string(data), nil
	default:
		return data, nil
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrRequestEntityTooLarge("request body too large", WithError(err))
	}
	return ErrBadRequest("unreadable request body", WithError(err))
}
