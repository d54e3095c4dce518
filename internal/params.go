package internal

import "strconv"

// Source identifies where a parameter value is read from.
type Source int

const (
	// SourceQuery reads a single named query parameter.
	SourceQuery Source = iota + 1
	// SourceQueryAll reads the whole query as url.Values.
	SourceQueryAll
	// SourcePath reads a named path parameter.
	SourcePath
	// SourceBody reads a named field of the parsed body.
	SourceBody
	// SourceBodyAll reads the whole parsed body.
	SourceBodyAll
	// SourceHeader reads a header. Names are matched case-insensitively.
	SourceHeader
	// SourceCookie reads a named cookie.
	SourceCookie
)

var sourceNames = map[Source]string{
	SourceQuery:    "query",
	SourceQueryAll: "query-all",
	SourcePath:     "path",
	SourceBody:     "body",
	SourceBodyAll:  "body-all",
	SourceHeader:   "header",
	SourceCookie:   "cookie",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "source(" + strconv.Itoa(int(s)) + ")"
}

func (s Source) valid() bool {
	_, ok := sourceNames[s]
	return ok
}

func (s Source) named() bool {
	return s != SourceQueryAll && s != SourceBodyAll
}

// Parser coerces and validates a raw parameter value.
// Label identifies the parameter in error messages.
// Return MissingParam or MalformedParam to control the reported reason;
// any other error is reported as malformed.
type Parser func(raw any, label string) (any, error)

// ParameterDeclaration binds the argument at Index to a request source.
type ParameterDeclaration struct {
	Parser Parser
	Name   string
	Label  string
	Index  int
	Source Source
}

func (p ParameterDeclaration) label() string {
	if p.Label != "" {
		return p.Label
	}
	return "param[" + strconv.Itoa(p.Index) + "]"
}

// Args holds bound parameters in positional order.
type Args []any

// Len returns the number of positions, including gaps.
func (a Args) Len() int {
	return len(a)
}

// At returns the value at position i, or nil when i is out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// Arg returns the value at position i converted to T.
// The zero value is returned when the position is empty or holds another type.
func Arg[T any](a Args, i int) T {
	v, _ := ArgOK[T](a, i)
	return v
}

// ArgOK is like Arg but reports whether a value of type T was present.
func ArgOK[T any](a Args, i int) (T, bool) {
	v, ok := a.At(i).(T)
	return v, ok
}
