// Package parse provides parameter parsers for dispatch declarations.
//
// A parser receives the raw value read from the request (a string, a
// []string for repeated query keys, a decoded JSON value or nil when the
// parameter is absent) and returns the coerced value handed to the handler:
//
//	reg.Route("users.list", listUsers,
//	    dispatch.Get("/users"),
//	    dispatch.Query(0, "limit", parse.Optional(parse.Int())),
//	    dispatch.Query(1, "sort", parse.Enum("name", "created_at")),
//	    dispatch.Header(2, "X-Tenant", parse.String()),
//	)
//
// Every parser except Optional rejects a nil value as missing. Coercion
// failures are reported as malformed. Both become 400 responses.
package parse
