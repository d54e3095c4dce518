package internal

import "net/http"

// Base gives handler structs direct access to the request and response of
// their scope. Embed it and build it in the factory:
//
//	type ListUsers struct {
//	    dispatch.Base
//	    users *UserRepo
//	}
//
//	func NewListUsers(r dispatch.Resolver) (dispatch.Handler, error) {
//	    base, err := dispatch.NewBase(r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &ListUsers{Base: base, users: dispatch.MustResolve[*UserRepo](r, usersKey)}, nil
//	}
type Base struct {
	Req *Request
	Res *Response
}

// NewBase resolves the request and response bound on r.
func NewBase(r Resolver) (Base, error) {
	req, err := Resolve[*Request](r, RequestKey)
	if err != nil {
		return Base{}, err
	}
	res, err := Resolve[*Response](r, ResponseKey)
	if err != nil {
		return Base{}, err
	}
	return Base{Req: req, Res: res}, nil
}

// Empty ends the response with code and no body.
func (b Base) Empty(code int) error {
	return b.Res.NoContent(code)
}

// JSON writes v with status 200.
func (b Base) JSON(v any) error {
	return b.Res.JSON(http.StatusOK, v)
}

// SetHeader sets a response header.
func (b Base) SetHeader(key, value string) {
	b.Res.SetHeader(key, value)
}
