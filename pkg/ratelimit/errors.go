package ratelimit

import "errors"

var (
	// ErrClosed is returned by a Memory store after Close.
	ErrClosed = errors.New("ratelimit: store closed")

	// ErrInvalidConfig is returned for a non-positive limit or window.
	ErrInvalidConfig = errors.New("ratelimit: invalid limit or window")
)
