package proxy

import "errors"

var (
	// ErrPrematureClose means the client went away before sending a request.
	ErrPrematureClose = errors.New("connection closed before request")
	// ErrDialFailure wraps errors reaching the requested target.
	ErrDialFailure = errors.New("dial target failed")
)
