package connect

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every error returned from Parse.
var ErrMalformed = errors.New("malformed connect request")

// ParseError reports which stage of the request grammar failed.
type ParseError struct {
	// Stage names the grammar stage, e.g. "method" or "host port".
	Stage string
	// Incomplete is set when the buffer ended before the stage's delimiter.
	Incomplete bool
	Detail     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Stage, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

func malformed(stage, format string, args ...any) error {
	return &ParseError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

func incomplete(stage, format string, args ...any) error {
	return &ParseError{Stage: stage, Incomplete: true, Detail: fmt.Sprintf(format, args...)}
}
