// Package auth decides whether a parsed CONNECT request may be tunneled.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/die-net/tinyconnect/internal/connect"
)

// ErrRejected is wrapped by every rejection returned from an Authorizer.
var ErrRejected = errors.New("proxy authorization rejected")

// Authorizer is consulted after a request parses and before anything is
// dialed. A nil error accepts the request.
type Authorizer interface {
	Authorize(ctx context.Context, cmd connect.Command) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, cmd connect.Command) error

func (f AuthorizerFunc) Authorize(ctx context.Context, cmd connect.Command) error {
	return f(ctx, cmd)
}

// AllowAll returns an Authorizer that accepts every request.
func AllowAll() Authorizer {
	return AuthorizerFunc(func(context.Context, connect.Command) error { return nil })
}

// Reject builds a rejection error wrapping ErrRejected.
func Reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

type basic struct {
	want []byte
}

// NewBasic returns an Authorizer that only accepts requests carrying
// "Proxy-Authorization: Basic <base64(username:password)>".
func NewBasic(username, password string) (Authorizer, error) {
	if username == "" {
		return nil, errors.New("basic auth: missing username")
	}
	if strings.Contains(username, ":") {
		return nil, errors.New("basic auth: username must not contain ':'")
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &basic{want: []byte(token)}, nil
}

func (b *basic) Authorize(_ context.Context, cmd connect.Command) error {
	a := cmd.Authorization
	if a == nil {
		return Reject("credentials required")
	}
	if !strings.EqualFold(a.Method, "Basic") {
		return Reject(fmt.Sprintf("unsupported method %q", a.Method))
	}
	if subtle.ConstantTimeCompare([]byte(a.Value), b.want) != 1 {
		return Reject("invalid credentials")
	}
	return nil
}
