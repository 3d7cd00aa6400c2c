package proxy

import (
	"time"

	"github.com/die-net/tinyconnect/internal/auth"
	"github.com/die-net/tinyconnect/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds the wait for the client's request. Zero
	// means no bound.
	NegotiationTimeout time.Duration

	// Dialer reaches the requested target. Nil dials directly.
	Dialer dialer.Dialer
	// Authorizer vets parsed requests. Nil accepts everything.
	Authorizer auth.Authorizer
	// Observer receives connection events. Nil discards them.
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = dialer.NewDirectDialer(dialer.Config{})
	}
	if c.Authorizer == nil {
		c.Authorizer = auth.AllowAll()
	}
	if c.Observer == nil {
		c.Observer = ObserverFunc(func(Event) {})
	}
	return c
}
