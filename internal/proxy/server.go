package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server accepts CONNECT clients and runs one session per connection.
type Server struct {
	ctx    context.Context
	cfg    Config
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// NewServer returns a Server whose connections all end when ctx does.
func NewServer(ctx context.Context, cfg Config) *Server {
	return &Server{ctx: ctx, cfg: cfg.withDefaults()}
}

// Serve accepts on ln until the server's context ends, which also closes
// ln. It returns nil on that shutdown. Temporary accept errors, such as
// running out of file descriptors, are retried with a capped backoff; any
// other accept error is returned. In-flight connections keep running; use
// Wait to drain them.
func (s *Server) Serve(ln net.Listener) error {
	stop := context.AfterFunc(s.ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if !temporaryAcceptError(err) {
				return fmt.Errorf("accept: %w", err)
			}

			delay = min(max(2*delay, minAcceptDelay), maxAcceptDelay)
			s.cfg.Observer.Observe(Event{Kind: AcceptRetry, Elapsed: delay, Err: err})

			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-s.ctx.Done():
				t.Stop()
				return nil
			}
			continue
		}
		delay = 0

		sess := &session{
			cfg:     &s.cfg,
			id:      s.nextID.Add(1),
			inbound: c,
			start:   time.Now(),
		}
		s.wg.Go(func() {
			sess.serve(s.ctx)
		})
	}
}

// Wait blocks until every connection accepted by Serve has closed.
func (s *Server) Wait() {
	s.wg.Wait()
}

// temporaryAcceptError reports whether a later Accept may succeed.
func temporaryAcceptError(err error) bool {
	switch {
	case errors.Is(err, syscall.EMFILE),
		errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.ENOBUFS),
		errors.Is(err, syscall.ENOMEM),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
