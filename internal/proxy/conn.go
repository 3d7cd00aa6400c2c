package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/die-net/tinyconnect/internal/auth"
	"github.com/die-net/tinyconnect/internal/connect"
)

// maxRequestSize caps the single read that must hold the whole request.
const maxRequestSize = 4096

// session drives one accepted connection from request to tunnel teardown.
type session struct {
	cfg     *Config
	id      uint64
	inbound net.Conn
	start   time.Time
	cmd     connect.Command
}

func (s *session) emit(e Event) {
	e.ConnID = s.id
	e.Remote = s.inbound.RemoteAddr()
	e.Command = s.cmd
	s.cfg.Observer.Observe(e)
}

// serve runs the session and closes inbound before returning.
func (s *session) serve(ctx context.Context) {
	defer s.inbound.Close()

	// Set before the shutdown hook so the hook's expired deadline always
	// wins.
	if t := s.cfg.NegotiationTimeout; t > 0 {
		_ = s.inbound.SetReadDeadline(time.Now().Add(t))
	}
	stop := context.AfterFunc(ctx, func() {
		expire(s.inbound)
	})
	defer stop()

	s.emit(Event{Kind: ConnectionStarted})
	if err := s.run(ctx); err != nil {
		s.emit(Event{Kind: ConnectionFailed, Elapsed: time.Since(s.start), Err: err})
	}
}

func (s *session) run(ctx context.Context) error {
	req, err := s.readRequest(ctx)
	if err != nil {
		return err
	}

	cmd, err := connect.Parse(req)
	if err != nil {
		return s.refuse(err)
	}
	s.cmd = cmd
	s.emit(Event{Kind: RequestParsed})

	if err := s.cfg.Authorizer.Authorize(ctx, cmd); err != nil {
		if !errors.Is(err, auth.ErrRejected) {
			err = fmt.Errorf("%w: %w", auth.ErrRejected, err)
		}
		return s.refuse(err)
	}

	dialStart := time.Now()
	upstream, err := s.cfg.Dialer.DialContext(ctx, "tcp", cmd.DialAddress())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Dial failures close the connection without a reply.
		return fmt.Errorf("%w: %w", ErrDialFailure, err)
	}
	defer upstream.Close()
	s.emit(Event{Kind: DialSucceeded, Elapsed: time.Since(dialStart)})

	if err := WriteSuccess(s.inbound); err != nil {
		return err
	}
	_ = s.inbound.SetReadDeadline(time.Time{})
	s.emit(Event{Kind: ReplySent, Status: http.StatusOK})

	res, err := Tunnel(ctx, s.inbound, upstream)
	s.emit(Event{Kind: TunnelClosed, Elapsed: time.Since(s.start), Result: res, Err: err})
	return nil
}

// readRequest makes exactly one read; a request split across reads is
// treated as incomplete by the parser.
func (s *session) readRequest(ctx context.Context) ([]byte, error) {
	buf := make([]byte, maxRequestSize)
	n, err := s.inbound.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, ErrPrematureClose
	}
	return nil, fmt.Errorf("read request: %w", err)
}

// refuse answers 400 with cause as the body and returns cause.
func (s *session) refuse(cause error) error {
	msg := cause.Error()
	if err := WriteBadRequest(s.inbound, msg); err != nil {
		return errors.Join(cause, err)
	}
	s.emit(Event{Kind: ReplySent, Status: http.StatusBadRequest, Message: msg})
	return cause
}
