// Package logging turns proxy events into structured zap log entries.
package logging

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/die-net/tinyconnect/internal/auth"
	"github.com/die-net/tinyconnect/internal/connect"
	"github.com/die-net/tinyconnect/internal/proxy"
)

// New returns a JSON production logger at info level, or debug when
// verbose is set.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

type eventLogger struct {
	log *zap.Logger
}

// NewObserver logs every proxy event to log. Authorization values are never
// written.
func NewObserver(log *zap.Logger) proxy.Observer {
	return &eventLogger{log: log}
}

func (o *eventLogger) Observe(e proxy.Event) {
	if e.Kind == proxy.AcceptRetry {
		o.log.Warn(e.Kind.String(), zap.Duration("delay", e.Elapsed), zap.Error(e.Err))
		return
	}

	fields := []zap.Field{
		zap.Uint64("conn", e.ConnID),
		zap.Stringer("remote", e.Remote),
	}
	if e.Command.Address != "" {
		fields = append(fields, zap.String("address", e.Command.Address))
	}
	if e.Command.HostAddress != "" {
		fields = append(fields, zap.String("dial", e.Command.DialAddress()))
	}
	if a := e.Command.Authorization; a != nil {
		fields = append(fields, zap.String("method", a.Method))
	}

	switch e.Kind {
	case proxy.ConnectionStarted, proxy.RequestParsed:
		o.log.Debug(e.Kind.String(), fields...)
	case proxy.DialSucceeded:
		o.log.Debug(e.Kind.String(), append(fields, zap.Duration("elapsed", e.Elapsed))...)
	case proxy.ReplySent:
		fields = append(fields, zap.Int("status", e.Status))
		if e.Message != "" {
			fields = append(fields, zap.String("message", e.Message))
		}
		o.log.Debug(e.Kind.String(), fields...)
	case proxy.TunnelClosed:
		fields = append(fields,
			zap.Int64("bytes_out", e.Result.ClientToUpstream),
			zap.Int64("bytes_in", e.Result.UpstreamToClient),
			zap.Duration("elapsed", e.Elapsed),
		)
		if e.Err != nil {
			o.log.Info(e.Kind.String(), append(fields, zap.Error(e.Err))...)
			return
		}
		o.log.Info(e.Kind.String(), fields...)
	case proxy.ConnectionFailed:
		fields = append(fields, zap.Duration("elapsed", e.Elapsed), zap.Error(e.Err))
		if ce := o.log.Check(failureLevel(e.Err), e.Kind.String()); ce != nil {
			ce.Write(fields...)
		}
	}
}

func failureLevel(err error) zapcore.Level {
	switch {
	case errors.Is(err, connect.ErrMalformed),
		errors.Is(err, auth.ErrRejected),
		errors.Is(err, proxy.ErrDialFailure):
		return zapcore.WarnLevel
	case errors.Is(err, proxy.ErrPrematureClose),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return zapcore.DebugLevel
	default:
		return zapcore.ErrorLevel
	}
}
