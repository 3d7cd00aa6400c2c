package proxy

import (
	"net"
	"time"

	"github.com/die-net/tinyconnect/internal/connect"
)

// EventKind identifies a step in a connection's life.
type EventKind int

const (
	ConnectionStarted EventKind = iota
	RequestParsed
	DialSucceeded
	ReplySent
	TunnelClosed
	// ConnectionFailed is emitted once when a connection ends before its
	// tunnel ran. Err holds the cause.
	ConnectionFailed
	// AcceptRetry reports a temporary accept error. It belongs to no
	// connection: ConnID and Remote are zero, Err is the accept error and
	// Elapsed is the pause before the next attempt.
	AcceptRetry
)

func (k EventKind) String() string {
	switch k {
	case ConnectionStarted:
		return "connection started"
	case RequestParsed:
		return "request parsed"
	case DialSucceeded:
		return "dial succeeded"
	case ReplySent:
		return "reply sent"
	case TunnelClosed:
		return "tunnel closed"
	case ConnectionFailed:
		return "connection failed"
	case AcceptRetry:
		return "accept retry"
	default:
		return "unknown"
	}
}

// Event describes one step of one connection. Fields that do not apply to
// Kind are left zero.
type Event struct {
	Kind   EventKind
	ConnID uint64
	Remote net.Addr

	// Command is set from RequestParsed onward.
	Command connect.Command

	// Status and Message describe the reply on ReplySent.
	Status  int
	Message string

	// Elapsed is the dial duration on DialSucceeded and the time since the
	// connection was accepted on TunnelClosed and ConnectionFailed.
	Elapsed time.Duration

	// Result holds byte counts on TunnelClosed.
	Result TunnelResult

	// Err is the failure on ConnectionFailed, or the tunnel's I/O error on
	// TunnelClosed.
	Err error
}

// Observer receives events. Observe is called from connection goroutines
// and must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}
