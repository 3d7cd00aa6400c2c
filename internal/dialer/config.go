package dialer

import (
	"net"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect.
	DialTimeout time.Duration
	// NegotiationTimeout bounds upstream proxy handshakes (TLS, CONNECT,
	// SOCKS5, SSH).
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig

	SSHKeyPath        string
	SSHKnownHostsPath string

	Logger *zap.Logger
}
