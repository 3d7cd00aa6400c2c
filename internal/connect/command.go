package connect

import (
	"net"
	"strconv"
)

// Authorization is the parsed Proxy-Authorization header.
type Authorization struct {
	Method string
	Value  string
}

// Command is the result of parsing one CONNECT request.
type Command struct {
	// Address is the request-target token exactly as sent.
	Address string
	// HostAddress and HostPort come from the Host header and are what gets
	// dialed.
	HostAddress string
	HostPort    uint16
	// Authorization is nil unless the request carried a Proxy-Authorization
	// header.
	Authorization *Authorization
}

// DialAddress returns the host:port to dial for c.
func (c Command) DialAddress() string {
	return net.JoinHostPort(c.HostAddress, strconv.FormatUint(uint64(c.HostPort), 10))
}

// builder accumulates stage results. Each setter returns a new builder so a
// half-parsed request is never visible outside Parse.
type builder struct {
	address     string
	hostAddress string
	hostPort    uint16
	authMethod  string
	authValue   string
	hasAuth     bool
}

func (b builder) command() Command {
	cmd := Command{
		Address:     b.address,
		HostAddress: b.hostAddress,
		HostPort:    b.hostPort,
	}
	if b.hasAuth {
		cmd.Authorization = &Authorization{Method: b.authMethod, Value: b.authValue}
	}
	return cmd
}
