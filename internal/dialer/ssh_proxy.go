package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"

	internalssh "github.com/die-net/tinyconnect/internal/ssh"
)

// SSHProxyDialer reaches targets through "direct-tcpip" channels on an SSH
// server, the same mechanism as ssh -D.
//
// Each DialContext runs a fresh SSH handshake and opens exactly one channel
// on it; closing the returned conn tears down both.
type SSHProxyDialer struct {
	sshAddr   string
	sshConfig internalssh.ClientConfig
	direct    Dialer
}

// NewSSHProxyDialer authenticates as username with password, the keys named
// by cfg.SSHKeyPath, or both. Host keys are checked against
// cfg.SSHKnownHostsPath (trust on first use); an empty path disables the
// check.
func NewSSHProxyDialer(cfg Config, sshAddr, username, password string) (*SSHProxyDialer, error) {
	if sshAddr == "" {
		return nil, errors.New("ssh dialer: missing ssh address")
	}
	if username == "" {
		return nil, errors.New("ssh dialer: missing username")
	}

	signers, err := internalssh.LoadSigners(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}
	if password == "" && len(signers) == 0 {
		return nil, errors.New("ssh dialer: missing password or key")
	}

	hostKeyCallback, err := internalssh.NewHostKeyCallback(cfg.SSHKnownHostsPath, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	return &SSHProxyDialer{
		sshAddr: sshAddr,
		sshConfig: internalssh.ClientConfig{
			Username:         username,
			Password:         password,
			Signers:          signers,
			HostKeyCallback:  hostKeyCallback,
			HandshakeTimeout: cfg.NegotiationTimeout,
		},
		direct: NewDirectDialer(cfg),
	}, nil
}

func (d *SSHProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("ssh proxy dial %s %s: unsupported network", network, address)
	}

	conn, err := d.direct.DialContext(ctx, "tcp", d.sshAddr)
	if err != nil {
		return nil, fmt.Errorf("ssh proxy: %w", err)
	}

	// The handshake deadline is handled by NewClient, so only ctx is watched
	// here.
	var (
		client  *ssh.Client
		channel net.Conn
	)
	err = negotiate(ctx, conn, 0, func() error {
		var err error
		client, err = internalssh.NewClient(conn, d.sshConfig, d.sshAddr)
		if err != nil {
			return err
		}
		channel, err = client.DialContext(ctx, "tcp", address)
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("channel: %w", err)
		}
		return nil
	})
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, fmt.Errorf("ssh proxy dial %s: %w", address, err)
	}

	return &sshChannelConn{Conn: channel, client: client}, nil
}

// sshChannelConn owns the SSH transport its channel runs on.
type sshChannelConn struct {
	net.Conn
	client *ssh.Client
}

func (c *sshChannelConn) Close() error {
	err := c.Conn.Close()
	_ = c.client.Close()
	return err
}
