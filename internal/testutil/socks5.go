package testutil

import (
	"errors"
	"fmt"
	"net"
	"slices"

	txsocks5 "github.com/txthinking/socks5"
)

// SOCKS5Negotiate performs the server side of SOCKS5 method negotiation. A
// non-empty username requires the client to authenticate with username and
// password.
func SOCKS5Negotiate(conn net.Conn, username, password string) error {
	neg, err := txsocks5.NewNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("socks5 negotiation read: %w", err)
	}

	want := txsocks5.MethodNone
	if username != "" {
		want = txsocks5.MethodUsernamePassword
	}
	if !slices.Contains(neg.Methods, want) {
		// RFC 1928: 0xFF means no acceptable methods.
		_, _ = txsocks5.NewNegotiationReply(0xff).WriteTo(conn)
		return errors.New("socks5: client offered no acceptable method")
	}
	if _, err := txsocks5.NewNegotiationReply(want).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5 negotiation write: %w", err)
	}
	if want == txsocks5.MethodNone {
		return nil
	}

	req, err := txsocks5.NewUserPassNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("socks5 userpass read: %w", err)
	}
	if string(req.Uname) != username || string(req.Passwd) != password {
		_, _ = txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusFailure).WriteTo(conn)
		return errors.New("socks5: authentication failed")
	}
	if _, err := txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusSuccess).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5 userpass write: %w", err)
	}
	return nil
}

// SOCKS5ReadRequest reads the client's command request.
func SOCKS5ReadRequest(conn net.Conn) (*txsocks5.Request, error) {
	req, err := txsocks5.NewRequestFrom(conn)
	if err != nil {
		return nil, fmt.Errorf("socks5 request read: %w", err)
	}
	return req, nil
}

// SOCKS5WriteSuccess reports success with bound as the bound address.
func SOCKS5WriteSuccess(conn net.Conn, bound net.Addr) error {
	atyp, addr, port, err := txsocks5.ParseAddress(bound.String())
	if err != nil {
		return fmt.Errorf("socks5 bound address %q: %w", bound, err)
	}
	if atyp == txsocks5.ATYPDomain {
		addr = addr[1:]
	}
	if _, err := txsocks5.NewReply(txsocks5.RepSuccess, atyp, addr, port).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5 reply write: %w", err)
	}
	return nil
}

// SOCKS5WriteRefused reports that the destination refused the connection.
func SOCKS5WriteRefused(conn net.Conn) error {
	rep := txsocks5.NewReply(txsocks5.RepConnectionRefused, txsocks5.ATYPIPv4, []byte{0, 0, 0, 0}, []byte{0, 0})
	if _, err := rep.WriteTo(conn); err != nil {
		return fmt.Errorf("socks5 reply write: %w", err)
	}
	return nil
}
