// Package socks5 wraps the wire types of github.com/txthinking/socks5 into the
// client side of CONNECT used by the socks5:// upstream dialer.
package socks5
