// Package dialer opens the outbound connection for each tunnel.
//
// A Dialer either connects straight to the requested target or chains
// through an upstream HTTP(S), SOCKS5 or SSH proxy chosen by URL. Every call
// opens its own upstream transport; nothing is pooled or reused between
// tunnels.
package dialer
