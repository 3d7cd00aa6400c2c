// Package ssh holds the SSH client plumbing behind the ssh:// upstream
// dialer: key loading (private key files or the SSH agent), known_hosts
// verification with trust on first use, and the client handshake.
//
// Each upstream dial runs its own handshake; transports are never shared
// between tunneled connections.
package ssh
