package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on network/addr and applies keepAlive to accepted
// connections. reusePort sets SO_REUSEPORT so several processes can share
// the port.
func ListenTCP(ctx context.Context, network, addr string, keepAlive net.KeepAliveConfig, reusePort bool) (net.Listener, error) {
	lc := net.ListenConfig{KeepAliveConfig: keepAlive}
	if reusePort {
		if !ReusePortSupported {
			return nil, fmt.Errorf("listen %s %s: SO_REUSEPORT not supported on this platform", network, addr)
		}
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return ln, nil
}
