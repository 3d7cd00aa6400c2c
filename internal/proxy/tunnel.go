package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

const tunnelChunkSize = 32 * 1024

var chunkPool = newBufferPool(tunnelChunkSize)

// aLongTimeAgo is a deadline that has always already passed.
var aLongTimeAgo = time.Unix(1, 0)

// TunnelResult counts the bytes relayed in each direction.
type TunnelResult struct {
	ClientToUpstream int64
	UpstreamToClient int64
}

// Tunnel relays bytes between client and upstream until one direction
// stops, then stops the other and returns. End of stream and cancellation
// are not errors; any other I/O error is returned together with the counts
// relayed so far. Tunnel does not close either connection.
func Tunnel(ctx context.Context, client, upstream net.Conn) (TunnelResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		expire(client)
		expire(upstream)
	})
	defer stop()

	var (
		res TunnelResult
		g   errgroup.Group
	)
	g.Go(func() error {
		defer cancel()
		var err error
		res.ClientToUpstream, err = relay(ctx, upstream, client)
		if err != nil {
			return fmt.Errorf("client to upstream: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		var err error
		res.UpstreamToClient, err = relay(ctx, client, upstream)
		if err != nil {
			return fmt.Errorf("upstream to client: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return res, err
}

// relay copies src to dst one chunk at a time, each write finishing before
// the next read.
func relay(ctx context.Context, dst, src net.Conn) (int64, error) {
	buf := chunkPool.Get()
	defer chunkPool.Put(buf)

	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, unlessCancelled(ctx, fmt.Errorf("write: %w", werr))
			}
			if nw != nr {
				return written, unlessCancelled(ctx, fmt.Errorf("write: %w", io.ErrShortWrite))
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, unlessCancelled(ctx, fmt.Errorf("read: %w", rerr))
		}
	}
}

// unlessCancelled drops errors caused by the tunnel tearing itself down.
func unlessCancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// expire unblocks pending I/O on c. Conns without deadline support are
// closed instead.
func expire(c net.Conn) {
	if err := c.SetDeadline(aLongTimeAgo); err != nil {
		_ = c.Close()
	}
}
