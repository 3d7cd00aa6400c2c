package dialer

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/die-net/tinyconnect/internal/testutil"
)

// serveHTTPConnect plays an upstream HTTP proxy for one CONNECT request.
func serveHTTPConnect(ctx context.Context, c net.Conn, wantAuth string) {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	_ = req.Body.Close()

	if req.Method != http.MethodConnect {
		_, _ = io.WriteString(c, "HTTP/1.1 405 Method Not Allowed\r\n\r\n")
		return
	}
	if req.Header.Get("Proxy-Authorization") != wantAuth {
		_, _ = io.WriteString(c, "HTTP/1.1 407 Proxy Authentication Required\r\n\r\n")
		return
	}

	var d net.Dialer
	dst, err := d.DialContext(ctx, "tcp", req.Host)
	if err != nil {
		_, _ = io.WriteString(c, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return
	}
	defer dst.Close()

	_, _ = io.WriteString(c, "HTTP/1.1 200 Connection Established\r\n\r\n")

	go func() {
		_, _ = io.Copy(dst, br)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)
}

func TestHTTPProxyDialer(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pass     string
		wantAuth string
		wantErr  bool
	}{
		{name: "no_auth"},
		{name: "basic_auth", user: "user", pass: "pass", wantAuth: "Basic dXNlcjpwYXNz"},
		{name: "auth_refused", user: "user", pass: "nope", wantAuth: "Basic dXNlcjpwYXNz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
				serveHTTPConnect(ctx, c, tt.wantAuth)
			})

			d, err := NewHTTPProxyDialer(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second},
				&url.URL{Scheme: "http", Host: upLn.Addr().String()}, tt.user, tt.pass)
			if err != nil {
				t.Fatal(err)
			}

			conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if err == nil {
				testutil.AssertEcho(t, conn, conn, []byte("hello"))
				_ = conn.Close()
			}
			waitUp()
		})
	}
}

func TestHTTPProxyDialerKeepsEarlyBytes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		req, err := http.ReadRequest(bufio.NewReader(c))
		if err != nil {
			return
		}
		_ = req.Body.Close()
		// Response and first tunneled bytes in a single write.
		_, _ = io.WriteString(c, "HTTP/1.1 200 Ok\r\n\r\nbanner")
		_, _ = io.Copy(io.Discard, c)
	})

	d, err := NewHTTPProxyDialer(Config{NegotiationTimeout: 2 * time.Second},
		&url.URL{Scheme: "http", Host: upLn.Addr().String()}, "", "")
	if err != nil {
		t.Fatal(err)
	}

	conn, err := d.DialContext(ctx, "tcp", "example.com:22")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, len("banner"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "banner" {
		t.Fatalf("got %q want banner", buf)
	}
	_ = conn.Close()
	waitUp()
}

func TestHTTPProxyDialerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	upLn, waitUp := testutil.StartSingleAcceptServer(t, context.Background(), func(c net.Conn) {
		// Read the CONNECT request, then never answer.
		_, _ = io.Copy(io.Discard, c)
	})

	d, err := NewHTTPProxyDialer(Config{}, &url.URL{Scheme: "http", Host: upLn.Addr().String()}, "", "")
	if err != nil {
		t.Fatal(err)
	}

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	if _, err := d.DialContext(ctx, "tcp", "example.com:443"); err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dial took %s after cancel", elapsed)
	}
	waitUp()
}
