package connect

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Command
	}{
		{
			name: "no auth",
			in:   "CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n",
			want: Command{Address: "example.com:443", HostAddress: "example.com", HostPort: 443},
		},
		{
			name: "basic auth",
			in:   "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic dXNlcjpwYXNz\r\n\r\n",
			want: Command{
				Address:       "a:1",
				HostAddress:   "a",
				HostPort:      1,
				Authorization: &Authorization{Method: "Basic", Value: "dXNlcjpwYXNz"},
			},
		},
		{
			name: "literals are case-insensitive",
			in:   "connect a:80 http/1.1\r\nhost: b:8080\r\nproxy-authorization: Bearer tok\r\n\r\n",
			want: Command{
				Address:       "a:80",
				HostAddress:   "b",
				HostPort:      8080,
				Authorization: &Authorization{Method: "Bearer", Value: "tok"},
			},
		},
		{
			name: "address kept verbatim",
			in:   "CONNECT 10.0.0.1:65535 HTTP/1.1\r\nHost: 10.0.0.1:65535\r\n\r\n",
			want: Command{Address: "10.0.0.1:65535", HostAddress: "10.0.0.1", HostPort: 65535},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse([]byte(tt.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
			if got.DialAddress() != tt.want.DialAddress() {
				t.Fatalf("DialAddress got %q want %q", got.DialAddress(), tt.want.DialAddress())
			}
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	t.Parallel()

	buf := []byte("CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic dXNlcjpwYXNz\r\n\r\n")
	orig := string(buf)

	first, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("got %+v then %+v", first, second)
	}
	if first.Authorization == second.Authorization {
		t.Fatal("commands share authorization")
	}
	if string(buf) != orig {
		t.Fatal("Parse modified its input")
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		in             string
		wantStage      string
		wantIncomplete bool
		wantDetail     string
	}{
		{
			name:       "wrong method",
			in:         "CONNET a:1 HTTP/1.1\r\nHost: a:1\r\n\r\n",
			wantStage:  "method",
			wantDetail: `expected CONNECT, got "CONNET"`,
		},
		{
			name:       "get is not connect",
			in:         "GET / HTTP/1.1\r\nHost: a:1\r\n\r\n",
			wantStage:  "method",
			wantDetail: "expected CONNECT",
		},
		{
			name:           "empty buffer",
			in:             "",
			wantStage:      "method",
			wantIncomplete: true,
		},
		{
			name:           "truncated after method",
			in:             "CONNECT ",
			wantStage:      "target address",
			wantIncomplete: true,
		},
		{
			name:       "wrong version",
			in:         "CONNECT a:1 HTTP/1.0\r\nHost: a:1\r\n\r\n",
			wantStage:  "version",
			wantDetail: `expected HTTP/1.1, got "HTTP/1.0"`,
		},
		{
			name:       "bare line feed after version",
			in:         "CONNECT a:1 HTTP/1.1\nHost: a:1\r\n\r\n",
			wantStage:  "version",
			wantDetail: "CR LF",
		},
		{
			name:       "wrong host label",
			in:         "CONNECT a:1 HTTP/1.1\r\nHots: a:1\r\n\r\n",
			wantStage:  "host label",
			wantDetail: "expected Host:",
		},
		{
			name:       "host without port",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a\r\n\r\n",
			wantStage:  "host address",
			wantDetail: "end of line",
		},
		{
			name:       "empty host address",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: :1\r\n\r\n",
			wantStage:  "host address",
			wantDetail: "empty",
		},
		{
			name:       "empty target address",
			in:         "CONNECT  HTTP/1.1\r\nHost: a:1\r\n\r\n",
			wantStage:  "target address",
			wantDetail: "empty",
		},
		{
			name:       "non-numeric port",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:https\r\n\r\n",
			wantStage:  "host port",
			wantDetail: "invalid port",
		},
		{
			name:       "port out of range",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:65536\r\n\r\n",
			wantStage:  "host port",
			wantDetail: `invalid port "65536"`,
		},
		{
			name:       "port zero",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:0\r\n\r\n",
			wantStage:  "host port",
			wantDetail: "invalid port",
		},
		{
			name:       "signed port",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:+80\r\n\r\n",
			wantStage:  "host port",
			wantDetail: "invalid port",
		},
		{
			name:           "no terminator without auth",
			in:             "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\n",
			wantStage:      "auth label",
			wantIncomplete: true,
		},
		{
			name:       "unknown header",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nUser-Agent: curl\r\n\r\n",
			wantStage:  "auth label",
			wantDetail: "expected Proxy-Authorization:",
		},
		{
			name:           "missing terminator after auth",
			in:             "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic dXNlcjpwYXNz\r\n",
			wantStage:      "terminator",
			wantIncomplete: true,
		},
		{
			name:           "half terminator",
			in:             "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic x\r\n\r",
			wantStage:      "terminator",
			wantIncomplete: true,
		},
		{
			name:       "trailing bytes after terminator",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic x\r\n\r\nhello",
			wantStage:  "terminator",
			wantDetail: "expected CR LF",
		},
		{
			name:       "auth without value",
			in:         "CONNECT a:1 HTTP/1.1\r\nHost: a:1\r\nProxy-Authorization: Basic\r\n\r\n",
			wantStage:  "auth method",
			wantDetail: "end of line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd, err := Parse([]byte(tt.in))
			if err == nil {
				t.Fatalf("expected error, got %+v", cmd)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("error %v does not wrap ErrMalformed", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Stage != tt.wantStage {
				t.Errorf("stage got %q want %q", pe.Stage, tt.wantStage)
			}
			if pe.Incomplete != tt.wantIncomplete {
				t.Errorf("incomplete got %v want %v", pe.Incomplete, tt.wantIncomplete)
			}
			if !strings.Contains(pe.Detail, tt.wantDetail) {
				t.Errorf("detail %q does not contain %q", pe.Detail, tt.wantDetail)
			}
			if !reflect.DeepEqual(cmd, Command{}) {
				t.Errorf("expected zero command on error, got %+v", cmd)
			}
		})
	}
}
