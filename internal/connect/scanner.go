package connect

import (
	"bytes"
	"strconv"
)

type field int

const (
	fieldLiteral field = iota
	fieldAddress
	fieldHostAddress
	fieldHostPort
	fieldAuthMethod
	fieldAuthValue
)

// stage consumes one token ending at delim and either validates it against
// literal or captures it into field.
type stage struct {
	name  string
	delim byte
	// line stages end at LF and require the token to end with CR, which is
	// dropped.
	line    bool
	literal string
	field   field
	// optional stages are skipped, along with every later stage, when only
	// the terminator remains.
	optional bool
}

var stages = [...]stage{
	{name: "method", delim: ' ', literal: "CONNECT"},
	{name: "target address", delim: ' ', field: fieldAddress},
	{name: "version", delim: '\n', line: true, literal: "HTTP/1.1"},
	{name: "host label", delim: ' ', literal: "Host:"},
	{name: "host address", delim: ':', field: fieldHostAddress},
	{name: "host port", delim: '\n', line: true, field: fieldHostPort},
	{name: "auth label", delim: ' ', literal: "Proxy-Authorization:", optional: true},
	{name: "auth method", delim: ' ', field: fieldAuthMethod},
	{name: "auth value", delim: '\n', line: true, field: fieldAuthValue},
}

var terminator = []byte("\r\n")

// Parse parses a complete CONNECT request held in buf. Every error it returns
// wraps ErrMalformed and is a *ParseError.
func Parse(buf []byte) (Command, error) {
	var b builder
	rest := buf
	for _, st := range stages {
		if st.optional && bytes.Equal(rest, terminator) {
			return b.command(), nil
		}

		tok, next, err := st.cut(rest)
		if err != nil {
			return Command{}, err
		}
		if b, err = st.apply(b, tok); err != nil {
			return Command{}, err
		}
		rest = next
	}

	if !bytes.Equal(rest, terminator) {
		if len(rest) < len(terminator) && bytes.HasPrefix(terminator, rest) {
			return Command{}, incomplete("terminator", "missing CR LF")
		}
		return Command{}, malformed("terminator", "expected CR LF, got %q", rest)
	}
	return b.command(), nil
}

// cut scans buf for the stage delimiter and splits around it. A line feed
// seen before a non-line delimiter means the token ran off the end of its
// line.
func (st stage) cut(buf []byte) (tok, rest []byte, err error) {
	for i, c := range buf {
		if c == st.delim {
			tok, rest = buf[:i], buf[i+1:]
			if st.line {
				if len(tok) == 0 || tok[len(tok)-1] != '\r' {
					return nil, nil, malformed(st.name, "line not terminated by CR LF")
				}
				tok = tok[:len(tok)-1]
			}
			return tok, rest, nil
		}
		if c == '\n' {
			return nil, nil, malformed(st.name, "unexpected end of line before %s", delimName(st.delim))
		}
	}
	return nil, nil, incomplete(st.name, "missing %s", delimName(st.delim))
}

func (st stage) apply(b builder, tok []byte) (builder, error) {
	if st.field == fieldLiteral {
		if !bytes.EqualFold(tok, []byte(st.literal)) {
			return b, malformed(st.name, "expected %s, got %q", st.literal, tok)
		}
		return b, nil
	}

	if len(tok) == 0 {
		return b, malformed(st.name, "empty %s", st.name)
	}

	switch st.field {
	case fieldAddress:
		b.address = string(tok)
	case fieldHostAddress:
		b.hostAddress = string(tok)
	case fieldHostPort:
		port, err := strconv.ParseUint(string(tok), 10, 16)
		if err != nil || port == 0 {
			return b, malformed(st.name, "invalid port %q", tok)
		}
		b.hostPort = uint16(port)
	case fieldAuthMethod:
		b.authMethod = string(tok)
	case fieldAuthValue:
		b.authValue = string(tok)
		b.hasAuth = true
	}
	return b, nil
}

func delimName(d byte) string {
	switch d {
	case ' ':
		return "space"
	case '\n':
		return "line feed"
	default:
		return strconv.QuoteRune(rune(d))
	}
}
