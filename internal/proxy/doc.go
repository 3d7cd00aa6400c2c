// Package proxy serves the tunnel side of tinyconnect.
//
// Each accepted connection carries one CONNECT request. The server parses
// it, asks the configured Authorizer, dials the target through the
// configured Dialer, answers 200 and then relays bytes in both directions
// until either side stops. Requests that fail to parse or are rejected get
// a 400 reply; every other failure closes the connection without one.
//
// Progress is reported as discrete Events to an Observer, which keeps the
// package free of any particular logging sink.
package proxy
