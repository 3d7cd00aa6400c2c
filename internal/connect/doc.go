// Package connect parses the byte-exact HTTP CONNECT request accepted by
// tinyconnect.
//
// The request grammar is fixed-order and linear:
//
//	CONNECT <address> HTTP/1.1\r\n
//	Host: <hostAddress>:<hostPort>\r\n
//	[Proxy-Authorization: <method> <value>\r\n]
//	\r\n
//
// Parse walks the buffer once, stage by stage, and never waits for more
// input: the whole request must be present in the buffer it is given.
package connect
