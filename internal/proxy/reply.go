package proxy

import (
	"fmt"
	"io"
	"strconv"
)

const successReply = "HTTP/1.1 200 Ok\r\n\r\n"

// WriteSuccess tells the client its tunnel is open.
func WriteSuccess(w io.Writer) error {
	if _, err := io.WriteString(w, successReply); err != nil {
		return fmt.Errorf("write success reply: %w", err)
	}
	return nil
}

// WriteBadRequest refuses the request with message as the response body.
// The whole reply goes out in one Write.
func WriteBadRequest(w io.Writer, message string) error {
	reply := make([]byte, 0, 64+len(message))
	reply = append(reply, "HTTP/1.1 400 BadRequest\r\nContent-Length: "...)
	reply = strconv.AppendInt(reply, int64(len(message)), 10)
	reply = append(reply, "\r\n\r\n"...)
	reply = append(reply, message...)

	if _, err := w.Write(reply); err != nil {
		return fmt.Errorf("write bad request reply: %w", err)
	}
	return nil
}
