package util

import (
	"errors"
	"io"
	"net"
	"strings"
)

// TrimLine strips a trailing "\n" or "\r\n" from a protocol line.
func TrimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// HasControl reports whether s contains a byte that would split or
// terminate a protocol line (CR, LF or NUL).
func HasControl(s string) bool {
	return strings.ContainsAny(s, "\r\n\x00")
}

// IsClosed returns true for errors that mean the peer or a local Close
// ended the stream, as opposed to a genuine I/O failure.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
