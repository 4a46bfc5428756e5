// Package transport moves IRC lines between the engine and a server.
// A Transport deals in whole lines; a Dialer decides how the underlying
// connection is reached (directly, through a proxy, or through an SSH
// gateway).
package transport

import (
	"context"
	"net"

	"ircbot/internal/session"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Transport is a line-oriented connection to one IRC server.
//
// Connect may be called again after Close to start a new connection.
// Send and Close may be called concurrently with a blocked Listen;
// Close makes that Listen return io.EOF.
type Transport interface {
	// Connect opens the connection to server.
	Connect(ctx context.Context, server session.Server) error
	// Send writes one line.  The terminator is added by the transport.
	Send(line string) error
	// Listen blocks for the next line, without its terminator.  It
	// returns io.EOF once the stream has ended or been closed.
	Listen() (string, error)
	// Close ends the connection.  It is safe to call more than once.
	Close() error
}
