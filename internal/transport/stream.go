package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/session"
	"ircbot/util"
)

// maxLineBytes bounds one inbound line, tags and CRLF included.  The
// reader buffer is this size, so a longer line fails Listen.
const maxLineBytes = 8192

// Stream is a Transport over a byte stream from a Dialer, with TLS when
// the server is marked secure.  Lines end in CRLF on the wire.
type Stream struct {
	dialer Dialer
	logger *util.Logger
	// InsecureSkipVerify disables certificate checks for TLS servers.
	InsecureSkipVerify bool

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewStream returns a Stream that reaches servers through dialer.
func NewStream(dialer Dialer, logger *util.Logger) *Stream {
	return &Stream{dialer: dialer, logger: logger.Named("stream")}
}

// Connect dials server and completes the TLS handshake if required.
func (s *Stream) Connect(ctx context.Context, server session.Server) error {
	addr := server.Addr()
	conn, err := s.dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	if server.Secure {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         server.Host,
			InsecureSkipVerify: s.InsecureSkipVerify, //nolint:gosec // opt-in
			NextProtos:         []string{"irc"},
		})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return ircerr.Wrap("tls handshake", addr, err)
		}
		conn = tlsConn
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, maxLineBytes)
	s.mu.Unlock()

	s.logger.Verbose("connected to %s (tls=%v)", addr, server.Secure)
	return nil
}

// Send writes line followed by CRLF.
func (s *Stream) Send(line string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ircerr.ErrNotConnected
	}
	_, err := io.WriteString(conn, line+"\r\n")
	return err
}

// Listen returns the next line.  A final unterminated line is returned
// before io.EOF.  A line longer than maxLineBytes is a read error; the
// connection is out of step after it.
func (s *Stream) Listen() (string, error) {
	s.mu.Lock()
	r, conn := s.reader, s.conn
	s.mu.Unlock()
	if r == nil {
		return "", ircerr.ErrNotConnected
	}

	buf, err := r.ReadSlice('\n')
	line := string(buf)
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", ircerr.Wrap("read", remoteAddr(conn), fmt.Errorf("line exceeds %d bytes: %w", maxLineBytes, err))
		}
		if line != "" && errors.Is(err, io.EOF) {
			return util.TrimLine(line), nil
		}
		if util.IsClosed(err) {
			return "", io.EOF
		}
		return "", err
	}
	return util.TrimLine(line), nil
}

func remoteAddr(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}

// Close closes the current connection.  The dialer stays usable for
// the next Connect; release it with Shutdown.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Shutdown closes the connection and the dialer.
func (s *Stream) Shutdown() error {
	return errors.Join(s.Close(), s.dialer.Close())
}
