package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/session"
	"ircbot/util"
)

// Subprotocol is the IRCv3 WebSocket subprotocol for UTF-8 text frames.
const Subprotocol = "text.ircv3.net"

const wsWriteTimeout = 10 * time.Second

// WebSocket is a Transport that carries one IRC line per text frame,
// without line terminators.
type WebSocket struct {
	// Path is the request path on the server (default "/").
	Path string
	// Dialer, when set, opens the underlying TCP connection.
	Dialer             Dialer
	InsecureSkipVerify bool
	logger             *util.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	closed  bool
}

// NewWebSocket returns a WebSocket transport requesting path.
func NewWebSocket(path string, dialer Dialer, logger *util.Logger) *WebSocket {
	return &WebSocket{Path: path, Dialer: dialer, logger: logger.Named("websocket")}
}

// URL returns the endpoint for server.
func (w *WebSocket) URL(server session.Server) string {
	u := url.URL{Scheme: "ws", Host: server.Addr(), Path: w.Path}
	if server.Secure {
		u.Scheme = "wss"
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// Connect performs the WebSocket handshake with server.
func (w *WebSocket) Connect(ctx context.Context, server session.Server) error {
	d := *websocket.DefaultDialer
	d.Subprotocols = []string{Subprotocol}
	d.TLSClientConfig = &tls.Config{
		ServerName:         server.Host,
		InsecureSkipVerify: w.InsecureSkipVerify, //nolint:gosec // opt-in
	}
	if w.Dialer != nil {
		d.NetDialContext = w.Dialer.Dial
		d.Proxy = nil
	}

	endpoint := w.URL(server)
	conn, _, err := d.DialContext(ctx, endpoint, nil)
	if err != nil {
		return ircerr.Wrap("connect", endpoint, err)
	}

	w.mu.Lock()
	if w.conn != nil && !w.closed {
		w.conn.Close()
	}
	w.conn = conn
	w.closed = false
	w.mu.Unlock()

	w.logger.Verbose("connected to %s (subprotocol %q)", endpoint, conn.Subprotocol())
	return nil
}

func (w *WebSocket) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

// Send writes line as one text frame.
func (w *WebSocket) Send(line string) error {
	conn := w.current()
	if conn == nil {
		return ircerr.ErrNotConnected
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// Listen returns the next text frame as a line.  Close frames and a
// closed connection end the stream with io.EOF.
func (w *WebSocket) Listen() (string, error) {
	conn := w.current()
	if conn == nil {
		return "", ircerr.ErrNotConnected
	}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if ircerr.As(err, &closeErr) || util.IsClosed(err) {
				return "", io.EOF
			}
			return "", err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		return util.TrimLine(string(data)), nil
	}
}

// Close sends a close frame and closes the connection.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn, closed := w.conn, w.closed
	w.closed = true
	w.mu.Unlock()
	if conn == nil || closed {
		return nil
	}

	w.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return conn.Close()
}

// Shutdown closes the connection and the dialer, if any.
func (w *WebSocket) Shutdown() error {
	err := w.Close()
	if w.Dialer != nil {
		if derr := w.Dialer.Close(); err == nil {
			err = derr
		}
	}
	return err
}
