package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/session"
	"ircbot/util"
)

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

// serverFor returns a session.Server pointing at ln.
func serverFor(t *testing.T, addr net.Addr, secure bool) session.Server {
	t.Helper()
	tcp := addr.(*net.TCPAddr)
	return session.Server{Host: tcp.IP.String(), Port: tcp.Port, Secure: secure}
}

func TestTCPDialer_Connect(t *testing.T) {
	t.Setenv("ALL_PROXY", "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello\n")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || got != "hello\n" {
		t.Errorf("read = %q, %v", got, err)
	}
}

func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second, Direct: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Dial(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// fakeIRCServer accepts one connection, writes greeting, then copies
// every raw line it receives, terminator included, onto the returned
// channel.
func fakeIRCServer(t *testing.T, ln net.Listener, greeting string) <-chan string {
	t.Helper()
	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.WriteString(conn, greeting) //nolint:errcheck
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	return lines
}

func TestStream_SendAndListen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	received := fakeIRCServer(t, ln, ":irc.test 001 bot :Welcome\r\nPING :abc\n")

	s := NewStream(&TCPDialer{Direct: true}, quietLogger())
	if err := s.Connect(context.Background(), serverFor(t, ln.Addr(), false)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	for _, want := range []string{":irc.test 001 bot :Welcome", "PING :abc"} {
		got, err := s.Listen()
		if err != nil || got != want {
			t.Fatalf("Listen() = %q, %v; want %q", got, err, want)
		}
	}

	if err := s.Send("PONG :abc"); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-received:
		if got != "PONG :abc\r\n" {
			t.Errorf("server got %q, want CRLF-terminated PONG", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the line")
	}
}

func TestStream_CloseUnblocksListen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	fakeIRCServer(t, ln, "")

	s := NewStream(&TCPDialer{Direct: true}, quietLogger())
	if err := s.Connect(context.Background(), serverFor(t, ln.Addr(), false)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Listen()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("Listen after Close = %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen still blocked after Close")
	}
}

func TestStream_PartialLastLine(t *testing.T) {
	client, server := net.Pipe()
	s := &Stream{logger: quietLogger()}
	s.conn = client
	s.reader = bufio.NewReader(client)

	go func() {
		io.WriteString(server, "ERROR :Closing link") //nolint:errcheck
		server.Close()
	}()

	got, err := s.Listen()
	if err != nil || got != "ERROR :Closing link" {
		t.Fatalf("Listen() = %q, %v", got, err)
	}
	if _, err := s.Listen(); !errors.Is(err, io.EOF) {
		t.Errorf("second Listen() = %v, want io.EOF", err)
	}
}

func TestStream_LineTooLong(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	s := &Stream{logger: quietLogger()}
	s.conn = client
	s.reader = bufio.NewReaderSize(client, maxLineBytes)

	go func() {
		io.WriteString(server, ":irc.test PRIVMSG bot :"+strings.Repeat("x", maxLineBytes)+"\r\n") //nolint:errcheck
	}()

	_, err := s.Listen()
	if !errors.Is(err, bufio.ErrBufferFull) {
		t.Fatalf("Listen() = %v, want ErrBufferFull", err)
	}
	var te *ircerr.TransportError
	if !errors.As(err, &te) || te.Op != "read" {
		t.Errorf("Listen() = %v, want a read TransportError", err)
	}
	client.Close()
}

func TestStream_NotConnected(t *testing.T) {
	s := NewStream(&TCPDialer{}, quietLogger())
	if err := s.Send("NICK bot"); !errors.Is(err, ircerr.ErrNotConnected) {
		t.Errorf("Send() = %v, want ErrNotConnected", err)
	}
	if _, err := s.Listen(); !errors.Is(err, ircerr.ErrNotConnected) {
		t.Errorf("Listen() = %v, want ErrNotConnected", err)
	}
}

func TestStream_TLS(t *testing.T) {
	// Borrow httptest's self-signed certificate for a raw TLS listener.
	hs := httptest.NewTLSServer(http.NotFoundHandler())
	defer hs.Close()

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: hs.TLS.Certificates})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	fakeIRCServer(t, ln, ":irc.test NOTICE * :secure\r\n")

	srv := serverFor(t, ln.Addr(), true)

	strict := NewStream(&TCPDialer{Direct: true}, quietLogger())
	if err := strict.Connect(context.Background(), srv); err == nil {
		strict.Close()
		t.Fatal("self-signed certificate should be rejected by default")
	}

	// The failed handshake consumed the listener's single accept.
	ln2, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: hs.TLS.Certificates})
	if err != nil {
		t.Fatal(err)
	}
	defer ln2.Close()
	fakeIRCServer(t, ln2, ":irc.test NOTICE * :secure\r\n")

	s := NewStream(&TCPDialer{Direct: true}, quietLogger())
	s.InsecureSkipVerify = true
	if err := s.Connect(context.Background(), serverFor(t, ln2.Addr(), true)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	got, err := s.Listen()
	if err != nil || got != ":irc.test NOTICE * :secure" {
		t.Errorf("Listen() = %q, %v", got, err)
	}
}

func TestWebSocket_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webirc" {
			http.NotFound(w, r)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte(":irc.test 001 bot :Welcome")) //nolint:errcheck
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		c.WriteMessage(websocket.TextMessage, []byte("echo "+string(data))) //nolint:errcheck
		c.WriteMessage(websocket.CloseMessage,                              //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer hs.Close()

	ws := NewWebSocket("/webirc", &TCPDialer{Direct: true}, quietLogger())
	srv := serverFor(t, hs.Listener.Addr(), false)
	if got := ws.URL(srv); !strings.HasPrefix(got, "ws://127.0.0.1:") || !strings.HasSuffix(got, "/webirc") {
		t.Errorf("URL() = %q", got)
	}
	if err := ws.Connect(context.Background(), srv); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ws.Close()

	if got, err := ws.Listen(); err != nil || got != ":irc.test 001 bot :Welcome" {
		t.Fatalf("Listen() = %q, %v", got, err)
	}
	if err := ws.Send("JOIN #go"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got, err := ws.Listen(); err != nil || got != "echo JOIN #go" {
		t.Fatalf("Listen() = %q, %v", got, err)
	}
	if _, err := ws.Listen(); !errors.Is(err, io.EOF) {
		t.Errorf("close frame should map to io.EOF, got %v", err)
	}
}

func TestWebSocket_SecureURL(t *testing.T) {
	ws := NewWebSocket("", nil, quietLogger())
	got := ws.URL(session.Server{Host: "irc.example.net", Port: 443, Secure: true})
	if got != "wss://irc.example.net:443/" {
		t.Errorf("URL() = %q", got)
	}
}
