// Package irc implements a single-session IRC client engine: it parses
// the server's line stream into events, tracks the session's identity
// and joined channels, and sends protocol commands back.
//
// One goroutine, the one calling Run, owns the read loop and runs every
// observer.  Commands may be issued from observers on that goroutine or
// from any other; the engine serializes state changes and writes.
package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/metrics"
	"ircbot/internal/retry"
	"ircbot/internal/session"
	"ircbot/internal/transport"
	"ircbot/util"
)

// Phase is the lifecycle position of the engine.
type Phase int32

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseAuthenticating
	PhaseReadLoop
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseReadLoop:
		return "read-loop"
	default:
		return "unknown"
	}
}

// ErrRunning is returned by Run when a session is already live.
var ErrRunning = errors.New("engine is already running")

// Options configures an Engine.  Server, User.Nick and Transport are
// required.
type Options struct {
	Server    session.Server
	User      session.User
	Transport transport.Transport

	Logger  *util.Logger
	Metrics *metrics.Collector
	// Backoff governs connect and handshake retries (default
	// retry.DefaultBackoff).
	Backoff *retry.Backoff
	// ChannelPrefixes overrides DefaultPrefixes.
	ChannelPrefixes string
	// Limiter throttles outgoing commands; nil means unlimited.
	// Registration, PONG and nick-collision replies are never throttled.
	Limiter *rate.Limiter
	// Rand picks the nick-collision digit; see Parser.Rand.
	Rand func(n int) int
}

// Engine owns one IRC session at a time.
type Engine struct {
	server    session.Server
	user      session.User
	transport transport.Transport
	logger    *util.Logger
	metrics   *metrics.Collector
	backoff   *retry.Backoff
	limiter   *rate.Limiter
	parser    *Parser
	events    *Dispatcher

	phase atomic.Int32

	// mu serializes state access and transport writes.  It is never held
	// while observers run.
	mu        sync.Mutex
	state     *session.State
	ctx       context.Context
	running   bool
	announced bool
}

// New validates opts and returns an idle engine.  An empty User.Login
// defaults to the nick.
func New(opts Options) (*Engine, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("irc: transport is required")
	}
	if opts.Server.Host == "" {
		return nil, fmt.Errorf("server host is required: %w", ircerr.ErrInvalidParam)
	}
	if opts.User.Login == "" {
		opts.User.Login = opts.User.Nick
	}
	if err := checkParam("nick", opts.User.Nick); err != nil {
		return nil, err
	}
	if err := checkParam("login", opts.User.Login); err != nil {
		return nil, err
	}
	if opts.Server.Password != "" {
		if err := checkParam("password", opts.Server.Password); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
		logger.SetOutput(io.Discard)
	}
	backoff := opts.Backoff
	if backoff == nil {
		backoff = retry.DefaultBackoff()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	opts.User.OldNick = ""

	return &Engine{
		server:    opts.Server,
		user:      opts.User,
		transport: opts.Transport,
		logger:    logger.Named("irc"),
		metrics:   opts.Metrics,
		backoff:   backoff,
		limiter:   limiter,
		parser:    &Parser{ChannelPrefixes: opts.ChannelPrefixes, Rand: opts.Rand},
		events:    NewDispatcher(logger.Named("events"), opts.Metrics),
		ctx:       context.Background(),
	}, nil
}

// Events returns the engine's dispatcher.  Subscribe before Run to see
// the Connected event.
func (e *Engine) Events() *Dispatcher { return e.events }

// State returns the current lifecycle phase.
func (e *Engine) State() Phase { return Phase(e.phase.Load()) }

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
	e.logger.Verbose("state %s", p)
}

// Server returns the server the engine connects to.
func (e *Engine) Server() session.Server { return e.server }

// User returns the live identity, or the configured one between
// sessions.
func (e *Engine) User() session.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return e.user
	}
	return e.state.User()
}

// Channels returns the joined channels sorted by name; nil between
// sessions.
func (e *Engine) Channels() []session.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return e.state.Channels()
}

// IsJoined reports whether name is in the joined set.
func (e *Engine) IsJoined(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return false
	}
	_, ok := e.state.Lookup(name)
	return ok
}

// Run connects, registers and reads until the stream ends, the context
// is cancelled or a read fails.  Connect and registration failures are
// retried according to the backoff; once it gives up Run returns an
// error matching errors.ErrRetriesExhausted.  Run returns nil on a
// clean end of stream and ctx.Err() after cancellation.
//
// Disconnected is dispatched exactly once when a session that reached
// the read loop ends, unless Disconnect already announced it.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	e.announced = false
	e.ctx = ctx
	e.state = session.New(e.server, e.user)
	e.mu.Unlock()

	defer e.teardown()

	if err := e.establish(ctx); err != nil {
		e.metrics.RecordError(err.Error())
		return err
	}

	e.setPhase(PhaseReadLoop)
	e.metrics.SessionStarted()

	// Closing the transport is the only way to unblock Listen.
	stop := context.AfterFunc(ctx, func() { _ = e.transport.Close() })
	err := e.readLoop()
	stop()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		e.logger.Warn("session ended: %v", err)
		e.metrics.RecordError(err.Error())
	} else {
		e.logger.Info("server closed the connection")
	}
	_ = e.transport.Close()

	e.mu.Lock()
	emit := !e.announced
	e.announced = true
	e.mu.Unlock()
	if emit {
		e.events.Dispatch(&Disconnected{Server: e.server, Err: err})
	}
	return err
}

// establish runs the connect and handshake phases under the backoff,
// closing the transport before every retry.
func (e *Engine) establish(ctx context.Context) error {
	b := *e.backoff
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		e.logger.Warn("attempt %d failed: %v; retrying in %s", attempt, err, wait.Round(time.Millisecond))
		if e.backoff.OnRetry != nil {
			e.backoff.OnRetry(attempt, err, wait)
		}
	}
	return b.Do(ctx, func(n int) error {
		err := e.attempt(ctx, n)
		if err == nil {
			return nil
		}
		_ = e.transport.Close()
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		if ircerr.IsPermanent(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (e *Engine) attempt(ctx context.Context, n int) error {
	e.metrics.ConnectAttempt(n)
	addr := e.server.Addr()

	e.setPhase(PhaseConnecting)
	e.logger.Info("connecting to %s (attempt %d)", addr, n)
	if err := e.transport.Connect(ctx, e.server); err != nil {
		return wrapTransport("connect", addr, err)
	}

	e.setPhase(PhaseAuthenticating)
	return e.handshake()
}

func (e *Engine) readLoop() error {
	for {
		line, err := e.transport.Listen()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return wrapTransport("listen", e.server.Addr(), err)
		}
		e.handle(line)
	}
}

// handle parses one line, sends any immediate reply and then dispatches
// the event with the mutex released.
func (e *Engine) handle(line string) {
	e.metrics.LineReceived(len(line))
	e.logger.Debug("<< %s", line)

	e.mu.Lock()
	res := e.parser.Parse(line, e.state)
	switch res.Reply.Kind {
	case ReplyPong:
		if err := e.sendLocked(res.Reply.Line()); err != nil {
			e.logger.Warn("pong: %v", err)
		}
	case ReplyNickRetry:
		e.metrics.NickCollision()
		e.logger.Info("nick %s in use, trying %s", e.state.User().Nick, res.Reply.Arg)
		e.state.SetNick(res.Reply.Arg)
		if err := e.sendLocked(res.Reply.Line()); err != nil {
			e.logger.Warn("nick retry: %v", err)
		}
	}
	if c, ok := res.Event.(*Connected); ok {
		e.state.SetNick(c.User.Nick)
	}
	e.mu.Unlock()

	if res.Event != nil {
		e.events.Dispatch(res.Event)
	}
}

// Disconnect announces the end of the session to observers without
// closing the transport; call Close for that.  It does nothing when no
// session is live or the end was already announced.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	if e.state == nil || e.announced {
		e.mu.Unlock()
		return
	}
	e.announced = true
	e.mu.Unlock()

	e.events.Dispatch(&Disconnected{Server: e.server, Requested: true})
}

// Close closes the transport, which ends a running read loop.  It is
// safe to call more than once.
func (e *Engine) Close() error {
	return e.transport.Close()
}

func (e *Engine) teardown() {
	e.mu.Lock()
	e.state = nil
	e.running = false
	e.ctx = context.Background()
	e.mu.Unlock()
	e.metrics.SessionEnded()
	e.setPhase(PhaseDisconnected)
}

// begin waits for the flood limiter and then takes e.mu for a command.
// The wait happens unlocked so a throttled command never holds up the
// read loop.  With no live session it returns ErrNotConnected and the
// mutex is not held.
func (e *Engine) begin() error {
	e.mu.Lock()
	ctx, live := e.ctx, e.state != nil
	e.mu.Unlock()
	if !live {
		return ircerr.ErrNotConnected
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("flood limiter: %w", err)
	}
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return ircerr.ErrNotConnected
	}
	return nil
}

// sendLocked writes one line; e.mu must be held.
func (e *Engine) sendLocked(line string) error {
	if strings.HasPrefix(line, "PASS ") {
		e.logger.Debug(">> PASS ****")
	} else {
		e.logger.Debug(">> %s", line)
	}
	if err := e.transport.Send(line); err != nil {
		return wrapTransport("send", e.server.Addr(), err)
	}
	e.metrics.LineSent(len(line))
	return nil
}

// wrapTransport tags err with op unless it already carries transport or
// SSH context.
func wrapTransport(op, addr string, err error) error {
	var te *ircerr.TransportError
	var se *ircerr.SSHError
	if errors.As(err, &te) || errors.As(err, &se) {
		return err
	}
	return ircerr.Wrap(op, addr, err)
}
