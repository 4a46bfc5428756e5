// Package bot turns the IRC engine into a bot: it routes channel
// commands to handlers, hosts plugins, and logs what happens on the
// connection.  Each Plugin encapsulates a single behaviour and talks to
// the engine only through the Client interface, which keeps plugins
// testable without a network.
//
// Everything a plugin sends goes through the bot's outbox, drained on a
// goroutine of its own.  Observers run on the engine's read loop, and a
// send can wait on the flood limiter; queueing keeps PING replies from
// waiting behind it.
package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/irc"
	"ircbot/internal/session"
	"ircbot/internal/store"
	"ircbot/util"
)

// Client is the part of the engine a bot drives.  *irc.Engine and
// *core.Client satisfy it.
type Client interface {
	Events() *irc.Dispatcher
	User() session.User
	IsJoined(name string) bool
	Join(channel string) error
	Part(channel string) error
	SetMode(channel, mode string, args ...string) error
	SendChannelMessage(msg *session.ChannelMessage) error
	SendPrivateMessage(msg *session.PrivateMessage) error
}

// Plugin adds one behaviour to a Bot.  Load registers the plugin's
// commands and observers.
type Plugin interface {
	Name() string
	Load(b *Bot) error
}

// CommandFunc handles a channel command.  cmd is the command word as
// typed and args the remaining words.
//
// Commands run on the read-loop goroutine.  Replies sent through the
// Bot are queued; hand anything else slow to Bot.Async.
type CommandFunc func(ctx context.Context, msg *session.ChannelMessage, cmd string, args []string) error

// MessageFunc handles a channel message that is not a command.
type MessageFunc func(ctx context.Context, msg *session.ChannelMessage) error

// Options configures a Bot.
type Options struct {
	Logger *util.Logger
	// Store persists channels and auto-responses; nil disables the
	// plugins that need it.
	Store *store.Store
	// Channels are joined on every connect.
	Channels []string
	// Admins and Operators are user masks (nick, nick!login@host, with
	// * and ? wildcards) granted that access level.
	Admins    []string
	Operators []string
	// OutboxSize bounds the queue of unsent replies.
	OutboxSize int
}

// DefaultOutboxSize is used when Options.OutboxSize is zero.
const DefaultOutboxSize = 256

var (
	errOutboxFull = ircerr.New("outbox full, reply dropped")
	errBotClosed  = ircerr.New("bot closed")
)

// Bot hosts plugins on top of a Client.
type Bot struct {
	client   Client
	logger   *util.Logger
	store    *store.Store
	channels []string

	grants []grant

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	outbox chan func() error
	sender sync.WaitGroup

	mu       sync.RWMutex
	commands map[string]CommandFunc
	help     map[string]Help
	messages []MessageFunc
	plugins  []Plugin
	ids      []irc.ID
}

// New attaches a bot to client.  The bot starts observing events
// immediately; call Close to detach it.
func New(client Client, opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
		logger.SetOutput(io.Discard)
	}
	size := opts.OutboxSize
	if size <= 0 {
		size = DefaultOutboxSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		client:   client,
		logger:   logger.Named("bot"),
		store:    opts.Store,
		channels: append([]string(nil), opts.Channels...),
		ctx:      ctx,
		cancel:   cancel,
		outbox:   make(chan func() error, size),
		commands: make(map[string]CommandFunc),
		help:     make(map[string]Help),
	}
	b.grants = append(b.grants, compileGrants(b.logger, LevelAdmin, opts.Admins)...)
	b.grants = append(b.grants, compileGrants(b.logger, LevelOperator, opts.Operators)...)

	b.sender.Add(1)
	go b.drain()

	events := client.Events()
	b.ids = append(b.ids, events.Attach(&eventLog{logger: b.logger})...)
	b.ids = append(b.ids, events.OnChannelMessage(b.route))
	return b
}

// Client returns the engine the bot drives.
func (b *Bot) Client() Client { return b.client }

// Store returns the persistent store, or nil.
func (b *Bot) Store() *store.Store { return b.store }

// Logger returns the bot's logger.
func (b *Bot) Logger() *util.Logger { return b.logger }

// Channels returns the channels configured for joining on connect.
func (b *Bot) Channels() []string { return append([]string(nil), b.channels...) }

// ── Plugins ──────────────────────────────────────────────────────────

// Load loads plugins in order and stops at the first failure.
func (b *Bot) Load(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Load(b); err != nil {
			return fmt.Errorf("loading plugin %s: %w", p.Name(), err)
		}
		b.mu.Lock()
		b.plugins = append(b.plugins, p)
		b.mu.Unlock()
		b.logger.Verbose("loaded plugin %s", p.Name())
	}
	return nil
}

// Plugins returns the names of the loaded plugins.
func (b *Bot) Plugins() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.plugins))
	for i, p := range b.plugins {
		names[i] = p.Name()
	}
	return names
}

// Command registers fn under each of names.  A name registered twice
// keeps the later handler.
func (b *Bot) Command(fn CommandFunc, names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		b.commands[strings.ToLower(n)] = fn
	}
}

// OnMessage registers fn for channel messages that are not commands.
func (b *Bot) OnMessage(fn MessageFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, fn)
}

// Observe keeps track of a subscription made directly on the engine's
// dispatcher so Close can remove it.
func (b *Bot) Observe(id irc.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = append(b.ids, id)
}

// route splits a channel message into command and arguments and calls
// the matching handler, or the message handlers when none matches.
func (b *Bot) route(ev *irc.ChannelMessageReceived) error {
	msg := ev.Message
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return nil
	}

	b.mu.RLock()
	fn, ok := b.commands[strings.ToLower(fields[0])]
	messages := append([]MessageFunc(nil), b.messages...)
	b.mu.RUnlock()

	if ok {
		b.logger.Verbose("%s ran %s in %s", msg.Sender.Nick, fields[0], msg.Channel.Name)
		return fn(b.ctx, &msg, fields[0], fields[1:])
	}

	var errs []error
	for _, fn := range messages {
		if err := fn(b.ctx, &msg); err != nil {
			errs = append(errs, err)
		}
	}
	return ircerr.Join(errs...)
}

// ── Replies ──────────────────────────────────────────────────────────

// Say queues text for channel.
func (b *Bot) Say(channel session.Channel, text string) error {
	return b.enqueue(func() error {
		return b.client.SendChannelMessage(&session.ChannelMessage{Channel: channel, Text: text})
	})
}

// Tell queues text for nick.
func (b *Bot) Tell(nick, text string) error {
	return b.enqueue(func() error {
		return b.client.SendPrivateMessage(&session.PrivateMessage{
			Receiver: session.User{Nick: nick},
			Text:     text,
		})
	})
}

// Join queues a JOIN for channel.
func (b *Bot) Join(channel string) error {
	return b.enqueue(func() error { return b.client.Join(channel) })
}

// Part queues a PART for channel.
func (b *Bot) Part(channel string) error {
	return b.enqueue(func() error { return b.client.Part(channel) })
}

// Mode queues a MODE change on channel.
func (b *Bot) Mode(channel, mode string, args ...string) error {
	return b.enqueue(func() error { return b.client.SetMode(channel, mode, args...) })
}

// enqueue never blocks: a full outbox drops the command.
func (b *Bot) enqueue(fn func() error) error {
	if b.ctx.Err() != nil {
		return errBotClosed
	}
	select {
	case b.outbox <- fn:
		return nil
	default:
		b.logger.Warn("%v", errOutboxFull)
		return errOutboxFull
	}
}

// drain sends queued commands in order until Close.
func (b *Bot) drain() {
	defer b.sender.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case fn := <-b.outbox:
			if err := fn(); err != nil {
				b.logger.Warn("send: %v", err)
			}
		}
	}
}

// IsSelf reports whether nick is the bot's current nick.
func (b *Bot) IsSelf(nick string) bool {
	return strings.EqualFold(nick, b.client.User().Nick)
}

// ── Background work ──────────────────────────────────────────────────

// Async runs fn on its own goroutine so the read loop keeps going.  The
// context is cancelled by Close; a returned error is logged.
func (b *Bot) Async(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fn(b.ctx); err != nil && b.ctx.Err() == nil {
			b.logger.Warn("%s: %v", name, err)
		}
	}()
}

// Wait blocks until all Async work has finished and everything queued
// so far has been sent.
func (b *Bot) Wait() {
	b.wg.Wait()
	done := make(chan struct{})
	select {
	case b.outbox <- func() error { close(done); return nil }:
	case <-b.ctx.Done():
		return
	}
	select {
	case <-done:
	case <-b.ctx.Done():
	}
}

// Close detaches the bot from the engine, cancels background work and
// waits for it to finish.  Replies still queued are dropped.
func (b *Bot) Close() {
	b.mu.Lock()
	ids := b.ids
	b.ids = nil
	b.mu.Unlock()

	b.client.Events().Detach(ids)
	b.cancel()
	b.wg.Wait()
	b.sender.Wait()
}
