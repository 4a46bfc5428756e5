package irc

import (
	"sync"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/metrics"
	"ircbot/util"
)

// Observer receives one event.  A returned error is logged and counted;
// it does not stop delivery to later observers.
type Observer func(Event) error

// ID identifies a subscription for Unsubscribe.
type ID uint64

type subscription struct {
	id ID
	fn Observer
}

// Dispatcher is a per-kind registry of observers.  Dispatch runs the
// observers for an event synchronously, in registration order, on the
// calling goroutine.  For the engine that goroutine is the read loop: a
// slow observer delays everything behind it, PONG replies included, and
// can get the session timed out by the server.  Observers with real
// work to do should hand it off (see bot.Bot.Async).
type Dispatcher struct {
	mu        sync.Mutex
	next      ID
	observers map[Kind][]subscription
	logger    *util.Logger
	metrics   *metrics.Collector
}

// NewDispatcher returns an empty dispatcher.  Both arguments may be nil.
func NewDispatcher(logger *util.Logger, m *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Dispatcher{
		observers: make(map[Kind][]subscription),
		logger:    logger,
		metrics:   m,
	}
}

// Subscribe appends fn to the observers of kind.
func (d *Dispatcher) Subscribe(kind Kind, fn Observer) ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.observers[kind] = append(d.observers[kind], subscription{id: d.next, fn: fn})
	return d.next
}

// Unsubscribe removes the subscription id, reporting whether it existed.
func (d *Dispatcher) Unsubscribe(id ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, subs := range d.observers {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			// Copy so that a Dispatch holding the old slice is unaffected.
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			d.observers[kind] = append(rest, subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of observers registered for kind.
func (d *Dispatcher) Len(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers[kind])
}

// Dispatch delivers ev to every observer of its kind and returns one
// *errors.ObserverError per observer that failed or panicked.
// Observers may subscribe or unsubscribe during delivery; changes take
// effect from the next event.
func (d *Dispatcher) Dispatch(ev Event) []error {
	if ev == nil {
		return nil
	}
	d.mu.Lock()
	subs := d.observers[ev.Kind()]
	d.mu.Unlock()

	d.metrics.EventDispatched()

	var errs []error
	for i, s := range subs {
		if err := d.call(i, s.fn, ev); err != nil {
			d.metrics.ObserverFailed()
			d.logger.Error("%v", err)
			errs = append(errs, err)
		}
	}
	return errs
}

func (d *Dispatcher) call(index int, fn Observer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ircerr.ObserverError{Kind: ev.Kind().String(), Index: index, Panic: r}
		}
	}()
	if ferr := fn(ev); ferr != nil {
		return &ircerr.ObserverError{Kind: ev.Kind().String(), Index: index, Err: ferr}
	}
	return nil
}

// ── typed subscription helpers ───────────────────────────────────────

// OnConnected subscribes fn to Connected events.
func (d *Dispatcher) OnConnected(fn func(*Connected) error) ID {
	return d.Subscribe(KindConnected, func(ev Event) error { return fn(ev.(*Connected)) })
}

// OnDisconnected subscribes fn to Disconnected events.
func (d *Dispatcher) OnDisconnected(fn func(*Disconnected) error) ID {
	return d.Subscribe(KindDisconnected, func(ev Event) error { return fn(ev.(*Disconnected)) })
}

// OnPing subscribes fn to Ping events.
func (d *Dispatcher) OnPing(fn func(*Ping) error) ID {
	return d.Subscribe(KindPing, func(ev Event) error { return fn(ev.(*Ping)) })
}

// OnJoin subscribes fn to Joined events.
func (d *Dispatcher) OnJoin(fn func(*Joined) error) ID {
	return d.Subscribe(KindJoined, func(ev Event) error { return fn(ev.(*Joined)) })
}

// OnPart subscribes fn to Parted events.
func (d *Dispatcher) OnPart(fn func(*Parted) error) ID {
	return d.Subscribe(KindParted, func(ev Event) error { return fn(ev.(*Parted)) })
}

// OnKick subscribes fn to Kicked events.
func (d *Dispatcher) OnKick(fn func(*Kicked) error) ID {
	return d.Subscribe(KindKicked, func(ev Event) error { return fn(ev.(*Kicked)) })
}

// OnMode subscribes fn to ModeChanged events.
func (d *Dispatcher) OnMode(fn func(*ModeChanged) error) ID {
	return d.Subscribe(KindModeChanged, func(ev Event) error { return fn(ev.(*ModeChanged)) })
}

// OnChannelMessage subscribes fn to ChannelMessageReceived events.
func (d *Dispatcher) OnChannelMessage(fn func(*ChannelMessageReceived) error) ID {
	return d.Subscribe(KindChannelMessage, func(ev Event) error { return fn(ev.(*ChannelMessageReceived)) })
}

// OnPrivateMessage subscribes fn to PrivateMessageReceived events.
func (d *Dispatcher) OnPrivateMessage(fn func(*PrivateMessageReceived) error) ID {
	return d.Subscribe(KindPrivateMessage, func(ev Event) error { return fn(ev.(*PrivateMessageReceived)) })
}

// OnNick subscribes fn to NickChanged events.
func (d *Dispatcher) OnNick(fn func(*NickChanged) error) ID {
	return d.Subscribe(KindNickChanged, func(ev Event) error { return fn(ev.(*NickChanged)) })
}

// ── handler strategy ─────────────────────────────────────────────────

// Handler receives every event kind through one method each.  Embed
// NopHandler to implement only the methods you need.
type Handler interface {
	HandleConnected(*Connected) error
	HandleDisconnected(*Disconnected) error
	HandlePing(*Ping) error
	HandleJoin(*Joined) error
	HandlePart(*Parted) error
	HandleKick(*Kicked) error
	HandleMode(*ModeChanged) error
	HandleChannelMessage(*ChannelMessageReceived) error
	HandlePrivateMessage(*PrivateMessageReceived) error
	HandleNick(*NickChanged) error
}

// NopHandler implements Handler with methods that do nothing.
type NopHandler struct{}

func (NopHandler) HandleConnected(*Connected) error                   { return nil }
func (NopHandler) HandleDisconnected(*Disconnected) error             { return nil }
func (NopHandler) HandlePing(*Ping) error                             { return nil }
func (NopHandler) HandleJoin(*Joined) error                           { return nil }
func (NopHandler) HandlePart(*Parted) error                           { return nil }
func (NopHandler) HandleKick(*Kicked) error                           { return nil }
func (NopHandler) HandleMode(*ModeChanged) error                      { return nil }
func (NopHandler) HandleChannelMessage(*ChannelMessageReceived) error { return nil }
func (NopHandler) HandlePrivateMessage(*PrivateMessageReceived) error { return nil }
func (NopHandler) HandleNick(*NickChanged) error                      { return nil }

// Attach subscribes every method of h and returns the subscription IDs
// in kind order.
func (d *Dispatcher) Attach(h Handler) []ID {
	return []ID{
		d.OnConnected(h.HandleConnected),
		d.OnDisconnected(h.HandleDisconnected),
		d.OnPing(h.HandlePing),
		d.OnJoin(h.HandleJoin),
		d.OnPart(h.HandlePart),
		d.OnKick(h.HandleKick),
		d.OnMode(h.HandleMode),
		d.OnChannelMessage(h.HandleChannelMessage),
		d.OnPrivateMessage(h.HandlePrivateMessage),
		d.OnNick(h.HandleNick),
	}
}

// Detach removes subscriptions returned by Attach.
func (d *Dispatcher) Detach(ids []ID) {
	for _, id := range ids {
		d.Unsubscribe(id)
	}
}
