package irc

import (
	"math/rand"
	"strconv"
	"strings"

	"ircbot/internal/session"
	"ircbot/util"
)

// Numeric replies the parser acts on.  All other numerics are ignored.
const (
	RplWelcome       = 1
	ErrNicknameInUse = 433
)

// DefaultPrefixes is the channel prefix set used when none is configured.
const DefaultPrefixes = "#&"

// View is the read-only slice of session state the parser consults.
// *session.State satisfies it.
type View interface {
	Server() session.Server
	User() session.User
	Lookup(name string) (session.Channel, bool)
}

// ReplyKind names a protocol reply the parser asks the caller to send
// before the event is dispatched.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	// ReplyPong answers a PING; Arg is the remainder of the PING line.
	ReplyPong
	// ReplyNickRetry re-registers after a 433; Arg is the new nick.
	ReplyNickRetry
)

// Reply is an immediate protocol response produced by parsing.
type Reply struct {
	Kind ReplyKind
	Arg  string
}

// Line renders the reply as a wire line, or "" for ReplyNone.
func (r Reply) Line() string {
	switch r.Kind {
	case ReplyPong:
		return "PONG " + r.Arg
	case ReplyNickRetry:
		return "NICK " + r.Arg
	default:
		return ""
	}
}

// Result is the outcome of parsing one line.  Either field may be
// empty; a line that matches nothing yields the zero Result.
type Result struct {
	Event Event
	Reply Reply
}

// Parser classifies raw server lines.  The zero value is ready to use.
type Parser struct {
	// ChannelPrefixes lists the characters that start a channel name
	// (default "#&").
	ChannelPrefixes string
	// Rand returns a value in [0, n).  Defaults to math/rand.Intn.
	Rand func(n int) int
}

// target is token 2 resolved against the channel registry.
type target struct {
	channel   session.Channel
	isChannel bool
	known     bool
}

type verbFunc func(l Line, t target, v View) Event

var verbs = map[string]verbFunc{
	"PRIVMSG": parsePrivmsg,
	"JOIN":    parseJoin,
	"PART":    parsePart,
	"KICK":    parseKick,
	"MODE":    parseMode,
	"NICK":    parseNick,
}

// IsChannel reports whether name starts with a channel prefix.
func (p *Parser) IsChannel(name string) bool {
	prefixes := p.ChannelPrefixes
	if prefixes == "" {
		prefixes = DefaultPrefixes
	}
	return name != "" && strings.IndexByte(prefixes, name[0]) >= 0
}

// Parse classifies one line.  It never panics; lines that do not have
// the shape a branch needs produce no event.
func (p *Parser) Parse(raw string, v View) Result {
	raw = util.TrimLine(raw)

	// PING is matched on the raw text so that a numeric-looking token
	// never diverts it.
	if len(raw) >= 5 && strings.EqualFold(raw[:5], "ping ") {
		rest := raw[5:]
		return Result{
			Event: &Ping{Token: strings.TrimPrefix(rest, ":")},
			Reply: Reply{Kind: ReplyPong, Arg: rest},
		}
	}

	l := Tokenize(raw)
	if l.Len() < 2 {
		return Result{}
	}
	if code, ok := l.Numeric(); ok {
		return p.numeric(code, l, v)
	}
	if l.Len() < 3 {
		return Result{}
	}

	fn, ok := verbs[strings.ToUpper(l.Verb())]
	if !ok {
		return Result{}
	}
	ev := fn(l, p.resolve(l.Param(2), v), v)
	if ev == nil {
		return Result{}
	}
	return Result{Event: ev}
}

func (p *Parser) numeric(code int, l Line, v View) Result {
	switch code {
	case RplWelcome:
		user := v.User()
		if nick := l.Param(2); nick != "" && nick != "*" {
			user.Nick = nick
		}
		return Result{Event: &Connected{Server: v.Server(), User: user}}
	case ErrNicknameInUse:
		nick := v.User().Nick + strconv.Itoa(p.intn(10))
		return Result{Reply: Reply{Kind: ReplyNickRetry, Arg: nick}}
	default:
		return Result{}
	}
}

func (p *Parser) resolve(name string, v View) target {
	if !p.IsChannel(name) {
		return target{channel: session.Channel{Name: name}}
	}
	ch, ok := v.Lookup(name)
	if !ok {
		ch = session.Channel{Name: name}
	}
	return target{channel: ch, isChannel: true, known: ok}
}

func (p *Parser) intn(n int) int {
	if p.Rand != nil {
		return p.Rand(n)
	}
	return rand.Intn(n)
}

// ── verb handlers ────────────────────────────────────────────────────

func sender(l Line) (session.User, bool) {
	nuh, ok := l.Prefix()
	if !ok {
		return session.User{}, false
	}
	return session.User{Nick: nuh.Name, Login: nuh.User, Host: nuh.Host}, true
}

func parsePrivmsg(l Line, t target, v View) Event {
	from, ok := sender(l)
	if !ok || l.Len() < 4 {
		return nil
	}
	text := l.Trailing()
	if t.known {
		return &ChannelMessageReceived{Message: session.ChannelMessage{
			Sender: from, Channel: t.channel, Text: text,
		}}
	}
	return &PrivateMessageReceived{Message: session.PrivateMessage{
		Sender: from, Receiver: v.User(), Text: text,
	}}
}

func parseJoin(l Line, t target, _ View) Event {
	from, ok := sender(l)
	if !ok || !t.isChannel {
		return nil
	}
	return &Joined{User: from, Channel: t.channel, Known: t.known}
}

func parsePart(l Line, t target, _ View) Event {
	from, ok := sender(l)
	if !ok || !t.isChannel {
		return nil
	}
	return &Parted{User: from, Channel: t.channel, Known: t.known}
}

func parseKick(l Line, t target, _ View) Event {
	victim := l.Param(3)
	if !t.isChannel || victim == "" {
		return nil
	}
	by, _ := sender(l)
	return &Kicked{
		User:    session.User{Nick: victim},
		Channel: t.channel,
		Known:   t.known,
		By:      by.Nick,
	}
}

func parseMode(l Line, t target, _ View) Event {
	mode := l.Param(3)
	if !t.isChannel || mode == "" {
		return nil
	}
	var args []string
	for i := 4; i < l.Len(); i++ {
		args = append(args, l.Param(i))
	}
	by, _ := sender(l)
	return &ModeChanged{Channel: t.channel, Known: t.known, Mode: mode, Args: args, By: by.Nick}
}

func parseNick(l Line, _ target, _ View) Event {
	from, ok := sender(l)
	nick := l.Param(2)
	if !ok || nick == "" {
		return nil
	}
	return &NickChanged{User: session.User{Nick: nick, Login: from.Login, Host: from.Host, OldNick: from.Nick}}
}
