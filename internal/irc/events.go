package irc

import "ircbot/internal/session"

// Kind identifies an event type.  Observers are registered per kind.
type Kind int

const (
	KindConnected Kind = iota + 1
	KindDisconnected
	KindPing
	KindJoined
	KindParted
	KindKicked
	KindModeChanged
	KindChannelMessage
	KindPrivateMessage
	KindNickChanged
)

var kindNames = map[Kind]string{
	KindConnected:      "connected",
	KindDisconnected:   "disconnected",
	KindPing:           "ping",
	KindJoined:         "joined",
	KindParted:         "parted",
	KindKicked:         "kicked",
	KindModeChanged:    "mode",
	KindChannelMessage: "channel-message",
	KindPrivateMessage: "private-message",
	KindNickChanged:    "nick",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one parsed occurrence delivered to observers.  Concrete
// events are pointers to the structs below.
type Event interface {
	Kind() Kind
}

// Connected fires on the 001 welcome reply.  User carries the nick the
// server registered us under.
type Connected struct {
	Server session.Server
	User   session.User
}

// Disconnected fires once per session when the read loop ends, or when
// a caller asks for it through Engine.Disconnect.
type Disconnected struct {
	Server session.Server
	// Err is the read failure or context error that ended the session;
	// nil on a clean end of stream.
	Err error
	// Requested is true when the event came from Engine.Disconnect.
	Requested bool
}

// Ping fires on every PING line after the PONG has been written.
type Ping struct {
	Token string
}

// Joined fires when someone, possibly us, joins a channel.  Known
// reports whether the channel is in our joined-channel registry.
type Joined struct {
	User    session.User
	Channel session.Channel
	Known   bool
}

// Parted fires when someone leaves a channel.
type Parted struct {
	User    session.User
	Channel session.Channel
	Known   bool
}

// Kicked fires when User is removed from Channel by By.
type Kicked struct {
	User    session.User
	Channel session.Channel
	Known   bool
	By      string
}

// ModeChanged carries the first mode token of a channel MODE line.
// Args holds any further parameters.
type ModeChanged struct {
	Channel session.Channel
	Known   bool
	Mode    string
	Args    []string
	By      string
}

// ChannelMessageReceived is a PRIVMSG to a channel we have joined.
type ChannelMessageReceived struct {
	Message session.ChannelMessage
}

// PrivateMessageReceived is any other PRIVMSG.  Receiver is always our
// own identity.
type PrivateMessageReceived struct {
	Message session.PrivateMessage
}

// NickChanged carries the new nick in User.Nick and the previous one in
// User.OldNick.
type NickChanged struct {
	User session.User
}

func (*Connected) Kind() Kind              { return KindConnected }
func (*Disconnected) Kind() Kind           { return KindDisconnected }
func (*Ping) Kind() Kind                   { return KindPing }
func (*Joined) Kind() Kind                 { return KindJoined }
func (*Parted) Kind() Kind                 { return KindParted }
func (*Kicked) Kind() Kind                 { return KindKicked }
func (*ModeChanged) Kind() Kind            { return KindModeChanged }
func (*ChannelMessageReceived) Kind() Kind { return KindChannelMessage }
func (*PrivateMessageReceived) Kind() Kind { return KindPrivateMessage }
func (*NickChanged) Kind() Kind            { return KindNickChanged }
