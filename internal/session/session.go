// Package session holds the state of one IRC session: the server it is
// bound to, the identity we present, and the channels we have joined.
//
// A State is created when a connection attempt begins and discarded on
// disconnect.  It is not safe for concurrent use on its own; the engine
// serializes every access behind its command mutex.
package session

import (
	"sort"

	"ircbot/util"
)

// Server describes the IRC server a session connects to.  It is never
// modified once a session has started.
type Server struct {
	Host     string
	Port     int
	Secure   bool
	Password string
}

// Addr returns "host:port", using the conventional IRC port when Port
// is unset.
func (s Server) Addr() string {
	port := s.Port
	if port == 0 {
		port = util.DefaultPort(s.Secure)
	}
	return util.FormatAddr(s.Host, port)
}

// User is an IRC identity.  The session's own User carries the nick we
// currently go by; users parsed from the wire are transient copies.
// Host is only known for users parsed from a message prefix.  OldNick
// is only set on NickChanged events.
type User struct {
	Nick    string
	Login   string
	Host    string
	OldNick string
}

// Mask returns "nick!login@host".
func (u User) Mask() string {
	return u.Nick + "!" + u.Login + "@" + u.Host
}

// Channel is a channel we reference by name.  No roster is kept.
type Channel struct {
	Name string
}

// ChannelMessage is a PRIVMSG addressed to a channel.
type ChannelMessage struct {
	Sender  User
	Channel Channel
	Text    string
}

// PrivateMessage is a PRIVMSG addressed to a user.
type PrivateMessage struct {
	Sender   User
	Receiver User
	Text     string
}

// State is the mutable part of a session.
type State struct {
	server   Server
	user     User
	channels map[string]Channel
}

// New returns a State bound to server, presenting as user, with no
// channels joined.
func New(server Server, user User) *State {
	return &State{
		server:   server,
		user:     user,
		channels: make(map[string]Channel),
	}
}

// Server returns the server this session is bound to.
func (s *State) Server() Server { return s.server }

// User returns a copy of our current identity.
func (s *State) User() User { return s.user }

// SetNick replaces our current nick.  Callers update it before the
// server confirms the change.
func (s *State) SetNick(nick string) { s.user.Nick = nick }

// Register adds ch to the joined set.  It reports false and leaves the
// registry untouched when a channel with the same name is present.
func (s *State) Register(ch Channel) bool {
	if _, ok := s.channels[ch.Name]; ok {
		return false
	}
	s.channels[ch.Name] = ch
	return true
}

// Unregister removes the channel called name, reporting whether it was
// present.
func (s *State) Unregister(name string) bool {
	if _, ok := s.channels[name]; !ok {
		return false
	}
	delete(s.channels, name)
	return true
}

// Lookup returns the joined channel called name.
func (s *State) Lookup(name string) (Channel, bool) {
	ch, ok := s.channels[name]
	return ch, ok
}

// Channels returns the joined channels sorted by name.
func (s *State) Channels() []Channel {
	out := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of joined channels.
func (s *State) Len() int { return len(s.channels) }
