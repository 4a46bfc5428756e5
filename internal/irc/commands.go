package irc

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircutils"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/session"
	"ircbot/util"
)

// MaxTextBytes caps the text of one PRIVMSG so that the relayed line,
// with our source prefix added by the server, stays under 512 bytes.
const MaxTextBytes = 400

// checkParam rejects values that would split or shift a command line.
func checkParam(field, value string) error {
	if value == "" || strings.ContainsRune(value, ' ') || util.HasControl(value) {
		return fmt.Errorf("%s %q: %w", field, value, ircerr.ErrInvalidParam)
	}
	return nil
}

func sanitize(text string) (string, error) {
	clean := ircutils.SanitizeText(text, MaxTextBytes)
	if strings.TrimSpace(clean) == "" {
		return "", fmt.Errorf("empty message text: %w", ircerr.ErrInvalidParam)
	}
	return clean, nil
}

// Join sends JOIN for channel and adds it to the joined set if absent.
// The command is sent on every call, joined or not.
func (e *Engine) Join(channel string) error {
	if err := checkParam("channel", channel); err != nil {
		return err
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.state.Register(session.Channel{Name: channel})
	return e.sendLocked("JOIN " + channel)
}

// Part sends PART for channel and drops it from the joined set.
// The command is sent on every call, joined or not.
func (e *Engine) Part(channel string) error {
	if err := checkParam("channel", channel); err != nil {
		return err
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.state.Unregister(channel)
	return e.sendLocked("PART " + channel)
}

// ChangeNick adopts nick locally and then asks the server for it.  The
// local identity is not rolled back if the server refuses.
func (e *Engine) ChangeNick(nick string) error {
	if err := checkParam("nick", nick); err != nil {
		return err
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.state.SetNick(nick)
	return e.sendLocked("NICK " + nick)
}

// SetMode sends "MODE <channel> <mode> [args...]".  Modes are not
// cached locally.
func (e *Engine) SetMode(channel, mode string, args ...string) error {
	if err := checkParam("channel", channel); err != nil {
		return err
	}
	if err := checkParam("mode", mode); err != nil {
		return err
	}
	parts := []string{"MODE", channel, mode}
	for _, a := range args {
		if err := checkParam("mode argument", a); err != nil {
			return err
		}
		parts = append(parts, a)
	}

	if err := e.begin(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.sendLocked(strings.Join(parts, " "))
}

// SendChannelMessage sends msg.Text to msg.Channel.  On success
// msg.Sender is set to our current identity.
func (e *Engine) SendChannelMessage(msg *session.ChannelMessage) error {
	self, err := e.privmsg(msg.Channel.Name, msg.Text)
	if err != nil {
		return err
	}
	msg.Sender = self
	return nil
}

// SendPrivateMessage sends msg.Text to msg.Receiver.  On success
// msg.Sender is set to our current identity.
func (e *Engine) SendPrivateMessage(msg *session.PrivateMessage) error {
	self, err := e.privmsg(msg.Receiver.Nick, msg.Text)
	if err != nil {
		return err
	}
	msg.Sender = self
	return nil
}

// Privmsg sends text to a channel or nick.
func (e *Engine) Privmsg(target, text string) error {
	_, err := e.privmsg(target, text)
	return err
}

func (e *Engine) privmsg(target, text string) (session.User, error) {
	if err := checkParam("target", target); err != nil {
		return session.User{}, err
	}
	clean, err := sanitize(text)
	if err != nil {
		return session.User{}, err
	}

	if err := e.begin(); err != nil {
		return session.User{}, err
	}
	defer e.mu.Unlock()
	if err := e.sendLocked("PRIVMSG " + target + " :" + clean); err != nil {
		return session.User{}, err
	}
	return e.state.User(), nil
}

// Quit asks the server to end the session.  The server closes the
// stream, which ends the read loop.
func (e *Engine) Quit(reason string) error {
	line := "QUIT"
	if reason != "" {
		line += " :" + ircutils.SanitizeText(reason, MaxTextBytes)
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.sendLocked(line)
}

// handshake registers with the server: PASS when a password is set,
// then NICK and USER.  Registration is not throttled.
func (e *Engine) handshake() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pass := e.server.Password; pass != "" {
		if err := e.sendLocked("PASS " + pass); err != nil {
			return err
		}
	}
	user := e.state.User()
	if err := e.sendLocked("NICK " + user.Nick); err != nil {
		return err
	}
	return e.sendLocked(fmt.Sprintf("USER %s 8 * : %s", user.Login, user.Login))
}
