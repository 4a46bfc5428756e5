package bot

import (
	"strings"

	"github.com/ergochat/irc-go/ircfmt"

	"ircbot/internal/irc"
	"ircbot/util"
)

// eventLog writes a human-readable line for every event.  Message text
// has IRC formatting codes removed.
type eventLog struct {
	irc.NopHandler
	logger *util.Logger
}

func (l *eventLog) HandleConnected(ev *irc.Connected) error {
	l.logger.Info("connected to %s as %s:%s", ev.Server.Addr(), ev.User.Nick, ev.User.Login)
	return nil
}

func (l *eventLog) HandleDisconnected(ev *irc.Disconnected) error {
	if ev.Err != nil {
		l.logger.Info("disconnected from %s: %v", ev.Server.Addr(), ev.Err)
		return nil
	}
	l.logger.Info("disconnected from %s", ev.Server.Addr())
	return nil
}

func (l *eventLog) HandlePing(*irc.Ping) error {
	l.logger.Debug("ping")
	return nil
}

func (l *eventLog) HandleJoin(ev *irc.Joined) error {
	l.logger.Info("%s joined %s", ev.User.Nick, ev.Channel.Name)
	return nil
}

func (l *eventLog) HandlePart(ev *irc.Parted) error {
	l.logger.Info("%s parted from %s", ev.User.Nick, ev.Channel.Name)
	return nil
}

func (l *eventLog) HandleKick(ev *irc.Kicked) error {
	l.logger.Info("%s has been kicked from %s by %s", ev.User.Nick, ev.Channel.Name, ev.By)
	return nil
}

func (l *eventLog) HandleMode(ev *irc.ModeChanged) error {
	mode := strings.TrimSpace(ev.Mode + " " + strings.Join(ev.Args, " "))
	l.logger.Info("mode changed to %s in %s", mode, ev.Channel.Name)
	return nil
}

func (l *eventLog) HandleChannelMessage(ev *irc.ChannelMessageReceived) error {
	m := ev.Message
	l.logger.Info("<%s:%s> %s", m.Channel.Name, m.Sender.Nick, ircfmt.Strip(m.Text))
	return nil
}

func (l *eventLog) HandlePrivateMessage(ev *irc.PrivateMessageReceived) error {
	m := ev.Message
	l.logger.Info("<%s> %s", m.Sender.Nick, ircfmt.Strip(m.Text))
	return nil
}

func (l *eventLog) HandleNick(ev *irc.NickChanged) error {
	l.logger.Info("%s changed nickname to %s", ev.User.OldNick, ev.User.Nick)
	return nil
}
