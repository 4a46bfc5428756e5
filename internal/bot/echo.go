package bot

import "ircbot/internal/irc"

// Echo repeats every private message back to its sender.
type Echo struct{}

func (*Echo) Name() string { return "echo" }

func (e *Echo) Load(b *Bot) error {
	b.Observe(b.Client().Events().OnPrivateMessage(func(ev *irc.PrivateMessageReceived) error {
		m := ev.Message
		return b.Tell(m.Sender.Nick, m.Text)
	}))
	return nil
}
