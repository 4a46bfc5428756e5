package bot

import (
	"fmt"

	"ircbot/internal/irc"
)

// Greeter welcomes users joining a channel the bot is in and rejoins
// channels the bot is kicked from.
type Greeter struct {
	// Format receives the nick and the channel name.
	Format string
}

func (*Greeter) Name() string { return "greeter" }

func (g *Greeter) Load(b *Bot) error {
	format := g.Format
	if format == "" {
		format = "Hello %s welcome to %s"
	}
	events := b.Client().Events()

	b.Observe(events.OnJoin(func(ev *irc.Joined) error {
		if b.IsSelf(ev.User.Nick) {
			return nil
		}
		return b.Say(ev.Channel, fmt.Sprintf(format, ev.User.Nick, ev.Channel.Name))
	}))

	b.Observe(events.OnKick(func(ev *irc.Kicked) error {
		if !b.IsSelf(ev.User.Nick) {
			return nil
		}
		b.Logger().Info("kicked from %s by %s, rejoining", ev.Channel.Name, ev.By)
		return b.Join(ev.Channel.Name)
	}))
	return nil
}
