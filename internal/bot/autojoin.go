package bot

import (
	"context"
	"strings"

	"ircbot/internal/irc"
)

// AutoJoin joins the configured channels, plus any remembered in the
// store, every time the server welcomes the bot.  With a store it also
// remembers channels the bot joins and forgets the ones it leaves.
type AutoJoin struct{}

func (*AutoJoin) Name() string { return "autojoin" }

func (a *AutoJoin) Load(b *Bot) error {
	events := b.Client().Events()

	b.Observe(events.OnConnected(func(*irc.Connected) error {
		// The store read stays off the read loop.
		b.Async("autojoin", func(ctx context.Context) error {
			channels, err := a.channels(b)
			if err != nil {
				b.Logger().Warn("autojoin: %v", err)
			}
			for _, ch := range channels {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := b.Join(ch); err != nil {
					return err
				}
			}
			return nil
		})
		return nil
	}))

	if b.Store() == nil {
		return nil
	}

	b.Observe(events.OnJoin(func(ev *irc.Joined) error {
		if !b.IsSelf(ev.User.Nick) {
			return nil
		}
		return b.Store().AddChannel(ev.Channel.Name)
	}))
	b.Observe(events.OnPart(func(ev *irc.Parted) error {
		if !b.IsSelf(ev.User.Nick) {
			return nil
		}
		return b.Store().RemoveChannel(ev.Channel.Name)
	}))
	return nil
}

// channels merges configured and stored channels, configured first,
// without duplicates.
func (a *AutoJoin) channels(b *Bot) ([]string, error) {
	var stored []string
	var err error
	if b.Store() != nil {
		stored, err = b.Store().Channels()
	}

	seen := make(map[string]bool)
	var out []string
	for _, ch := range append(b.Channels(), stored...) {
		key := strings.ToLower(ch)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ch)
	}
	return out, err
}
