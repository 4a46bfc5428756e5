package bot

import (
	"context"
	"sort"
	"strings"

	"ircbot/internal/session"
)

// Help describes one command for !help.
type Help struct {
	Command string
	Level   Level
	Args    string
	Text    string
}

func (h Help) String() string {
	usage := h.Command
	if h.Args != "" {
		usage += " " + h.Args
	}
	return usage + ": " + h.Text
}

// AddHelp registers help entries, replacing entries for the same
// command.
func (b *Bot) AddHelp(entries ...Help) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range entries {
		b.help[strings.ToLower(h.Command)] = h
	}
}

// HelpFor returns the entries a user at level may use, sorted by
// command.
func (b *Bot) HelpFor(level Level) []Help {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Help
	for _, h := range b.help {
		if h.Level <= level {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

// HelpPlugin answers !help with the commands the asker may use.
type HelpPlugin struct{}

func (*HelpPlugin) Name() string { return "help" }

func (*HelpPlugin) Load(b *Bot) error {
	b.Command(func(_ context.Context, msg *session.ChannelMessage, _ string, _ []string) error {
		entries := b.HelpFor(b.Level(msg.Sender))
		if len(entries) == 0 {
			return b.Tell(msg.Sender.Nick, "No commands available")
		}
		for _, h := range entries {
			if err := b.Tell(msg.Sender.Nick, h.String()); err != nil {
				return err
			}
		}
		return nil
	}, "!help")
	b.AddHelp(Help{Command: "!help", Text: "Lists the commands you may use"})
	return nil
}
