package bot

import (
	"context"
	"fmt"

	"ircbot/internal/session"
)

// Operator gives and takes channel privileges and moves the bot
// between channels on request.  Only operators may use it.
//
//	!op [nick]  !deop [nick]  !voice [nick]  !devoice [nick]
//	!join <#channel>  !part [#channel]
//
// The nick defaults to whoever sent the command.
type Operator struct{}

func (*Operator) Name() string { return "operator" }

// modeCommands maps each command to its mode change and the wording of
// the confirmation sent to the requester.
var modeCommands = map[string]struct { //nolint:gochecknoglobals
	mode, verb, help string
}{
	"!op":      {"+o", "Giving OP to", "Gives channel operator status"},
	"!deop":    {"-o", "Removing OP from", "Takes channel operator status"},
	"!voice":   {"+v", "Giving VOICE to", "Gives voice"},
	"!devoice": {"-v", "Removing VOICE from", "Takes voice"},
}

func (o *Operator) Load(b *Bot) error {
	for name, mc := range modeCommands {
		mc := mc
		b.Command(b.Require(LevelOperator, func(_ context.Context, msg *session.ChannelMessage, _ string, args []string) error {
			nick := msg.Sender.Nick
			if len(args) > 0 {
				nick = args[0]
			}
			if err := b.Tell(msg.Sender.Nick, fmt.Sprintf("%s %s in %s", mc.verb, nick, msg.Channel.Name)); err != nil {
				return err
			}
			return b.Mode(msg.Channel.Name, mc.mode, nick)
		}), name)
		b.AddHelp(Help{Command: name, Level: LevelOperator, Args: "[nick]", Text: mc.help})
	}

	b.Command(b.Require(LevelOperator, func(_ context.Context, msg *session.ChannelMessage, _ string, args []string) error {
		if len(args) == 0 {
			return nil
		}
		if err := b.Tell(msg.Sender.Nick, "Joining "+args[0]); err != nil {
			return err
		}
		return b.Join(args[0])
	}), "!join")

	b.Command(b.Require(LevelOperator, func(_ context.Context, msg *session.ChannelMessage, _ string, args []string) error {
		channel := msg.Channel.Name
		if len(args) > 0 {
			channel = args[0]
		}
		if err := b.Tell(msg.Sender.Nick, "Parting from "+channel); err != nil {
			return err
		}
		return b.Part(channel)
	}), "!part")

	b.AddHelp(
		Help{Command: "!join", Level: LevelOperator, Args: "<#channel>", Text: "Joins a channel"},
		Help{Command: "!part", Level: LevelOperator, Args: "[#channel]", Text: "Leaves a channel"},
	)
	return nil
}
