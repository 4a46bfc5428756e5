package bot

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"ircbot/internal/session"
)

// ResponseSeparator splits trigger from text in ".ar add".
const ResponseSeparator = "|"

// AutoResponse answers channel messages that match a stored trigger.
// Triggers are case-insensitive regular expressions matched against the
// whole message; a trigger that does not compile is matched literally.
// Responses may use $nick, $channel and the trigger's groups ($1, $2).
// Managing the table needs operator access.
//
//	.ar add hello|hello $nick, welcome to $channel!
//	.ar del hello
//	.ar list
type AutoResponse struct{}

func (*AutoResponse) Name() string { return "autoresponse" }

func (a *AutoResponse) Load(b *Bot) error {
	if b.Store() == nil {
		return errors.New("needs a store")
	}
	b.Command(b.Require(LevelOperator, a.manage(b)), ".autoresponse", ".ar")
	b.AddHelp(
		Help{Command: ".ar add", Level: LevelOperator, Args: "<trigger>" + ResponseSeparator + "<response>",
			Text: "Adds an auto-response; the response may use $1, $2, $nick and $channel"},
		Help{Command: ".ar del", Level: LevelOperator, Args: "<trigger>", Text: "Removes an auto-response"},
		Help{Command: ".ar list", Level: LevelOperator, Text: "Lists all auto-responses"},
	)
	b.OnMessage(func(_ context.Context, msg *session.ChannelMessage) error {
		table, err := b.Store().Responses()
		if err != nil {
			return err
		}
		if reply, ok := Respond(table, msg); ok {
			return b.Say(msg.Channel, reply)
		}
		return nil
	})
	return nil
}

func (a *AutoResponse) manage(b *Bot) CommandFunc {
	return func(_ context.Context, msg *session.ChannelMessage, _ string, args []string) error {
		if len(args) == 0 {
			return nil
		}
		sender := msg.Sender.Nick
		rest := strings.Join(args[1:], " ")

		switch args[0] {
		case "add":
			trigger, text, ok := strings.Cut(rest, ResponseSeparator)
			trigger = strings.TrimSpace(trigger)
			text = strings.TrimSpace(text)
			if !ok || trigger == "" || text == "" {
				return b.Tell(sender, "Usage: .ar add trigger"+ResponseSeparator+"response")
			}
			if err := b.Store().SetResponse(trigger, text); err != nil {
				return err
			}
			return b.Tell(sender, "Auto-response added!")

		case "del":
			if rest == "" {
				return nil
			}
			removed, err := b.Store().DeleteResponse(rest)
			if err != nil {
				return err
			}
			if !removed {
				return b.Tell(sender, "No auto-response for "+rest)
			}
			return b.Tell(sender, "Auto-response removed!")

		case "list":
			table, err := b.Store().Responses()
			if err != nil {
				return err
			}
			if len(table) == 0 {
				return b.Tell(sender, "No auto-responses")
			}
			for _, t := range sortedKeys(table) {
				if err := b.Tell(sender, t+": "+table[t]); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// Respond finds the first trigger, in sorted order, that matches
// msg.Text and expands its response.
func Respond(table map[string]string, msg *session.ChannelMessage) (string, bool) {
	text := strings.TrimSpace(msg.Text)
	for _, trigger := range sortedKeys(table) {
		re := compileTrigger(trigger)
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		template := strings.NewReplacer(
			"$nick", escapeDollar(msg.Sender.Nick),
			"$channel", escapeDollar(msg.Channel.Name),
		).Replace(table[trigger])
		reply := string(re.ExpandString(nil, template, text, m))
		if strings.TrimSpace(reply) == "" {
			return "", false
		}
		return reply, true
	}
	return "", false
}

func compileTrigger(trigger string) *regexp.Regexp {
	if re, err := regexp.Compile("(?i)^(?:" + trigger + ")$"); err == nil {
		return re
	}
	return regexp.MustCompile("(?i)^" + regexp.QuoteMeta(trigger) + "$")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeDollar(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
