package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ircbot/internal/session"
	"ircbot/util"
)

// Level is how much a user is trusted with.
type Level int

const (
	LevelUser Level = iota
	LevelOperator
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelOperator:
		return "operator"
	case LevelAdmin:
		return "admin"
	default:
		return "user"
	}
}

// ParseLevel accepts the names printed by Level.String.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "user":
		return LevelUser, true
	case "operator", "op":
		return LevelOperator, true
	case "admin":
		return LevelAdmin, true
	}
	return LevelUser, false
}

// grant gives level to users whose nick!login@host matches re.
type grant struct {
	mask  string
	re    *regexp.Regexp
	level Level
}

func compileGrants(logger *util.Logger, level Level, masks []string) []grant {
	var out []grant
	for _, m := range masks {
		re, err := CompileMask(m)
		if err != nil {
			logger.Warn("ignoring %s mask %q: %v", level, m, err)
			continue
		}
		out = append(out, grant{mask: m, re: re, level: level})
	}
	return out
}

// CompileMask turns a user mask into a case-insensitive matcher for
// "nick!login@host".  A bare nick matches any login and host; "*" and
// "?" are wildcards.
func CompileMask(mask string) (*regexp.Regexp, error) {
	mask = strings.TrimSpace(mask)
	if mask == "" || strings.ContainsAny(mask, " \t") {
		return nil, fmt.Errorf("invalid mask %q", mask)
	}
	switch {
	case !strings.ContainsAny(mask, "!@"):
		mask += "!*@*"
	case !strings.Contains(mask, "!"):
		mask = "*!" + mask
	case !strings.Contains(mask, "@"):
		mask += "@*"
	}

	var buf bytes.Buffer
	buf.WriteString("(?i)^")
	for _, r := range mask {
		switch r {
		case '*':
			buf.WriteString(".*")
		case '?':
			buf.WriteString(".")
		default:
			buf.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	buf.WriteByte('$')
	return regexp.Compile(buf.String())
}

// Level returns the highest level granted to u by the configured masks
// or the stored access list.
func (b *Bot) Level(u session.User) Level {
	mask := u.Mask()
	level := LevelUser
	for _, g := range b.grants {
		if g.level > level && g.re.MatchString(mask) {
			level = g.level
		}
	}
	if b.store == nil {
		return level
	}
	table, err := b.store.Access()
	if err != nil {
		b.logger.Warn("access list: %v", err)
		return level
	}
	for m, name := range table {
		l, ok := ParseLevel(name)
		if !ok || l <= level {
			continue
		}
		if re, err := CompileMask(m); err == nil && re.MatchString(mask) {
			level = l
		}
	}
	return level
}

// Require wraps fn so that only users at level or above may run it.
// Anyone else is told so privately.
func (b *Bot) Require(level Level, fn CommandFunc) CommandFunc {
	if level <= LevelUser {
		return fn
	}
	return func(ctx context.Context, msg *session.ChannelMessage, cmd string, args []string) error {
		if got := b.Level(msg.Sender); got < level {
			b.logger.Info("%s denied %s in %s (%s, needs %s)", msg.Sender.Mask(), cmd, msg.Channel.Name, got, level)
			return b.Tell(msg.Sender.Nick, fmt.Sprintf("%s needs %s access", cmd, level))
		}
		return fn(ctx, msg, cmd, args)
	}
}

// ── Access plugin ────────────────────────────────────────────────────

// Access manages the stored access list.
//
//	!access                       your own level
//	!access add <mask> <level>    grant (admin)
//	!access del <mask>            revoke (admin)
//	!access list                  show grants (admin)
type Access struct{}

func (*Access) Name() string { return "access" }

func (a *Access) Load(b *Bot) error {
	if b.Store() == nil {
		return errors.New("needs a store")
	}
	manage := b.Require(LevelAdmin, a.manage(b))
	b.Command(func(ctx context.Context, msg *session.ChannelMessage, cmd string, args []string) error {
		if len(args) == 0 {
			return b.Tell(msg.Sender.Nick, "Your access level is "+b.Level(msg.Sender).String())
		}
		return manage(ctx, msg, cmd, args)
	}, "!access")

	b.AddHelp(
		Help{Command: "!access", Level: LevelUser, Text: "Shows your access level"},
		Help{Command: "!access add", Level: LevelAdmin, Args: "<mask> <user|operator|admin>", Text: "Grants an access level"},
		Help{Command: "!access del", Level: LevelAdmin, Args: "<mask>", Text: "Revokes a grant"},
		Help{Command: "!access list", Level: LevelAdmin, Text: "Lists stored grants"},
	)
	return nil
}

func (a *Access) manage(b *Bot) CommandFunc {
	return func(_ context.Context, msg *session.ChannelMessage, _ string, args []string) error {
		sender := msg.Sender.Nick
		switch args[0] {
		case "add":
			if len(args) != 3 {
				return b.Tell(sender, "Usage: !access add <mask> <user|operator|admin>")
			}
			level, ok := ParseLevel(args[2])
			if !ok {
				return b.Tell(sender, "Unknown level "+args[2])
			}
			if _, err := CompileMask(args[1]); err != nil {
				return b.Tell(sender, err.Error())
			}
			if err := b.Store().SetAccess(args[1], level.String()); err != nil {
				return err
			}
			return b.Tell(sender, fmt.Sprintf("Granted %s to %s", level, args[1]))

		case "del":
			if len(args) != 2 {
				return b.Tell(sender, "Usage: !access del <mask>")
			}
			removed, err := b.Store().DeleteAccess(args[1])
			if err != nil {
				return err
			}
			if !removed {
				return b.Tell(sender, "No grant for "+args[1])
			}
			return b.Tell(sender, "Revoked "+args[1])

		case "list":
			table, err := b.Store().Access()
			if err != nil {
				return err
			}
			if len(table) == 0 {
				return b.Tell(sender, "No stored grants")
			}
			masks := make([]string, 0, len(table))
			for m := range table {
				masks = append(masks, m)
			}
			sort.Strings(masks)
			for _, m := range masks {
				if err := b.Tell(sender, m+": "+table[m]); err != nil {
					return err
				}
			}
			return nil
		}
		return b.Tell(sender, "Usage: !access [add|del|list]")
	}
}
