package irc

import (
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Line is one raw protocol line split on single spaces.  Empty tokens
// produced by repeated spaces are kept so that positions stay fixed.
type Line struct {
	Raw    string
	Tokens []string
}

// Tokenize splits raw into a Line.
func Tokenize(raw string) Line {
	return Line{Raw: raw, Tokens: strings.Split(raw, " ")}
}

// Len returns the number of tokens.
func (l Line) Len() int { return len(l.Tokens) }

// Token returns token i, or "" when the line is shorter.
func (l Line) Token(i int) string {
	if i < 0 || i >= len(l.Tokens) {
		return ""
	}
	return l.Tokens[i]
}

// Verb returns the command or numeric in position 1.
func (l Line) Verb() string { return l.Token(1) }

// Numeric returns the reply code when the verb is a three-digit
// number.
func (l Line) Numeric() (int, bool) {
	verb := l.Verb()
	if len(verb) != 3 || strings.TrimLeft(verb, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(verb)
	return n, err == nil
}

// Param returns token i with a single leading ':' removed.
func (l Line) Param(i int) string {
	return strings.TrimPrefix(l.Token(i), ":")
}

// Prefix parses the ":nick!login@host" source in token 0.  It reports
// false when the line has no source or the nick part is empty.
func (l Line) Prefix() (ircmsg.NUH, bool) {
	src := l.Token(0)
	if len(src) < 2 || src[0] != ':' {
		return ircmsg.NUH{}, false
	}
	nuh, err := ircmsg.ParseNUH(src[1:])
	if err != nil || nuh.Name == "" {
		return ircmsg.NUH{}, false
	}
	return nuh, true
}

// Trailing returns the text after the first " :" that follows the
// source, or the last token when the line carries no trailing marker.
func (l Line) Trailing() string {
	rest := l.Raw
	if strings.HasPrefix(rest, ":") {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return ""
		}
		rest = rest[sp:]
	}
	if i := strings.Index(rest, " :"); i >= 0 {
		return rest[i+2:]
	}
	return l.Token(len(l.Tokens) - 1)
}
