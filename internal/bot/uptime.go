package bot

import (
	"context"
	"fmt"
	"time"

	"ircbot/internal/session"
)

// Uptime answers .uptime and .up with how long the bot has run.
type Uptime struct {
	// Now defaults to time.Now.
	Now func() time.Time

	started time.Time
}

func (*Uptime) Name() string { return "uptime" }

func (u *Uptime) Load(b *Bot) error {
	if u.Now == nil {
		u.Now = time.Now
	}
	u.started = u.Now()
	b.Command(func(_ context.Context, msg *session.ChannelMessage, _ string, _ []string) error {
		return b.Say(msg.Channel, "Uptime: "+FormatUptime(u.Now().Sub(u.started)))
	}, ".uptime", ".up")
	b.AddHelp(Help{Command: ".uptime", Text: "Shows bot uptime"})
	return nil
}

// FormatUptime renders d as "<days>d HH:MM:SS".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%dd %02d:%02d:%02d",
		secs/86400, secs/3600%24, secs/60%60, secs%60)
}
