package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"

	ircerr "ircbot/internal/errors"
	"ircbot/internal/metrics"
	"ircbot/internal/session"
	"ircbot/util"
)

// consoleClient is the part of the engine the operator console drives.
type consoleClient interface {
	User() session.User
	Channels() []session.Channel
	Join(channel string) error
	Part(channel string) error
	Privmsg(target, text string) error
	ChangeNick(nick string) error
	SetMode(channel, mode string, args ...string) error
	Quit(reason string) error
}

// console runs operator commands typed on stdin.  Commands run on the
// console goroutine; the engine serializes them with the read loop.
type console struct {
	client  consoleClient
	metrics *metrics.Collector
	out     io.Writer
	quit    func()
}

func newConsole(client consoleClient, m *metrics.Collector, out io.Writer, quit func()) *console {
	return &console{client: client, metrics: m, out: out, quit: quit}
}

const consoleHelp = `Commands:
  /join <#channel>          /part <#channel>
  /msg <target> <text>      /nick <nick>
  /mode <#channel> <mode> [args...]
  /channels                 /stats
  /quit [reason]            /help
`

// Run reads lines from r until ctx is cancelled, input ends or /quit.
func (c *console) Run(ctx context.Context, r lineReader) error {
	defer r.Close()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		for {
			line, err := r.ReadLine()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case line := <-lines:
			if c.exec(line) {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the console should
// stop.
func (c *console) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		fmt.Fprintln(c.out, "commands start with /; try /help")
		return false
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "join":
		err = c.needArgs(args, 1, func() error { return c.client.Join(args[0]) })
	case "part":
		err = c.needArgs(args, 1, func() error { return c.client.Part(args[0]) })
	case "nick":
		err = c.needArgs(args, 1, func() error { return c.client.ChangeNick(args[0]) })
	case "msg":
		err = c.needArgs(args, 2, func() error {
			// Keep the text's own spacing.
			text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[len("/msg"):]), args[0]))
			return c.client.Privmsg(args[0], text)
		})
	case "mode":
		err = c.needArgs(args, 2, func() error { return c.client.SetMode(args[0], args[1], args[2:]...) })
	case "channels":
		chans := c.client.Channels()
		if len(chans) == 0 {
			fmt.Fprintln(c.out, "not in any channel")
		}
		for _, ch := range chans {
			fmt.Fprintln(c.out, ch.Name)
		}
	case "stats":
		fmt.Fprintln(c.out, c.metrics.JSON())
	case "help":
		fmt.Fprint(c.out, consoleHelp)
	case "quit":
		reason := strings.Join(args, " ")
		if err := c.client.Quit(reason); err != nil && !errors.Is(err, ircerr.ErrNotConnected) {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if c.quit != nil {
			c.quit()
		}
		return true
	default:
		fmt.Fprintf(c.out, "unknown command /%s; try /help\n", cmd)
		return false
	}

	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	return false
}

func (c *console) needArgs(args []string, n int, fn func() error) error {
	if len(args) < n {
		return fmt.Errorf("not enough arguments; try /help")
	}
	return fn()
}

// ── input ────────────────────────────────────────────────────────────

// lineReader yields operator input one line at a time.
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

// newLineReader uses an interactive line editor when in is a terminal
// and a plain scanner otherwise.
func newLineReader(in io.Reader, logger *util.Logger) lineReader {
	if f, ok := in.(*os.File); ok && util.IsTerminal(f) {
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:       "> ",
			HistoryLimit: 500,
		})
		if err == nil {
			return &editorReader{rl: rl}
		}
		logger.Warn("line editor unavailable (%v), using basic input", err)
	}
	return &scanReader{scanner: bufio.NewScanner(in)}
}

type editorReader struct {
	rl *readline.Instance
}

func (r *editorReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (r *editorReader) Close() error { return r.rl.Close() }

type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) ReadLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Close is a no-op; a pending Scan ends with the process.
func (r *scanReader) Close() error { return nil }
