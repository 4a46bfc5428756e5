// Package cmd wires up the CLI flags and runs the bot.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ircbot/config"
	"ircbot/internal/bot"
	"ircbot/internal/core"
	"ircbot/internal/metrics"
	"ircbot/internal/store"
	"ircbot/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ircbot/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// readSecret prompts for the server password; tests replace it.
var readSecret = util.ReadSecret //nolint:gochecknoglobals

// streams are the process's standard files.
type streams struct {
	in       io.Reader
	out, err io.Writer
}

// cliOptions are switches that only make sense on the command line.
type cliOptions struct {
	configPath  string
	timeoutSec  int
	verbose     int
	quiet       bool
	showVersion bool
	showHelp    bool
}

// Execute parses args and runs the bot until ctx is cancelled or the
// session ends.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func execute(ctx context.Context, args []string, s streams) error {
	// ── first pass: --help, --version, --config ──────────────────
	var early cliOptions
	fs := newFlagSet(config.Defaults(), &early)
	fs.SetOutput(s.err)
	fs.Usage = func() { printUsage(s.err, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if early.showHelp || len(args) == 0 {
		printUsage(s.err, fs)
		return nil
	}
	if early.showVersion {
		fmt.Fprintf(s.out, "ircbot %s\n", version)
		return nil
	}

	// ── sources: defaults < file < env < flags ───────────────────
	cfg := config.Defaults()
	if early.configPath != "" {
		if err := config.LoadFile(early.configPath, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	var opts cliOptions
	baseVerbose := cfg.Verbose
	fs = newFlagSet(cfg, &opts)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return err
	}
	applyCLI(cfg, fs, &opts, baseVerbose)

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── finalize & validate ──────────────────────────────────────
	if err := cfg.Finalize(); err != nil {
		return err
	}
	if cfg.PromptPassword && !cfg.DryRun {
		pass, err := readSecret(fmt.Sprintf("Password for %s: ", cfg.Host))
		if err != nil {
			return fmt.Errorf("reading server password: %w", err)
		}
		cfg.Password = string(pass)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := bot.Lookup(cfg.Plugins...); err != nil {
		return err
	}

	if cfg.DryRun {
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = s.out.Write(out)
		return err
	}

	return run(ctx, cfg, s)
}

// run builds the bot from a validated configuration and blocks until it
// stops.
func run(ctx context.Context, cfg *config.Config, s streams) error {
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(s.err)
	m := metrics.New()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	b := bot.New(client, bot.Options{
		Logger:    logger,
		Store:     st,
		Channels:  cfg.Channels,
		Admins:    cfg.Admins,
		Operators: cfg.Operators,
	})
	defer b.Close()
	plugins, err := bot.Lookup(cfg.Plugins...)
	if err != nil {
		return err
	}
	if err := b.Load(plugins...); err != nil {
		return err
	}

	var mode core.Mode = client
	if cfg.Persist {
		mode = core.NewSupervisor(cfg, client, logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Console {
		c := newConsole(client, m, s.out, cancel)
		r := newLineReader(s.in, logger)
		go func() {
			if err := c.Run(ctx, r); err != nil {
				logger.Warn("console: %v", err)
			}
		}()
	}

	err = mode.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(s.err, m.JSON())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ── flags ────────────────────────────────────────────────────────────

// newFlagSet binds every flag to cfg.  Each flag's default is the value
// already in cfg, so parsing only overwrites what was given.
func newFlagSet(cfg *config.Config, o *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("ircbot", flag.ContinueOnError)
	fs.SortFlags = false

	// ── server ───────────────────────────────────────────────────
	fs.BoolVarP(&cfg.TLS, "tls", "s", cfg.TLS, "Connect with TLS (default port 6697)")
	fs.BoolVar(&cfg.TLSSkipVerify, "tls-skip-verify", cfg.TLSSkipVerify, "Accept any server certificate")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "Server password (PASS)")
	fs.BoolVar(&cfg.PromptPassword, "ask-password", cfg.PromptPassword, "Prompt for the server password")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport: tcp or websocket")
	fs.StringVar(&cfg.WebSocketPath, "ws-path", cfg.WebSocketPath, "WebSocket request path")
	fs.BoolVar(&cfg.NoProxy, "no-proxy", cfg.NoProxy, "Ignore ALL_PROXY and dial directly")
	fs.IntVarP(&o.timeoutSec, "timeout", "w", int(cfg.Timeout/time.Second), "Connect timeout in seconds")

	// ── identity ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Nick, "nick", "n", cfg.Nick, "Nickname")
	fs.StringVar(&cfg.Login, "login", cfg.Login, "Login (user name); defaults to the nick")
	fs.StringSliceVarP(&cfg.Channels, "join", "j", cfg.Channels, "Channel to join on connect (repeatable)")
	fs.StringVar(&cfg.ChannelPrefixes, "channel-prefixes", cfg.ChannelPrefixes, "Characters that start a channel name")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server through SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── reconnect ────────────────────────────────────────────────
	fs.IntVar(&cfg.ReconnectAttempts, "reconnect-attempts", cfg.ReconnectAttempts, "Connect attempts per session (0 = unlimited)")
	fs.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "Delay before the first retry")
	fs.DurationVar(&cfg.ReconnectMaxDelay, "reconnect-max-delay", cfg.ReconnectMaxDelay, "Upper bound for the retry delay")
	fs.BoolVar(&cfg.Persist, "persist", cfg.Persist, "Start a new session whenever one ends")
	fs.IntVar(&cfg.BreakerThreshold, "breaker-threshold", cfg.BreakerThreshold, "Failed sessions before pausing (with --persist)")
	fs.DurationVar(&cfg.BreakerCooldown, "breaker-cooldown", cfg.BreakerCooldown, "Pause after repeated failures (with --persist)")

	// ── flood control ────────────────────────────────────────────
	fs.Float64Var(&cfg.FloodRate, "flood-rate", cfg.FloodRate, "Outgoing lines per second (0 = unlimited)")
	fs.IntVar(&cfg.FloodBurst, "flood-burst", cfg.FloodBurst, "Lines that may be sent back to back")

	// ── bot ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Bot state file (:memory: to keep nothing)")
	fs.StringSliceVar(&cfg.Plugins, "plugins", cfg.Plugins, "Plugins to load")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Read operator commands from stdin")
	fs.StringSliceVar(&cfg.Admins, "admin", cfg.Admins, "User mask with admin access (repeatable)")
	fs.StringSliceVar(&cfg.Operators, "operator", cfg.Operators, "User mask with operator access (repeatable)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&o.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "Only log errors")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print session statistics on exit")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Print the effective configuration and exit")
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")

	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&o.showHelp, "help", "h", false, "Show this help")
	return fs
}

// applyCLI folds the CLI-only switches into cfg.
func applyCLI(cfg *config.Config, fs *flag.FlagSet, o *cliOptions, baseVerbose int) {
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(o.timeoutSec) * time.Second
	}
	switch {
	case o.quiet:
		cfg.Verbose = 0
	case o.verbose > 0:
		cfg.Verbose = min(baseVerbose+o.verbose, 3)
	default:
		cfg.Verbose = baseVerbose
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil // host from the config file or IRCBOT_SERVER
	case 1:
		host, port, err := config.ParseServerSpec(remaining[0])
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		cfg.Host = host
		if port > 0 {
			cfg.Port = port
		}
		return nil
	default:
		return fmt.Errorf("too many arguments: expected a single <host[:port]>")
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `ircbot - IRC bot v%s

Connects to one IRC server, joins channels and runs plugins.

Usage:
  ircbot [options] <host[:port]>

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  ircbot -n mybot -j '#go' irc.libera.chat             Plain connection
  ircbot -s -n mybot -j '#go' irc.libera.chat          TLS on 6697
  ircbot -T admin@bastion -n mybot irc.internal:6667   Through SSH
  ircbot --persist --store bot.db -c bot.yaml          Long-running bot
  ircbot --console -n mybot irc.libera.chat            With operator console
  ircbot --admin 'me!*@my.host' -n mybot irc.libera.chat  Trust one user
`)
}
