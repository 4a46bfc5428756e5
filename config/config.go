// Package config defines the runtime configuration for ircbot and
// provides helpers for parsing server and SSH gateway specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ircerr "ircbot/internal/errors"
	"ircbot/util"
)

// Config holds every tuneable for one bot process.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	TLS            bool          `yaml:"tls"`
	TLSSkipVerify  bool          `yaml:"tls_skip_verify"`
	Password       string        `yaml:"password"`
	PromptPassword bool          `yaml:"-"`
	Transport      string        `yaml:"transport"`
	WebSocketPath  string        `yaml:"websocket_path"`
	NoProxy        bool          `yaml:"no_proxy"`
	Timeout        time.Duration `yaml:"timeout"`

	// ── Identity ─────────────────────────────────────────────────────
	Nick            string   `yaml:"nick"`
	Login           string   `yaml:"login"`
	Channels        []string `yaml:"channels"`
	ChannelPrefixes string   `yaml:"channel_prefixes"`

	// ── SSH gateway ──────────────────────────────────────────────────
	TunnelSpec     string `yaml:"tunnel"`
	TunnelEnabled  bool   `yaml:"-"`
	TunnelUser     string `yaml:"-"`
	TunnelHost     string `yaml:"-"`
	TunnelPort     int    `yaml:"-"`
	SSHKeyPath     string `yaml:"ssh_key"`
	SSHPassword    bool   `yaml:"ssh_password"`
	UseSSHAgent    bool   `yaml:"ssh_agent"`
	StrictHostKey  bool   `yaml:"strict_host_key"`
	KnownHostsPath string `yaml:"known_hosts"`

	// ── Reconnect ────────────────────────────────────────────────────
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ReconnectMaxDelay time.Duration `yaml:"reconnect_max_delay"`
	Persist           bool          `yaml:"persist"`
	BreakerThreshold  int           `yaml:"breaker_threshold"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown"`

	// ── Flood control ────────────────────────────────────────────────
	FloodRate  float64 `yaml:"flood_rate"`
	FloodBurst int     `yaml:"flood_burst"`

	// ── Bot ──────────────────────────────────────────────────────────
	StorePath string   `yaml:"store"`
	Plugins   []string `yaml:"plugins"`
	Console   bool     `yaml:"console"`
	// Admins and Operators are user masks: nick, nick!login@host or
	// login@host, with * and ? wildcards.
	Admins    []string `yaml:"admins"`
	Operators []string `yaml:"operators"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int  `yaml:"verbose"`
	Stats   bool `yaml:"stats"`
	DryRun  bool `yaml:"-"`
}

// ── Spec parsers ─────────────────────────────────────────────────────

// ParseServerSpec splits "host", "host:port" or "[v6]:port".  A
// missing port is reported as 0 so the TLS default can apply later.
func ParseServerSpec(spec string) (host string, port int, err error) {
	return util.SplitAddr(spec, 0)
}

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid SSH gateway %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid SSH gateway port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Derived values ───────────────────────────────────────────────────

// Finalize fills values derived from others: the TLS-dependent default
// port, the login, and the parsed SSH gateway.  Call it after every
// source has been applied and before Validate.
func (c *Config) Finalize() error {
	if c.Port == 0 {
		c.Port = util.DefaultPort(c.TLS)
	}
	if c.Login == "" {
		c.Login = c.Nick
	}
	if c.ChannelPrefixes == "" {
		c.ChannelPrefixes = DefaultChannelPrefixes
	}
	c.Transport = strings.ToLower(c.Transport)
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}

	c.TunnelEnabled = c.TunnelSpec != ""
	if c.TunnelEnabled {
		user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
		if err != nil {
			return &ircerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
		}
		c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	}
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  It
// returns the first problem found as an *errors.ConfigError.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ircerr.ConfigError{
			Field:   "host",
			Message: "server is required",
			Hint:    "pass the server as host[:port] or set host in the config file",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ircerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "IRC servers usually listen on 6667, or 6697 for TLS",
		}
	}
	if err := checkWord("nick", c.Nick); err != nil {
		return err
	}
	if strings.ContainsAny(c.Nick[:1], "#&:0123456789-") {
		return &ircerr.ConfigError{Field: "nick", Value: c.Nick, Message: "must not start with a digit, '-' or a channel prefix"}
	}
	if err := checkWord("login", c.Login); err != nil {
		return err
	}
	if c.Password != "" && (strings.Contains(c.Password, " ") || util.HasControl(c.Password)) {
		return &ircerr.ConfigError{Field: "password", Message: "must not contain spaces or line breaks"}
	}

	if c.ChannelPrefixes == "" {
		return &ircerr.ConfigError{Field: "channel-prefixes", Message: "must not be empty"}
	}
	for _, ch := range c.Channels {
		if err := checkWord("join", ch); err != nil {
			return err
		}
		if !strings.ContainsRune(c.ChannelPrefixes, rune(ch[0])) {
			return &ircerr.ConfigError{
				Field:   "join",
				Value:   ch,
				Message: fmt.Sprintf("channel names start with one of %q", c.ChannelPrefixes),
				Hint:    "quote the name in your shell: --join '#channel'",
			}
		}
	}

	for _, m := range c.Admins {
		if err := checkWord("admin", m); err != nil {
			return err
		}
	}
	for _, m := range c.Operators {
		if err := checkWord("operator", m); err != nil {
			return err
		}
	}

	switch c.Transport {
	case TransportTCP, TransportWebSocket:
	default:
		return &ircerr.ConfigError{
			Field:   "transport",
			Value:   c.Transport,
			Message: "unknown transport",
			Hint:    "use tcp or websocket",
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ircerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: "gateway host is required"}
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return &ircerr.ConfigError{
			Field:   "tunnel",
			Message: "SSH credentials given without a gateway",
			Hint:    "add --tunnel user@bastion to route the connection through SSH",
		}
	}

	if c.ReconnectAttempts < 0 {
		return &ircerr.ConfigError{Field: "reconnect-attempts", Value: c.ReconnectAttempts, Message: "must be 0 (unlimited) or more"}
	}
	if c.ReconnectDelay < 0 || c.ReconnectMaxDelay < 0 {
		return &ircerr.ConfigError{Field: "reconnect-delay", Message: "delays must not be negative"}
	}
	if c.FloodRate < 0 {
		return &ircerr.ConfigError{Field: "flood-rate", Value: c.FloodRate, Message: "must be 0 (unlimited) or more"}
	}
	if c.FloodRate > 0 && c.FloodBurst < 1 {
		return &ircerr.ConfigError{
			Field:   "flood-burst",
			Value:   c.FloodBurst,
			Message: "must be at least 1 when flood control is on",
		}
	}
	if c.Verbose < 0 || c.Verbose > 3 {
		return &ircerr.ConfigError{Field: "verbose", Value: c.Verbose, Message: "out of range 0-3"}
	}
	return nil
}

func checkWord(field, value string) error {
	if value == "" {
		return &ircerr.ConfigError{Field: field, Message: "required"}
	}
	if strings.ContainsAny(value, " ,") || util.HasControl(value) {
		return &ircerr.ConfigError{Field: field, Value: value, Message: "must not contain spaces, commas or line breaks"}
	}
	return nil
}
