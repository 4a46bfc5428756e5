package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultChannelPrefixes are the channel name prefixes recognised
	// when the server does not say otherwise.
	DefaultChannelPrefixes = "#&"

	// DefaultTransport dials a plain byte stream (optionally TLS).
	DefaultTransport = TransportTCP

	// DefaultWebSocketPath is requested when the websocket transport is
	// used without an explicit path.
	DefaultWebSocketPath = "/webirc"

	// DefaultConnTimeout bounds TCP and SSH connection setup.
	DefaultConnTimeout = 30 * time.Second

	// DefaultReconnectAttempts is the total number of connect attempts
	// per session, the first included.
	DefaultReconnectAttempts = 5

	// DefaultReconnectDelay is the wait before the first retry.
	DefaultReconnectDelay = 2 * time.Second

	// DefaultReconnectMaxDelay caps the exponential backoff between
	// attempts.
	DefaultReconnectMaxDelay = 60 * time.Second

	// DefaultBreakerThreshold is how many consecutive failed sessions
	// pause a persistent bot.
	DefaultBreakerThreshold = 5

	// DefaultBreakerCooldown is how long a persistent bot pauses.
	DefaultBreakerCooldown = 5 * time.Minute

	// DefaultFloodRate is the sustained outgoing line rate (lines/s).
	DefaultFloodRate = 1.0

	// DefaultFloodBurst is how many lines may be sent back to back.
	DefaultFloodBurst = 5

	// DefaultStorePath keeps bot state in memory only.
	DefaultStorePath = ":memory:"
)

// Transport kinds.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// DefaultPlugins are loaded when the configuration names none.
var DefaultPlugins = []string{"autojoin", "access", "help", "operator", "greeter", "uptime", "autoresponse"} //nolint:gochecknoglobals

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		ChannelPrefixes:   DefaultChannelPrefixes,
		Transport:         DefaultTransport,
		WebSocketPath:     DefaultWebSocketPath,
		Timeout:           DefaultConnTimeout,
		ReconnectAttempts: DefaultReconnectAttempts,
		ReconnectDelay:    DefaultReconnectDelay,
		ReconnectMaxDelay: DefaultReconnectMaxDelay,
		BreakerThreshold:  DefaultBreakerThreshold,
		BreakerCooldown:   DefaultBreakerCooldown,
		FloodRate:         DefaultFloodRate,
		FloodBurst:        DefaultFloodBurst,
		StorePath:         DefaultStorePath,
		Plugins:           append([]string(nil), DefaultPlugins...),
		Verbose:           1,
	}
}
