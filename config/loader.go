package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the IRCBOT_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  List values are
// comma-separated.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	// Server
	if v := os.Getenv("IRCBOT_SERVER"); v != "" {
		if host, port, err := ParseServerSpec(v); err == nil {
			cfg.Host = host
			if port > 0 {
				cfg.Port = port
			}
		}
	}
	if v := envInt("IRCBOT_PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool("IRCBOT_TLS") {
		cfg.TLS = true
	}
	if envBool("IRCBOT_TLS_SKIP_VERIFY") {
		cfg.TLSSkipVerify = true
	}
	if v := os.Getenv("IRCBOT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("IRCBOT_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("IRCBOT_WEBSOCKET_PATH"); v != "" {
		cfg.WebSocketPath = v
	}
	if envBool("IRCBOT_NO_PROXY") {
		cfg.NoProxy = true
	}
	if v := envInt("IRCBOT_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// Identity
	if v := os.Getenv("IRCBOT_NICK"); v != "" {
		cfg.Nick = v
	}
	if v := os.Getenv("IRCBOT_LOGIN"); v != "" {
		cfg.Login = v
	}
	if v := envList("IRCBOT_CHANNELS"); v != nil {
		cfg.Channels = v
	}
	if v := os.Getenv("IRCBOT_CHANNEL_PREFIXES"); v != "" {
		cfg.ChannelPrefixes = v
	}

	// SSH gateway
	if v := os.Getenv("IRCBOT_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("IRCBOT_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("IRCBOT_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("IRCBOT_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("IRCBOT_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("IRCBOT_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Reconnect
	if v, ok := envIntSet("IRCBOT_RECONNECT_ATTEMPTS"); ok {
		cfg.ReconnectAttempts = v
	}
	if v := envDuration("IRCBOT_RECONNECT_DELAY"); v > 0 {
		cfg.ReconnectDelay = v
	}
	if v := envDuration("IRCBOT_RECONNECT_MAX_DELAY"); v > 0 {
		cfg.ReconnectMaxDelay = v
	}
	if envBool("IRCBOT_PERSIST") {
		cfg.Persist = true
	}

	// Flood control
	if v := os.Getenv("IRCBOT_FLOOD_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FloodRate = f
		}
	}
	if v := envInt("IRCBOT_FLOOD_BURST"); v > 0 {
		cfg.FloodBurst = v
	}

	// Bot
	if v := os.Getenv("IRCBOT_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := envList("IRCBOT_PLUGINS"); v != nil {
		cfg.Plugins = v
	}
	if v := envList("IRCBOT_ADMINS"); v != nil {
		cfg.Admins = v
	}
	if v := envList("IRCBOT_OPERATORS"); v != nil {
		cfg.Operators = v
	}

	// Output
	if v, ok := envIntSet("IRCBOT_VERBOSE"); ok {
		cfg.Verbose = v
	}
	if envBool("IRCBOT_STATS") {
		cfg.Stats = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	n, _ := envIntSet(key)
	return n
}

// envIntSet distinguishes an explicit 0 from an unset variable.
func envIntSet(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts a Go duration ("90s") or a bare number of seconds.
func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return secondsDuration(n)
	}
	return 0
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
