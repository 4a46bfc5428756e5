package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IRCBOT_SERVER", "irc.example.net:7000")
	t.Setenv("IRCBOT_TLS", "yes")
	t.Setenv("IRCBOT_NICK", "envbot")
	t.Setenv("IRCBOT_CHANNELS", "#a, #b,,")
	t.Setenv("IRCBOT_TUNNEL", "ops@bastion")
	t.Setenv("IRCBOT_SSH_AGENT", "1")
	t.Setenv("IRCBOT_TIMEOUT", "10")
	t.Setenv("IRCBOT_RECONNECT_ATTEMPTS", "0")
	t.Setenv("IRCBOT_RECONNECT_DELAY", "500ms")
	t.Setenv("IRCBOT_RECONNECT_MAX_DELAY", "30")
	t.Setenv("IRCBOT_FLOOD_RATE", "2.5")
	t.Setenv("IRCBOT_VERBOSE", "3")
	t.Setenv("IRCBOT_ADMINS", "root")
	t.Setenv("IRCBOT_OPERATORS", "*!*@staff.example,helper")

	cfg := Defaults()
	LoadFromEnv(cfg)

	if !reflect.DeepEqual(cfg.Admins, []string{"root"}) || !reflect.DeepEqual(cfg.Operators, []string{"*!*@staff.example", "helper"}) {
		t.Errorf("admins=%q operators=%q", cfg.Admins, cfg.Operators)
	}

	if cfg.Host != "irc.example.net" || cfg.Port != 7000 {
		t.Errorf("server = %s:%d", cfg.Host, cfg.Port)
	}
	if !cfg.TLS {
		t.Error("TLS not set")
	}
	if cfg.Nick != "envbot" {
		t.Errorf("nick = %q", cfg.Nick)
	}
	if want := []string{"#a", "#b"}; !reflect.DeepEqual(cfg.Channels, want) {
		t.Errorf("channels = %q, want %q", cfg.Channels, want)
	}
	if cfg.TunnelSpec != "ops@bastion" || !cfg.UseSSHAgent {
		t.Errorf("ssh = %q agent=%v", cfg.TunnelSpec, cfg.UseSSHAgent)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.ReconnectAttempts != 0 {
		t.Errorf("explicit 0 attempts not applied: %d", cfg.ReconnectAttempts)
	}
	if cfg.ReconnectDelay != 500*time.Millisecond || cfg.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("delays = %v / %v", cfg.ReconnectDelay, cfg.ReconnectMaxDelay)
	}
	if cfg.FloodRate != 2.5 {
		t.Errorf("flood rate = %v", cfg.FloodRate)
	}
	if cfg.Verbose != 3 {
		t.Errorf("verbose = %d", cfg.Verbose)
	}
}

func TestLoadFromEnv_UnsetKeepsDefaults(t *testing.T) {
	t.Setenv("IRCBOT_PORT", "notanumber")
	t.Setenv("IRCBOT_TLS", "nope")

	cfg := Defaults()
	LoadFromEnv(cfg)
	if cfg.Port != 0 || cfg.TLS {
		t.Errorf("garbage env changed config: port=%d tls=%v", cfg.Port, cfg.TLS)
	}
	if cfg.ReconnectAttempts != DefaultReconnectAttempts {
		t.Errorf("attempts = %d", cfg.ReconnectAttempts)
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "Yes"} {
		t.Setenv("IRCBOT_TEST_BOOL", v)
		if !envBool("IRCBOT_TEST_BOOL") {
			t.Errorf("envBool(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no", "on"} {
		t.Setenv("IRCBOT_TEST_BOOL", v)
		if envBool("IRCBOT_TEST_BOOL") {
			t.Errorf("envBool(%q) = true", v)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircbot.yaml")
	data := `
host: irc.example.net
tls: true
nick: filebot
channels: ["#go", "#ircbot"]
transport: websocket
reconnect_delay: 3s
flood_burst: 2
plugins: [echo]
admins: ["me!*@my.host"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Host != "irc.example.net" || !cfg.TLS || cfg.Nick != "filebot" {
		t.Errorf("server fields: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Channels, []string{"#go", "#ircbot"}) {
		t.Errorf("channels = %q", cfg.Channels)
	}
	if cfg.Transport != TransportWebSocket {
		t.Errorf("transport = %q", cfg.Transport)
	}
	if cfg.ReconnectDelay != 3*time.Second {
		t.Errorf("reconnect delay = %v", cfg.ReconnectDelay)
	}
	if cfg.FloodBurst != 2 || !reflect.DeepEqual(cfg.Plugins, []string{"echo"}) {
		t.Errorf("burst=%d plugins=%q", cfg.FloodBurst, cfg.Plugins)
	}
	if !reflect.DeepEqual(cfg.Admins, []string{"me!*@my.host"}) || cfg.Operators != nil {
		t.Errorf("admins=%q operators=%q", cfg.Admins, cfg.Operators)
	}
	// Keys absent from the file keep their defaults.
	if cfg.ReconnectMaxDelay != DefaultReconnectMaxDelay || cfg.ChannelPrefixes != DefaultChannelPrefixes {
		t.Errorf("defaults lost: max delay %v prefixes %q", cfg.ReconnectMaxDelay, cfg.ChannelPrefixes)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := LoadFile(filepath.Join(dir, "missing.yaml"), Defaults()); err == nil {
		t.Error("missing file: expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("port: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(bad, Defaults()); err == nil {
		t.Error("malformed file: expected error")
	}
}

func TestPrecedence_EnvOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("nick: filebot\nhost: file.example\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IRCBOT_NICK", "envbot")

	cfg := Defaults()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatal(err)
	}
	LoadFromEnv(cfg)

	if cfg.Nick != "envbot" {
		t.Errorf("nick = %q, env should win over file", cfg.Nick)
	}
	if cfg.Host != "file.example" {
		t.Errorf("host = %q, file value should survive", cfg.Host)
	}
}
