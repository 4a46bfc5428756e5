package config

import (
	"strings"
	"testing"

	ircerr "ircbot/internal/errors"
)

func TestParseServerSpec(t *testing.T) {
	tests := []struct {
		spec     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"irc.libera.chat", "irc.libera.chat", 0, false},
		{"irc.libera.chat:6697", "irc.libera.chat", 6697, false},
		{"[::1]:6667", "::1", 6667, false},
		{"", "", 0, true},
		{"irc.example.net:99999", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			host, port, err := ParseServerSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		spec     string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"user@host", "user", "host", 22, false},
		{"user@host:2222", "user", "host", 2222, false},
		{"host", "", "host", 22, false},
		{"host:22", "", "host", 22, false},
		{"admin@bastion.example.com:443", "admin", "bastion.example.com", 443, false},
		{"", "", "", 0, true},
		{"user@", "", "", 0, true},
		{"host:0", "", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Run("plain defaults", func(t *testing.T) {
		c := Defaults()
		c.Host = "irc.example.net"
		c.Nick = "bot"
		if err := c.Finalize(); err != nil {
			t.Fatal(err)
		}
		if c.Port != 6667 || c.Login != "bot" || c.TunnelEnabled {
			t.Errorf("port=%d login=%q tunnel=%v", c.Port, c.Login, c.TunnelEnabled)
		}
	})

	t.Run("tls port", func(t *testing.T) {
		c := Defaults()
		c.TLS = true
		_ = c.Finalize()
		if c.Port != 6697 {
			t.Errorf("port = %d, want 6697", c.Port)
		}
	})

	t.Run("explicit port kept", func(t *testing.T) {
		c := Defaults()
		c.TLS = true
		c.Port = 7000
		_ = c.Finalize()
		if c.Port != 7000 {
			t.Errorf("port = %d, want 7000", c.Port)
		}
	})

	t.Run("tunnel", func(t *testing.T) {
		c := Defaults()
		c.TunnelSpec = "ops@bastion:2200"
		if err := c.Finalize(); err != nil {
			t.Fatal(err)
		}
		if !c.TunnelEnabled || c.TunnelUser != "ops" || c.TunnelHost != "bastion" || c.TunnelPort != 2200 {
			t.Errorf("tunnel = %v %q %q %d", c.TunnelEnabled, c.TunnelUser, c.TunnelHost, c.TunnelPort)
		}
	})

	t.Run("bad tunnel", func(t *testing.T) {
		c := Defaults()
		c.TunnelSpec = "a@b@c"
		var ce *ircerr.ConfigError
		if err := c.Finalize(); !ircerr.As(err, &ce) || ce.Field != "tunnel" {
			t.Errorf("want ConfigError on tunnel, got %v", err)
		}
	})

	t.Run("transport case", func(t *testing.T) {
		c := Defaults()
		c.Transport = "WebSocket"
		_ = c.Finalize()
		if c.Transport != TransportWebSocket {
			t.Errorf("transport = %q", c.Transport)
		}
	})
}

func TestDefaults_Independent(t *testing.T) {
	a := Defaults()
	a.Plugins[0] = "changed"
	if b := Defaults(); b.Plugins[0] == "changed" {
		t.Error("Defaults shares the plugin slice between calls")
	}
}

func TestDump_MasksPassword(t *testing.T) {
	c := Defaults()
	c.Host = "irc.example.net"
	c.Password = "hunter2"

	out, err := Dump(c)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if strings.Contains(s, "hunter2") {
		t.Errorf("password leaked:\n%s", s)
	}
	if !strings.Contains(s, "password: '****'") && !strings.Contains(s, `password: "****"`) {
		t.Errorf("masked password missing:\n%s", s)
	}
	if c.Password != "hunter2" {
		t.Error("Dump modified the caller's config")
	}
}
