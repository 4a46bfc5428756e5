package core

import (
	"golang.org/x/time/rate"

	"ircbot/config"
	"ircbot/internal/irc"
	"ircbot/internal/metrics"
	"ircbot/internal/retry"
	"ircbot/internal/session"
	"ircbot/internal/transport"
	"ircbot/util"
)

// shutdowner is a transport that also owns its dialer.
type shutdowner interface {
	transport.Transport
	Shutdown() error
}

// Client is an engine together with the transport and dialer it was
// built with.  It runs a single session; wrap it in a Supervisor to
// keep reconnecting.
type Client struct {
	*irc.Engine
	transport shutdowner
}

// Shutdown closes the connection and releases the dialer (an SSH
// gateway session, for example).
func (c *Client) Shutdown() error {
	return c.transport.Shutdown()
}

// Build constructs a Client from the given configuration.  cfg must
// have been finalized and validated.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (*Client, error) {
	t := buildTransport(cfg, logger)

	engine, err := irc.New(irc.Options{
		Server: session.Server{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Secure:   cfg.TLS,
			Password: cfg.Password,
		},
		User: session.User{
			Nick:  cfg.Nick,
			Login: cfg.Login,
		},
		Transport:       t,
		Logger:          logger,
		Metrics:         m,
		Backoff:         buildBackoff(cfg),
		ChannelPrefixes: cfg.ChannelPrefixes,
		Limiter:         buildLimiter(cfg),
	})
	if err != nil {
		_ = t.Shutdown()
		return nil, err
	}
	return &Client{Engine: engine, transport: t}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}

	return &transport.TCPDialer{
		Timeout: cfg.Timeout,
		Direct:  cfg.NoProxy,
	}
}

// buildTransport selects the line transport.
func buildTransport(cfg *config.Config, logger *util.Logger) shutdowner {
	dialer := buildDialer(cfg, logger)
	if cfg.Transport == config.TransportWebSocket {
		ws := transport.NewWebSocket(cfg.WebSocketPath, dialer, logger)
		ws.InsecureSkipVerify = cfg.TLSSkipVerify
		return ws
	}
	s := transport.NewStream(dialer, logger)
	s.InsecureSkipVerify = cfg.TLSSkipVerify
	return s
}

func buildBackoff(cfg *config.Config) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: cfg.ReconnectDelay,
		MaxDelay:     cfg.ReconnectMaxDelay,
		Multiplier:   2.0,
		MaxAttempts:  cfg.ReconnectAttempts,
		Jitter:       true,
	}
}

// buildLimiter returns nil, meaning unlimited, when flood control is off.
func buildLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.FloodRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.FloodRate), cfg.FloodBurst)
}
