package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	ircerr "ircbot/internal/errors"
	"ircbot/util"
)

// SSHConfig describes the SSH gateway the IRC connection is routed
// through.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

// SSHDialer opens connections from the far side of an SSH gateway.  The
// SSH client is connected lazily on the first Dial and re-established
// on a later Dial if the gateway drops, so engine reconnects go through
// a fresh client.
type SSHDialer struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer returns a dialer for the gateway in cfg.
func NewSSHDialer(cfg *SSHConfig, logger *util.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHDialer{config: cfg, logger: logger.Named("ssh")}
}

// Dial connects to address through the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("dialing %s %s through %s", network, address, d.config.Host)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, ircerr.Wrap("connect", address, err)
	}
	return conn, nil
}

// Close tears down the SSH client, if any.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *SSHDialer) connect(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}

	cfg := d.config
	auth, err := BuildAuthMethods(cfg)
	if err != nil {
		return nil, ircerr.WrapSSH("auth", cfg.Host, cfg.Port, err)
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, ircerr.WrapSSH("hostkey", cfg.Host, cfg.Port, err)
	}

	addr := util.FormatAddr(cfg.Host, cfg.Port)
	d.logger.Verbose("connecting to gateway %s as %s", addr, cfg.User)

	var dialer net.Dialer
	dialer.Timeout = cfg.ConnTimeout
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ircerr.Wrap("connect", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.ConnTimeout,
	})
	if err != nil {
		tcpConn.Close()
		return nil, ircerr.WrapSSH("handshake", cfg.Host, cfg.Port, classifyHandshake(err))
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	d.client = client
	go d.watch(client)
	d.logger.Verbose("gateway connected")
	return client, nil
}

// watch forgets client once the gateway connection ends.
func (d *SSHDialer) watch(client *ssh.Client) {
	err := client.Wait()
	d.mu.Lock()
	if d.client == client {
		d.client = nil
	}
	d.mu.Unlock()
	d.logger.Debug("gateway closed: %v", err)
}

// classifyHandshake tags failures that another attempt cannot fix.
func classifyHandshake(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return fmt.Errorf("%w: %v", ircerr.ErrHostKeyMismatch, err)
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %v", ircerr.ErrAuthFailed, err)
	}
	return err
}
