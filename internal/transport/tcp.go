package transport

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// TCPDialer establishes TCP connections, honouring ALL_PROXY and
// NO_PROXY from the environment unless Direct is set.
type TCPDialer struct {
	Timeout time.Duration
	Direct  bool
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	base := &net.Dialer{Timeout: d.Timeout}
	if d.Direct {
		return base.DialContext(ctx, network, address)
	}
	if cd, ok := proxy.FromEnvironmentUsing(base).(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return base.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
