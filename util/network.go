package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Standard IRC ports.
const (
	PlainPort  = 6667
	SecurePort = 6697
)

// DefaultPort returns the conventional IRC port for a plain or TLS
// connection.
func DefaultPort(secure bool) int {
	if secure {
		return SecurePort
	}
	return PlainPort
}

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitAddr parses "host", "host:port", "[v6]" or "[v6]:port".  A
// missing port is reported as defaultPort.
func SplitAddr(addr string, defaultPort int) (string, int, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("empty address")
	}

	// Bare IPv6 literal without brackets or port.
	if strings.Count(addr, ":") > 1 && !strings.HasPrefix(addr, "[") {
		if net.ParseIP(addr) == nil {
			return "", 0, fmt.Errorf("invalid address %q", addr)
		}
		return addr, defaultPort, nil
	}

	colon := strings.LastIndexByte(addr, ':')
	bracket := strings.LastIndexByte(addr, ']')
	if colon <= bracket {
		return strings.Trim(addr, "[]"), defaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid address %q: missing host", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
