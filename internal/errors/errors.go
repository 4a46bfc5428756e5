// Package errors provides domain-specific error types for ircbot.
//
// These types carry structured context (operation, address, observer,
// retryability) so the session lifecycle can decide whether a failure
// is worth another connection attempt and so embedding code gets a
// catchable value instead of a log line.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected     = errors.New("not connected")
	ErrInvalidParam     = errors.New("invalid protocol parameter")
	ErrRetriesExhausted = errors.New("connection attempts exhausted")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrHostKeyMismatch  = errors.New("host key mismatch")
	ErrStoreClosed      = errors.New("store is closed")
)

// ── Structured error types ───────────────────────────────────────────

// TransportError represents a failure to connect to, write to or read
// from the IRC server.
type TransportError struct {
	Op        string // "connect", "send", "listen", "handshake"
	Addr      string // server address involved
	Err       error  // underlying error
	Retryable bool   // whether a reconnect attempt may help
}

func (e *TransportError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *TransportError) Unwrap() error { return e.Err }

// SSHError represents a failure reaching the SSH gateway that the IRC
// connection is tunnelled through.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ObserverError records one event observer that returned an error or
// panicked.  Delivery to the remaining observers continues.
type ObserverError struct {
	Kind  string      // event kind being delivered
	Index int         // position of the observer in registration order
	Err   error       // returned error, nil if the observer panicked
	Panic interface{} // recovered panic value, nil if it returned Err
}

func (e *ObserverError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("observer %d for %s panicked: %v", e.Index, e.Kind, e.Panic)
	}
	return fmt.Sprintf("observer %d for %s: %v", e.Index, e.Kind, e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a TransportError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *TransportError {
	return &TransportError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return classifyRetryable(err)
}

// IsPermanent reports whether err can never be fixed by reconnecting
// with the same settings: bad credentials, an unknown host key or an
// invalid configuration.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrHostKeyMismatch) || errors.Is(err, ErrInvalidParam) {
		return true
	}
	var ce *ConfigError
	return errors.As(err, &ce)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// net.OpError with Temporary() hint
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use ircbot/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
