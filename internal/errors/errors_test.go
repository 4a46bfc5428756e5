package errors

import (
	"fmt"
	"io"
	"net"
	"testing"
)

func TestTransportError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  TransportError
		want string
	}{
		{
			name: "retryable",
			err:  TransportError{Op: "connect", Addr: "irc.example.net:6667", Err: io.EOF, Retryable: true},
			want: "connect irc.example.net:6667: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  TransportError{Op: "send", Addr: "irc.example.net:6697", Err: fmt.Errorf("broken pipe")},
			want: "send irc.example.net:6697: broken pipe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{Op: "listen", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestSSHError_Format(t *testing.T) {
	err := WrapSSH("handshake", "bastion.example.com", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake bastion.example.com:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSSHError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("auth fail")
	err := WrapSSH("auth", "host", 22, inner)
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "IRC servers usually listen on 6667 or 6697",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: IRC servers usually listen on 6667 or 6697",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "nick",
				Message: "required",
			},
			want: "config: --nick: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestObserverError_Format(t *testing.T) {
	returned := &ObserverError{Kind: "join", Index: 2, Err: fmt.Errorf("boom")}
	if got, want := returned.Error(), "observer 2 for join: boom"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	panicked := &ObserverError{Kind: "privmsg", Index: 0, Panic: "nil map"}
	if got, want := panicked.Error(), "observer 0 for privmsg panicked: nil map"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if Unwrap(panicked) != nil {
		t.Error("panicked observer has no wrapped error")
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("connect", "10.0.0.1:6667", inner)

	if err.Op != "connect" || err.Addr != "10.0.0.1:6667" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable transport", &TransportError{Op: "connect", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable transport", &TransportError{Op: "connect", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth", WrapSSH("auth", "h", 22, ErrAuthFailed), true},
		{"host key", fmt.Errorf("dial: %w", ErrHostKeyMismatch), true},
		{"config", &ConfigError{Field: "nick", Message: "required"}, true},
		{"invalid param", fmt.Errorf("nick %q: %w", "a b", ErrInvalidParam), true},
		{"refused", Wrap("connect", "x", fmt.Errorf("connection refused")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	// Verify sentinel errors are distinct.
	sentinels := []error{
		ErrNotConnected, ErrInvalidParam, ErrRetriesExhausted,
		ErrAuthFailed, ErrHostKeyMismatch, ErrStoreClosed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
