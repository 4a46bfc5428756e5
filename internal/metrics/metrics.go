// Package metrics provides lightweight, lock-free counters for tracking
// the runtime statistics of an IRC session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one engine.
type Collector struct {
	linesIn          atomic.Int64
	linesOut         atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	eventsDispatched atomic.Int64
	observerFailures atomic.Int64
	connectAttempts  atomic.Int64
	reconnects       atomic.Int64
	nickCollisions   atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	sessionStart time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Traffic ──────────────────────────────────────────────────────────

// LineReceived records one inbound protocol line of n bytes.
func (c *Collector) LineReceived(n int) {
	if c == nil {
		return
	}
	c.linesIn.Add(1)
	c.bytesIn.Add(int64(n))
}

// LineSent records one outbound protocol line of n bytes.
func (c *Collector) LineSent(n int) {
	if c == nil {
		return
	}
	c.linesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

// LinesIn returns the number of lines read from the server.
func (c *Collector) LinesIn() int64 {
	if c == nil {
		return 0
	}
	return c.linesIn.Load()
}

// LinesOut returns the number of lines written to the server.
func (c *Collector) LinesOut() int64 {
	if c == nil {
		return 0
	}
	return c.linesOut.Load()
}

// BytesIn returns total bytes received, excluding line terminators.
func (c *Collector) BytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// BytesOut returns total bytes sent, excluding line terminators.
func (c *Collector) BytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Events ───────────────────────────────────────────────────────────

// EventDispatched records one event handed to the dispatcher.
func (c *Collector) EventDispatched() {
	if c == nil {
		return
	}
	c.eventsDispatched.Add(1)
}

// ObserverFailed records an observer that returned an error or panicked.
func (c *Collector) ObserverFailed() {
	if c == nil {
		return
	}
	c.observerFailures.Add(1)
}

// EventsDispatched returns the lifetime event count.
func (c *Collector) EventsDispatched() int64 {
	if c == nil {
		return 0
	}
	return c.eventsDispatched.Load()
}

// ObserverFailures returns the number of isolated observer failures.
func (c *Collector) ObserverFailures() int64 {
	if c == nil {
		return 0
	}
	return c.observerFailures.Load()
}

// ── Session lifecycle ────────────────────────────────────────────────

// ConnectAttempt records one transport connect attempt.  Every attempt
// after the first within a session also counts as a reconnect.
func (c *Collector) ConnectAttempt(attempt int) {
	if c == nil {
		return
	}
	c.connectAttempts.Add(1)
	if attempt > 1 {
		c.reconnects.Add(1)
	}
}

// NickCollision records a 433 reply that triggered a nick retry.
func (c *Collector) NickCollision() {
	if c == nil {
		return
	}
	c.nickCollisions.Add(1)
}

// SessionStarted marks the moment the read loop was entered.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionStart = time.Now()
	c.mu.Unlock()
}

// SessionEnded clears the session start time.
func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionStart = time.Time{}
	c.mu.Unlock()
}

// ConnectAttempts returns the total number of connect attempts.
func (c *Collector) ConnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.connectAttempts.Load()
}

// Reconnects returns the number of connect attempts that were retries.
func (c *Collector) Reconnects() int64 {
	if c == nil {
		return 0
	}
	return c.reconnects.Load()
}

// NickCollisions returns the number of nick retries issued.
func (c *Collector) NickCollisions() int64 {
	if c == nil {
		return 0
	}
	return c.nickCollisions.Load()
}

// SessionUptime returns how long the current session has been in its
// read loop, or zero when no session is live.
func (c *Collector) SessionUptime() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessionStart.IsZero() {
		return 0
	}
	return time.Since(c.sessionStart)
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionUptime    string `json:"session_uptime,omitempty"`
	LinesIn          int64  `json:"lines_in"`
	LinesOut         int64  `json:"lines_out"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	EventsDispatched int64  `json:"events_dispatched"`
	ObserverFailures int64  `json:"observer_failures"`
	ConnectAttempts  int64  `json:"connect_attempts"`
	Reconnects       int64  `json:"reconnects"`
	NickCollisions   int64  `json:"nick_collisions"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		LinesIn:          c.linesIn.Load(),
		LinesOut:         c.linesOut.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		EventsDispatched: c.eventsDispatched.Load(),
		ObserverFailures: c.observerFailures.Load(),
		ConnectAttempts:  c.connectAttempts.Load(),
		Reconnects:       c.reconnects.Load(),
		NickCollisions:   c.nickCollisions.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.sessionStart.IsZero() {
		s.SessionUptime = time.Since(c.sessionStart).Truncate(time.Second).String()
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
