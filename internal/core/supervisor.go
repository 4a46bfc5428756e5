package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ircbot/config"
	ircerr "ircbot/internal/errors"
	"ircbot/internal/irc"
	"ircbot/internal/retry"
	"ircbot/util"
)

// errNoWelcome marks a session that ended before the server accepted
// the registration.
var errNoWelcome = errors.New("session ended before registration completed")

// Session is what a Supervisor restarts.  *Client satisfies it.
type Session interface {
	Run(ctx context.Context) error
	Events() *irc.Dispatcher
}

// Supervisor keeps a session alive across disconnects.  A session that
// never reached the server's welcome counts as a failure; enough of
// them in a row open the breaker and pause reconnecting.  Permanent
// errors (bad credentials, host key mismatch) stop the supervisor.
type Supervisor struct {
	Session Session
	Breaker *retry.Breaker
	// Delay is the pause between a session ending and the next one.
	Delay  time.Duration
	Logger *util.Logger

	welcomed atomic.Bool
	sessions int
}

// NewSupervisor wraps s with the breaker and delay from cfg.
func NewSupervisor(cfg *config.Config, s Session, logger *util.Logger) *Supervisor {
	log := logger.Named("supervisor")
	b := retry.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown)
	b.OnStateChange = func(from, to retry.State) {
		log.Verbose("breaker %s → %s", from, to)
	}
	return &Supervisor{
		Session: s,
		Breaker: b,
		Delay:   cfg.ReconnectDelay,
		Logger:  log,
	}
}

// Sessions returns how many sessions have been started.
func (s *Supervisor) Sessions() int { return s.sessions }

// Run starts sessions until ctx is cancelled or one fails permanently.
// It returns ctx.Err() on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	id := s.Session.Events().OnConnected(func(*irc.Connected) error {
		s.welcomed.Store(true)
		return nil
	})
	defer s.Session.Events().Unsubscribe(id)

	for {
		if wait, ok := s.Breaker.Allow(); !ok {
			s.Logger.Warn("%d sessions failed in a row; pausing for %s",
				s.Breaker.Failures(), wait.Round(time.Second))
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		s.sessions++
		s.welcomed.Store(false)
		err := s.Session.Run(ctx)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, irc.ErrRunning) || ircerr.IsPermanent(err) {
			return fmt.Errorf("giving up: %w", err)
		}

		if s.welcomed.Load() {
			s.Breaker.Record(nil)
		} else {
			if err == nil {
				err = errNoWelcome
			}
			s.Breaker.Record(err)
		}

		if err != nil {
			s.Logger.Warn("session %d ended: %v", s.sessions, err)
		} else {
			s.Logger.Info("session %d ended", s.sessions)
		}
		s.Logger.Verbose("reconnecting in %s", s.Delay)
		if err := sleep(ctx, s.Delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
