// Package core is the orchestration layer.  It composes a transport,
// the IRC engine and the retry policy into a runnable client and
// provides a builder that assembles one from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  irc  →  core  →  bot  →  cmd (CLI)
//
// The builder in this package is the single place where configuration
// turns into concrete dialers, transports and limits.
package core

import "context"

// Mode is a complete way of running the bot: a single session that ends
// with the connection, or a supervised one that reconnects.  Each mode
// owns its lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
