// Package store persists bot state that should outlive a process: the
// channels to rejoin, the auto-response table and the access list.  It is a thin layer
// over a buntdb key/value file; the path ":memory:" keeps everything in
// memory.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"

	ircerr "ircbot/internal/errors"
)

// MemoryPath opens a store that is discarded on Close.
const MemoryPath = ":memory:"

const (
	keyChannel  = "channel %s"
	keyResponse = "response %s"
	keyAccess   = "access %s"

	channelPattern  = "channel *"
	responsePattern = "response *"
	accessPattern   = "access *"
)

// Store is safe for concurrent use.
type Store struct {
	db *buntdb.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying file.
func (s *Store) Close() error {
	return translate(s.db.Close())
}

// ── Channels ─────────────────────────────────────────────────────────

// AddChannel remembers name.  Adding a known channel is a no-op.
func (s *Store) AddChannel(name string) error {
	return translate(s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fmt.Sprintf(keyChannel, strings.ToLower(name)), name, nil)
		return err
	}))
}

// RemoveChannel forgets name.  Removing an unknown channel is not an
// error.
func (s *Store) RemoveChannel(name string) error {
	return translate(s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(fmt.Sprintf(keyChannel, strings.ToLower(name)))
		return err
	}))
}

// Channels returns the remembered channels sorted by key.
func (s *Store) Channels() (result []string, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(channelPattern, func(_, value string) bool {
			result = append(result, value)
			return true
		})
	})
	return result, translate(err)
}

// ── Auto-responses ───────────────────────────────────────────────────

// SetResponse stores text as the reply to trigger, replacing any
// previous one.  The trigger is kept as typed; callers match it
// case-insensitively.
func (s *Store) SetResponse(trigger, text string) error {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return fmt.Errorf("empty trigger: %w", ircerr.ErrInvalidParam)
	}
	return translate(s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fmt.Sprintf(keyResponse, trigger), text, nil)
		return err
	}))
}

// DeleteResponse removes trigger and reports whether it existed.
func (s *Store) DeleteResponse(trigger string) (bool, error) {
	return s.delete(fmt.Sprintf(keyResponse, strings.TrimSpace(trigger)))
}

// Responses returns the whole trigger → text table.
func (s *Store) Responses() (map[string]string, error) {
	return s.table(responsePattern, "response ")
}

// ── Access list ──────────────────────────────────────────────────────

// SetAccess grants level to every user matching mask, replacing any
// previous grant.  Masks are stored lowercased.
func (s *Store) SetAccess(mask, level string) error {
	mask = strings.ToLower(strings.TrimSpace(mask))
	if mask == "" || strings.ContainsAny(mask, " \t") {
		return fmt.Errorf("access mask %q: %w", mask, ircerr.ErrInvalidParam)
	}
	return translate(s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fmt.Sprintf(keyAccess, mask), level, nil)
		return err
	}))
}

// DeleteAccess revokes the grant for mask and reports whether it
// existed.
func (s *Store) DeleteAccess(mask string) (bool, error) {
	return s.delete(fmt.Sprintf(keyAccess, strings.ToLower(strings.TrimSpace(mask))))
}

// Access returns the mask → level table.
func (s *Store) Access() (map[string]string, error) {
	return s.table(accessPattern, "access ")
}

// ── helpers ──────────────────────────────────────────────────────────

func (s *Store) delete(key string) (bool, error) {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (s *Store) table(pattern, prefix string) (map[string]string, error) {
	result := make(map[string]string)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(pattern, func(key, value string) bool {
			result[strings.TrimPrefix(key, prefix)] = value
			return true
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// translate maps buntdb errors onto the package's sentinels.  Deleting
// a missing key is not an error.
func translate(err error) error {
	switch {
	case err == nil, errors.Is(err, buntdb.ErrNotFound):
		return nil
	case errors.Is(err, buntdb.ErrDatabaseClosed):
		return ircerr.ErrStoreClosed
	default:
		return err
	}
}
