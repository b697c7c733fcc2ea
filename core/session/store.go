package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session exists for the user.
var ErrNotFound = errors.New("session not found")

// ErrVersionConflict is returned when a conditional write loses the
// optimistic-concurrency contest to another writer.
var ErrVersionConflict = errors.New("session version conflict")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("session store unavailable")

// Store persists sessions keyed by user id with inactivity expiry.
//
// PutIfVersion commits s only when the stored version still equals
// expectedVersion; expectedVersion 0 means "create, the key must be absent".
// The caller sets s.Version to the value it wants committed (the expected
// version plus one). Every successful write refreshes the TTL.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	PutIfVersion(ctx context.Context, s *Session, expectedVersion int64, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}
