// Package session provides storage backends for login sessions.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Lookup for unknown, revoked or expired sessions.
var ErrNotFound = errors.New("session not found or expired")

// Store keeps session id -> user id mappings until they expire.
type Store interface {
	Save(ctx context.Context, id, userID string, expiresAt time.Time) error
	Lookup(ctx context.Context, id string) (string, error)
	Revoke(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
