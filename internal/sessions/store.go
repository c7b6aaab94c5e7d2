// Package sessions maps opaque session identifiers to user ids.
//
// Sessions never expire; they are removed only by Revoke. MemoryStore keeps
// sessions in a mutex-guarded map that is lost on restart. RedisStore keeps
// them as Redis keys without a TTL so several processes can share them.
// SQLiteStore writes them to the application database so they survive
// restarts without extra infrastructure.
//
// Stores are explicit values. Construct one at startup and pass it to the
// components that need it.
package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrIDCollision is returned when a freshly generated identifier already
// exists after every retry.
var ErrIDCollision = errors.New("session id collision")

// maxCreateAttempts bounds identifier generation retries.
const maxCreateAttempts = 3

// Store resolves session identifiers to user ids.
type Store interface {
	// Create opens a new session for userID and returns its identifier.
	Create(ctx context.Context, userID uint) (string, error)
	// Resolve returns the user id owning the session. Unknown identifiers
	// report found=false without an error.
	Resolve(ctx context.Context, id string) (userID uint, found bool, err error)
	// Revoke removes the session. Revoking an unknown id is a no-op.
	Revoke(ctx context.Context, id string) error
}

// newID returns a random UUIDv4 string drawn from crypto/rand.
func newID() string {
	return uuid.NewString()
}
