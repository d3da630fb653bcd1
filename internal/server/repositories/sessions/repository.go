// Package sessions declares the server-side repository contract for
// managing opaque login sessions in persistent storage. Only the SHA-256
// hash of the session token is ever stored.
package sessions

import (
	"context"
	"time"

	"passkeyd/internal/server/models"
)

// Repository defines operations for issuing, resolving, and revoking sessions.
type Repository interface {
	// Create stores a new session for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, tokenHash []byte, validity time.Duration) error

	// Find looks up an unexpired session by its token hash. A missing or
	// expired session reports a not-found error.
	Find(ctx context.Context, tokenHash []byte, now time.Time) (*models.Session, error)

	// Delete removes a session by its token hash. Deleting a non-existent
	// session is not an error.
	Delete(ctx context.Context, tokenHash []byte) error

	// DeleteExpired removes all sessions that have passed their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
