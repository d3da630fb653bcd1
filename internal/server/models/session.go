package models

import "time"

// Session stores only the SHA-256 hash of the opaque session token,
// never the token itself.
type Session struct {
	ID        string
	UserID    string
	TokenHash []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}
