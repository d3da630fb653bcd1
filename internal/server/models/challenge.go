package models

import "time"

const (
	ChallengeKindRegistration   = "registration"
	ChallengeKindAuthentication = "authentication"
)

// Challenge is a single-use ceremony challenge. Value is the base64url
// encoded random challenge handed to the client.
type Challenge struct {
	ID        string
	UserID    string
	Kind      string
	Value     string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}
