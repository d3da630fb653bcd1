package models

import "time"

// Credential is a registered public key credential. CredentialID is the
// base64url encoded authenticator credential ID and PublicKey holds the
// raw COSE key bytes as received during registration.
type Credential struct {
	ID           string
	UserID       string
	CredentialID string
	PublicKey    []byte
	Counter      uint32
	Transports   []string
	CreatedAt    time.Time
}
