package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/argon2"

	"passkeyd/internal/common"
)

const sessionTokenLength = 32

// signingKeySalt is a fixed application salt. The derived key must be
// stable across restarts so previously issued JWTs stay verifiable.
var signingKeySalt = []byte("passkeyd/jwt-signing-key")

// DeriveSigningKey stretches the configured secret into a 32-byte HMAC
// signing key, so a short or low-entropy configured secret does not become
// the HMAC key directly. The intermediate copy of the secret is zeroed
// before returning.
func DeriveSigningKey(secret string) []byte {
	buf := []byte(secret)
	key := argon2.IDKey(buf, signingKeySalt, 1, 64*1024, 4, 32)
	common.WipeByteArray(buf)
	return key
}

// NewSessionToken generates a fresh opaque session token and the SHA-256
// hash under which it is persisted. The plaintext token goes to the client
// only, the hash goes to the database.
func NewSessionToken() (string, []byte) {
	raw := common.GenerateRandByteArray(sessionTokenLength)
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, HashSessionToken(token)
}

// HashSessionToken returns the SHA-256 hash used to look the token up.
func HashSessionToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
