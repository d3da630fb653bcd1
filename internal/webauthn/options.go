package webauthn

import (
	"crypto/rand"
	"encoding/base64"
)

// ChallengeLength is the number of random bytes in a ceremony challenge.
const ChallengeLength = 32

// DefaultTimeoutMillis is the client-side ceremony timeout advertised in
// options.
const DefaultTimeoutMillis = 60000

const (
	userVerificationRequired  = "required"
	userVerificationPreferred = "preferred"
)

// GenerateChallenge returns ChallengeLength cryptographically random bytes.
func GenerateChallenge() ([]byte, error) {
	b := make([]byte, ChallengeLength)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeChallenge renders raw challenge bytes the way they travel in options
// and client data: unpadded base64url.
func EncodeChallenge(challenge []byte) string {
	return base64.RawURLEncoding.EncodeToString(challenge)
}

// DecodeChallenge reverses EncodeChallenge.
func DecodeChallenge(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// RelyingParty identifies this service in creation options.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity describes the registering user in creation options.
type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// CredentialParam advertises an acceptable credential algorithm.
type CredentialParam struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

// CredentialDescriptor references an existing credential in allow/exclude
// lists. ID is base64url.
type CredentialDescriptor struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

// AuthenticatorSelection narrows acceptable authenticators.
type AuthenticatorSelection struct {
	ResidentKey      string `json:"residentKey,omitempty"`
	UserVerification string `json:"userVerification"`
}

// CreationOptions is the serialized parameter block for
// navigator.credentials.create.
type CreationOptions struct {
	Challenge              string                 `json:"challenge"`
	RP                     RelyingParty           `json:"rp"`
	User                   UserEntity             `json:"user"`
	PubKeyCredParams       []CredentialParam      `json:"pubKeyCredParams"`
	Timeout                uint                   `json:"timeout"`
	Attestation            string                 `json:"attestation"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	ExcludeCredentials     []CredentialDescriptor `json:"excludeCredentials,omitempty"`
}

// RequestOptions is the serialized parameter block for
// navigator.credentials.get.
type RequestOptions struct {
	Challenge        string                 `json:"challenge"`
	Timeout          uint                   `json:"timeout"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials,omitempty"`
	UserVerification string                 `json:"userVerification"`
}

// NewCreationOptions assembles registration ceremony options advertising the
// two algorithms this relying party verifies.
func NewCreationOptions(rpID, rpName string, userID []byte, username string, challenge []byte, exclude []CredentialDescriptor, requireUV bool) *CreationOptions {
	return &CreationOptions{
		Challenge: EncodeChallenge(challenge),
		RP:        RelyingParty{ID: rpID, Name: rpName},
		User: UserEntity{
			ID:          base64.RawURLEncoding.EncodeToString(userID),
			Name:        username,
			DisplayName: username,
		},
		PubKeyCredParams: []CredentialParam{
			{Type: publicKeyCredentialType, Alg: AlgES256},
			{Type: publicKeyCredentialType, Alg: AlgRS256},
		},
		Timeout:     DefaultTimeoutMillis,
		Attestation: AttestationFormatNone,
		AuthenticatorSelection: AuthenticatorSelection{
			ResidentKey:      userVerificationPreferred,
			UserVerification: userVerification(requireUV),
		},
		ExcludeCredentials: exclude,
	}
}

// NewRequestOptions assembles authentication ceremony options with the
// caller-supplied allow-list.
func NewRequestOptions(rpID string, challenge []byte, allow []CredentialDescriptor, requireUV bool) *RequestOptions {
	return &RequestOptions{
		Challenge:        EncodeChallenge(challenge),
		Timeout:          DefaultTimeoutMillis,
		RPID:             rpID,
		AllowCredentials: allow,
		UserVerification: userVerification(requireUV),
	}
}

// NewCredentialDescriptor wraps a stored credential id for allow/exclude
// lists.
func NewCredentialDescriptor(credentialID string, transports []string) CredentialDescriptor {
	return CredentialDescriptor{
		Type:       publicKeyCredentialType,
		ID:         credentialID,
		Transports: transports,
	}
}

func userVerification(required bool) string {
	if required {
		return userVerificationRequired
	}
	return userVerificationPreferred
}
