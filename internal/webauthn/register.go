package webauthn

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// Expected carries the relying-party bindings a ceremony response is
// verified against.
type Expected struct {
	// Challenge is the raw challenge issued for this ceremony.
	Challenge []byte
	// Origin must match the client data origin exactly.
	Origin string
	// RPID is the relying-party identifier whose SHA-256 binds the
	// authenticator data.
	RPID string
	// RequireUserVerification upgrades the UV flag from optional to
	// mandatory.
	RequireUserVerification bool
}

// RegisteredCredential is the outcome of a successful registration ceremony,
// ready to be persisted by the caller.
type RegisteredCredential struct {
	CredentialID []byte
	PublicKey    []byte // raw COSE key
	SignCount    uint32
	Transports   []string
}

// VerifyRegistration validates a registration ceremony response against the
// expected bindings and extracts the new credential. The public key is
// trusted as presented; attestation statements are not evaluated. The caller
// remains responsible for rejecting credential ids that already exist.
func VerifyRegistration(resp *RegistrationResponse, expected *Expected) (*RegisteredCredential, error) {
	clientData, err := ParseClientData(resp.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	if err := checkClientData(clientData, ceremonyTypeCreate, expected); err != nil {
		return nil, err
	}

	attObj, err := ParseAttestationObject(resp.AttestationObject)
	if err != nil {
		return nil, err
	}
	authData := attObj.AuthData

	if err := checkAuthData(authData, expected); err != nil {
		return nil, err
	}

	if !bytes.Equal(authData.CredentialID, resp.CredentialID) {
		return nil, fmt.Errorf("%w: credential id does not match attested data", ErrMalformedCeremonyData)
	}

	// Reject unknown key algorithms at registration time rather than at
	// first login.
	if _, err := ParsePublicKey(authData.PublicKey); err != nil {
		return nil, err
	}

	return &RegisteredCredential{
		CredentialID: authData.CredentialID,
		PublicKey:    authData.PublicKey,
		SignCount:    authData.SignCount,
		Transports:   resp.Transports,
	}, nil
}

func checkClientData(cd *ClientData, wantType string, expected *Expected) error {
	if cd.CrossOrigin || cd.TopOrigin != "" {
		return fmt.Errorf("%w: cross-origin responses are not accepted", ErrOriginMismatch)
	}
	if cd.Type != wantType {
		return fmt.Errorf("%w: got %q, want %q", ErrCeremonyTypeMismatch, cd.Type, wantType)
	}
	if subtle.ConstantTimeEq(int32(len(cd.Challenge)), int32(len(expected.Challenge))) == 0 ||
		subtle.ConstantTimeCompare(cd.Challenge, expected.Challenge) == 0 {
		return ErrChallengeMismatch
	}
	if cd.Origin != expected.Origin {
		return fmt.Errorf("%w: got %q", ErrOriginMismatch, cd.Origin)
	}
	return nil
}

func checkAuthData(ad *AuthenticatorData, expected *Expected) error {
	rpIDHash := sha256.Sum256([]byte(expected.RPID))
	if subtle.ConstantTimeCompare(ad.RPIDHash, rpIDHash[:]) == 0 {
		return ErrRPIDMismatch
	}
	if !ad.UserPresent() {
		return fmt.Errorf("%w: user not present", ErrFlagsRejected)
	}
	if expected.RequireUserVerification && !ad.UserVerified() {
		return fmt.Errorf("%w: user not verified", ErrFlagsRejected)
	}
	return nil
}
