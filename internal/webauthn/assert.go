package webauthn

import (
	"crypto/sha256"
)

// VerifyAssertion validates an authentication ceremony response against the
// stored credential public key and the expected bindings, and returns the
// authenticator's new signature counter for the caller to persist.
//
// The counter check treats a pair of zero counters as an authenticator that
// does not implement counters; in every other case the new counter must
// strictly exceed the stored one or the credential is considered cloned.
func VerifyAssertion(resp *AssertionResponse, storedPublicKey []byte, storedCounter uint32, expected *Expected) (uint32, error) {
	clientData, err := ParseClientData(resp.ClientDataJSON)
	if err != nil {
		return 0, err
	}
	if err := checkClientData(clientData, ceremonyTypeGet, expected); err != nil {
		return 0, err
	}

	authData, err := ParseAuthenticatorData(resp.AuthenticatorData, false)
	if err != nil {
		return 0, err
	}
	if err := checkAuthData(authData, expected); err != nil {
		return 0, err
	}

	key, err := ParsePublicKey(storedPublicKey)
	if err != nil {
		return 0, err
	}

	// The authenticator signs authenticatorData || SHA-256(clientDataJSON).
	cdHash := sha256.Sum256(resp.ClientDataJSON)
	signed := make([]byte, 0, len(resp.AuthenticatorData)+len(cdHash))
	signed = append(signed, resp.AuthenticatorData...)
	signed = append(signed, cdHash[:]...)

	if err := key.Verify(signed, resp.Signature); err != nil {
		return 0, err
	}

	newCounter := authData.SignCount
	if storedCounter == 0 && newCounter == 0 {
		return 0, nil
	}
	if newCounter <= storedCounter {
		return 0, ErrCloneDetected
	}
	return newCounter, nil
}
