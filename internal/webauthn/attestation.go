package webauthn

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// AttestationFormatNone is the attestation statement format this relying
// party operates with. Other formats decode fine but their statements carry
// no weight here.
const AttestationFormatNone = "none"

type attestationObjectCBOR struct {
	AuthData []byte         `cbor:"authData"`
	Fmt      string         `cbor:"fmt"`
	AttStmt  map[string]any `cbor:"attStmt"`
}

// AttestationObject is a decoded registration attestation object. The
// attestation statement is retained but never evaluated (attestation "none"
// trust policy).
type AttestationObject struct {
	Format      string
	AttStmt     map[string]any
	AuthData    *AuthenticatorData
	RawAuthData []byte
}

// ParseAttestationObject decodes the CBOR attestation object and its embedded
// authenticator data, which must carry the attested credential data section.
func ParseAttestationObject(raw []byte) (*AttestationObject, error) {
	var obj attestationObjectCBOR
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: attestation object: %v", ErrMalformedCeremonyData, err)
	}

	authData, err := ParseAuthenticatorData(obj.AuthData, true)
	if err != nil {
		return nil, err
	}

	return &AttestationObject{
		Format:      obj.Fmt,
		AttStmt:     obj.AttStmt,
		AuthData:    authData,
		RawAuthData: obj.AuthData,
	}, nil
}
