package webauthn

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	rpIDHashLen     = 32
	signCountLen    = 4
	aaguidLen       = 16
	credIDLengthLen = 2

	authDataMinLen = rpIDHashLen + 1 + signCountLen
)

// Authenticator data flag bits.
const (
	flagUserPresent    = 0b00000001
	flagUserVerified   = 0b00000100
	flagAttestedData   = 0b01000000
	flagExtensionData  = 0b10000000
)

// AuthenticatorData is the decoded binary authenticator data structure.
// CredentialID and PublicKey are present only when the attested credential
// data section was included (registration ceremonies).
type AuthenticatorData struct {
	RPIDHash  []byte
	Flags     byte
	SignCount uint32

	AAGUID       []byte
	CredentialID []byte
	PublicKey    []byte // raw COSE key bytes
}

// UserPresent reports the UP flag.
func (a *AuthenticatorData) UserPresent() bool { return a.Flags&flagUserPresent != 0 }

// UserVerified reports the UV flag.
func (a *AuthenticatorData) UserVerified() bool { return a.Flags&flagUserVerified != 0 }

// AttestedDataIncluded reports the AT flag.
func (a *AuthenticatorData) AttestedDataIncluded() bool { return a.Flags&flagAttestedData != 0 }

// ParseAuthenticatorData decodes the fixed header, the optional attested
// credential data section and optional extensions. requireAttested demands
// the attested credential data section (registration); trailing bytes are
// rejected in all cases.
func ParseAuthenticatorData(raw []byte, requireAttested bool) (*AuthenticatorData, error) {
	if len(raw) < authDataMinLen {
		return nil, fmt.Errorf("%w: authenticator data too short", ErrMalformedCeremonyData)
	}

	ad := &AuthenticatorData{
		RPIDHash:  raw[:rpIDHashLen],
		Flags:     raw[rpIDHashLen],
		SignCount: binary.BigEndian.Uint32(raw[rpIDHashLen+1 : authDataMinLen]),
	}
	p := authDataMinLen

	if requireAttested && !ad.AttestedDataIncluded() {
		return nil, fmt.Errorf("%w: attested credential data missing", ErrMalformedCeremonyData)
	}

	if ad.AttestedDataIncluded() {
		if len(raw) < p+aaguidLen+credIDLengthLen {
			return nil, fmt.Errorf("%w: attested credential data truncated", ErrMalformedCeremonyData)
		}
		ad.AAGUID = raw[p : p+aaguidLen]
		p += aaguidLen

		credIDLen := int(binary.BigEndian.Uint16(raw[p : p+credIDLengthLen]))
		p += credIDLengthLen
		if credIDLen == 0 || len(raw) < p+credIDLen {
			return nil, fmt.Errorf("%w: credential id truncated", ErrMalformedCeremonyData)
		}
		ad.CredentialID = raw[p : p+credIDLen]
		p += credIDLen

		// The COSE key is a single CBOR value of unknown length; decode it
		// as a raw message to find where it ends.
		var rawKey cbor.RawMessage
		if err := cbor.NewDecoder(bytes.NewReader(raw[p:])).Decode(&rawKey); err != nil {
			return nil, fmt.Errorf("%w: credential public key: %v", ErrMalformedCeremonyData, err)
		}
		ad.PublicKey = raw[p : p+len(rawKey)]
		p += len(rawKey)
	}

	if ad.Flags&flagExtensionData != 0 {
		var rawExt cbor.RawMessage
		if err := cbor.NewDecoder(bytes.NewReader(raw[p:])).Decode(&rawExt); err != nil {
			return nil, fmt.Errorf("%w: extension data: %v", ErrMalformedCeremonyData, err)
		}
		p += len(rawExt)
	}

	if p != len(raw) {
		return nil, fmt.Errorf("%w: trailing bytes after authenticator data", ErrMalformedCeremonyData)
	}

	return ad, nil
}
