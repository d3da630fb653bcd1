package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const publicKeyCredentialType = "public-key"

// RegistrationResponse is a decoded registration ceremony payload as posted
// by the client. All byte fields are already base64url-decoded.
type RegistrationResponse struct {
	CredentialID      []byte
	ClientDataJSON    []byte
	AttestationObject []byte
	Transports        []string
}

// AssertionResponse is a decoded authentication ceremony payload.
type AssertionResponse struct {
	CredentialID      []byte
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	UserHandle        []byte
}

type credentialJSON struct {
	ID    string `json:"id"`
	RawID string `json:"rawId"`
	Type  string `json:"type"`

	Response struct {
		ClientDataJSON    string   `json:"clientDataJSON"`
		AttestationObject string   `json:"attestationObject"`
		AuthenticatorData string   `json:"authenticatorData"`
		Signature         string   `json:"signature"`
		UserHandle        string   `json:"userHandle"`
		Transports        []string `json:"transports"`
	} `json:"response"`
}

// ParseRegistrationResponse decodes the JSON envelope a browser produces for
// navigator.credentials.create and base64url-decodes its binary fields.
func ParseRegistrationResponse(raw []byte) (*RegistrationResponse, error) {
	cred, err := parseCredentialJSON(raw)
	if err != nil {
		return nil, err
	}
	if cred.Response.AttestationObject == "" {
		return nil, fmt.Errorf("%w: missing attestation object", ErrMalformedCeremonyData)
	}

	credID, err := decodeBase64URL(cred.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: credential id encoding: %v", ErrMalformedCeremonyData, err)
	}
	clientData, err := decodeBase64URL(cred.Response.ClientDataJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: client data encoding: %v", ErrMalformedCeremonyData, err)
	}
	attObj, err := decodeBase64URL(cred.Response.AttestationObject)
	if err != nil {
		return nil, fmt.Errorf("%w: attestation object encoding: %v", ErrMalformedCeremonyData, err)
	}

	return &RegistrationResponse{
		CredentialID:      credID,
		ClientDataJSON:    clientData,
		AttestationObject: attObj,
		Transports:        cred.Response.Transports,
	}, nil
}

// ParseAssertionResponse decodes the JSON envelope a browser produces for
// navigator.credentials.get and base64url-decodes its binary fields.
func ParseAssertionResponse(raw []byte) (*AssertionResponse, error) {
	cred, err := parseCredentialJSON(raw)
	if err != nil {
		return nil, err
	}
	if cred.Response.AuthenticatorData == "" || cred.Response.Signature == "" {
		return nil, fmt.Errorf("%w: missing assertion fields", ErrMalformedCeremonyData)
	}

	credID, err := decodeBase64URL(cred.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: credential id encoding: %v", ErrMalformedCeremonyData, err)
	}
	clientData, err := decodeBase64URL(cred.Response.ClientDataJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: client data encoding: %v", ErrMalformedCeremonyData, err)
	}
	authData, err := decodeBase64URL(cred.Response.AuthenticatorData)
	if err != nil {
		return nil, fmt.Errorf("%w: authenticator data encoding: %v", ErrMalformedCeremonyData, err)
	}
	sig, err := decodeBase64URL(cred.Response.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding: %v", ErrMalformedCeremonyData, err)
	}

	var userHandle []byte
	if cred.Response.UserHandle != "" {
		userHandle, err = decodeBase64URL(cred.Response.UserHandle)
		if err != nil {
			return nil, fmt.Errorf("%w: user handle encoding: %v", ErrMalformedCeremonyData, err)
		}
	}

	return &AssertionResponse{
		CredentialID:      credID,
		ClientDataJSON:    clientData,
		AuthenticatorData: authData,
		Signature:         sig,
		UserHandle:        userHandle,
	}, nil
}

func parseCredentialJSON(raw []byte) (*credentialJSON, error) {
	var cred credentialJSON
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("%w: credential envelope: %v", ErrMalformedCeremonyData, err)
	}
	if cred.Type != publicKeyCredentialType {
		return nil, fmt.Errorf("%w: unexpected credential type %q", ErrMalformedCeremonyData, cred.Type)
	}
	if cred.ID == "" || cred.Response.ClientDataJSON == "" {
		return nil, fmt.Errorf("%w: missing credential fields", ErrMalformedCeremonyData)
	}
	return &cred, nil
}

// decodeBase64URL accepts both padded and unpadded base64url, since clients
// are inconsistent about padding.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
