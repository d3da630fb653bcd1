package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	ceremonyTypeCreate = "webauthn.create"
	ceremonyTypeGet    = "webauthn.get"
)

// ClientData is the decoded clientDataJSON of an authenticator response.
// Challenge holds the raw challenge bytes after base64url decoding.
type ClientData struct {
	Type        string
	Challenge   []byte
	Origin      string
	CrossOrigin bool
	TopOrigin   string
	Raw         []byte
}

type clientDataJSON struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin"`
	TopOrigin   string `json:"topOrigin"`
}

// ParseClientData decodes clientDataJSON bytes. It is a structural transform
// only; challenge, origin and type checks belong to the verifiers.
func ParseClientData(raw []byte) (*ClientData, error) {
	var cd clientDataJSON
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, fmt.Errorf("%w: client data: %v", ErrMalformedCeremonyData, err)
	}

	challenge, err := base64.RawURLEncoding.DecodeString(cd.Challenge)
	if err != nil {
		return nil, fmt.Errorf("%w: client data challenge encoding: %v", ErrMalformedCeremonyData, err)
	}

	return &ClientData{
		Type:        cd.Type,
		Challenge:   challenge,
		Origin:      cd.Origin,
		CrossOrigin: cd.CrossOrigin,
		TopOrigin:   cd.TopOrigin,
		Raw:         raw,
	}, nil
}
