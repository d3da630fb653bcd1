package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE algorithm identifiers supported by this relying party.
const (
	AlgES256 = -7
	AlgRS256 = -257
)

const (
	coseKeyTypeEC2 = 2
	coseKeyTypeRSA = 3

	coseCurveP256 = 1
)

type coseKeyHeader struct {
	Kty int64 `cbor:"1,keyasint"`
	Alg int64 `cbor:"3,keyasint"`
}

type coseEC2Params struct {
	Crv int64  `cbor:"-1,keyasint"`
	X   []byte `cbor:"-2,keyasint"`
	Y   []byte `cbor:"-3,keyasint"`
}

type coseRSAParams struct {
	N []byte `cbor:"-1,keyasint"`
	E []byte `cbor:"-2,keyasint"`
}

// PublicKey is an algorithm-tagged credential public key decoded from its
// COSE/CBOR form.
type PublicKey struct {
	Alg int64

	ec  *ecdsa.PublicKey
	rsa *rsa.PublicKey
}

// ParsePublicKey decodes a COSE key. Only EC2/P-256 with ES256 and RSA with
// RS256 are accepted; anything else is malformed ceremony data.
func ParsePublicKey(raw []byte) (*PublicKey, error) {
	var hdr coseKeyHeader
	if err := cbor.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("%w: cose key: %v", ErrMalformedCeremonyData, err)
	}

	switch hdr.Kty {
	case coseKeyTypeEC2:
		if hdr.Alg != AlgES256 {
			return nil, fmt.Errorf("%w: unsupported ec2 algorithm %d", ErrMalformedCeremonyData, hdr.Alg)
		}
		var p coseEC2Params
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: ec2 key: %v", ErrMalformedCeremonyData, err)
		}
		pk, err := ec2PublicKey(&p)
		if err != nil {
			return nil, err
		}
		return &PublicKey{Alg: AlgES256, ec: pk}, nil
	case coseKeyTypeRSA:
		if hdr.Alg != AlgRS256 {
			return nil, fmt.Errorf("%w: unsupported rsa algorithm %d", ErrMalformedCeremonyData, hdr.Alg)
		}
		var p coseRSAParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: rsa key: %v", ErrMalformedCeremonyData, err)
		}
		pk, err := rsaPublicKey(&p)
		if err != nil {
			return nil, err
		}
		return &PublicKey{Alg: AlgRS256, rsa: pk}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported cose key type %d", ErrMalformedCeremonyData, hdr.Kty)
	}
}

func ec2PublicKey(p *coseEC2Params) (*ecdsa.PublicKey, error) {
	if p.Crv != coseCurveP256 {
		return nil, fmt.Errorf("%w: unsupported ec2 curve %d", ErrMalformedCeremonyData, p.Crv)
	}
	if len(p.X) != 32 || len(p.Y) != 32 {
		return nil, fmt.Errorf("%w: invalid p-256 coordinate length", ErrMalformedCeremonyData)
	}

	pk := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(p.X),
		Y:     new(big.Int).SetBytes(p.Y),
	}
	if !pk.Curve.IsOnCurve(pk.X, pk.Y) {
		return nil, fmt.Errorf("%w: point is not on curve", ErrMalformedCeremonyData)
	}
	return pk, nil
}

func rsaPublicKey(p *coseRSAParams) (*rsa.PublicKey, error) {
	if len(p.N) == 0 || len(p.E) == 0 {
		return nil, fmt.Errorf("%w: missing rsa modulus or exponent", ErrMalformedCeremonyData)
	}

	e := new(big.Int).SetBytes(p.E)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("%w: invalid rsa exponent", ErrMalformedCeremonyData)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(p.N),
		E: int(e.Int64()),
	}, nil
}

// Verify checks sig over message using the key's declared algorithm. Both
// supported algorithms hash with SHA-256. A failed check returns
// ErrSignatureInvalid.
func (k *PublicKey) Verify(message, sig []byte) error {
	digest := sha256.Sum256(message)

	switch k.Alg {
	case AlgES256:
		if !ecdsa.VerifyASN1(k.ec, digest[:], sig) {
			return ErrSignatureInvalid
		}
		return nil
	case AlgRS256:
		if err := rsa.VerifyPKCS1v15(k.rsa, crypto.SHA256, digest[:], sig); err != nil {
			return ErrSignatureInvalid
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported algorithm %d", ErrMalformedCeremonyData, k.Alg)
	}
}
