package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func marshalRS256Key(t *testing.T, pk *rsa.PublicKey) []byte {
	t.Helper()
	raw, err := cbor.Marshal(map[int]any{
		1:  coseKeyTypeRSA,
		3:  AlgRS256,
		-1: pk.N.Bytes(),
		-2: big.NewInt(int64(pk.E)).Bytes(),
	})
	if err != nil {
		t.Fatalf("marshal cose key: %v", err)
	}
	return raw
}

func TestParsePublicKey(t *testing.T) {
	t.Run("es256", func(t *testing.T) {
		_, raw := newES256Key(t)
		key, err := ParsePublicKey(raw)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key.Alg != AlgES256 {
			t.Errorf("unexpected algorithm %d", key.Alg)
		}
	})

	t.Run("rs256", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		key, err := ParsePublicKey(marshalRS256Key(t, &priv.PublicKey))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key.Alg != AlgRS256 {
			t.Errorf("unexpected algorithm %d", key.Alg)
		}
	})

	t.Run("fail on invalid cbor", func(t *testing.T) {
		_, err := ParsePublicKey([]byte("garbage"))
		if !errors.Is(err, ErrMalformedCeremonyData) {
			t.Fatalf("want ErrMalformedCeremonyData, got %v", err)
		}
	})

	t.Run("fail on unsupported key type", func(t *testing.T) {
		raw, _ := cbor.Marshal(map[int]any{1: 99, 3: AlgES256})
		_, err := ParsePublicKey(raw)
		if !errors.Is(err, ErrMalformedCeremonyData) {
			t.Fatalf("want ErrMalformedCeremonyData, got %v", err)
		}
	})

	t.Run("fail on unsupported ec2 algorithm", func(t *testing.T) {
		raw, _ := cbor.Marshal(map[int]any{1: coseKeyTypeEC2, 3: -999})
		_, err := ParsePublicKey(raw)
		if !errors.Is(err, ErrMalformedCeremonyData) {
			t.Fatalf("want ErrMalformedCeremonyData, got %v", err)
		}
	})

	t.Run("fail on unsupported curve", func(t *testing.T) {
		raw, _ := cbor.Marshal(map[int]any{
			1: coseKeyTypeEC2, 3: AlgES256,
			-1: 2, -2: make([]byte, 32), -3: make([]byte, 32),
		})
		_, err := ParsePublicKey(raw)
		if !errors.Is(err, ErrMalformedCeremonyData) {
			t.Fatalf("want ErrMalformedCeremonyData, got %v", err)
		}
	})

	t.Run("fail on point not on curve", func(t *testing.T) {
		x := make([]byte, 32)
		y := make([]byte, 32)
		x[31] = 1
		y[31] = 1
		raw, _ := cbor.Marshal(map[int]any{
			1: coseKeyTypeEC2, 3: AlgES256,
			-1: coseCurveP256, -2: x, -3: y,
		})
		_, err := ParsePublicKey(raw)
		if !errors.Is(err, ErrMalformedCeremonyData) {
			t.Fatalf("want ErrMalformedCeremonyData, got %v", err)
		}
	})
}

func TestPublicKeyVerify(t *testing.T) {
	message := []byte("signed payload")

	t.Run("es256 round trip", func(t *testing.T) {
		priv, raw := newES256Key(t)
		key, err := ParsePublicKey(raw)
		if err != nil {
			t.Fatalf("parse key: %v", err)
		}

		digest := sha256.Sum256(message)
		sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
		if err != nil {
			t.Fatalf("sign: %v", err)
		}

		if err := key.Verify(message, sig); err != nil {
			t.Fatalf("expected valid signature, got %v", err)
		}
		if err := key.Verify([]byte("other payload"), sig); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("want ErrSignatureInvalid, got %v", err)
		}
	})

	t.Run("rs256 round trip", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		key, err := ParsePublicKey(marshalRS256Key(t, &priv.PublicKey))
		if err != nil {
			t.Fatalf("parse key: %v", err)
		}

		digest := sha256.Sum256(message)
		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
		if err != nil {
			t.Fatalf("sign: %v", err)
		}

		if err := key.Verify(message, sig); err != nil {
			t.Fatalf("expected valid signature, got %v", err)
		}
		if err := key.Verify([]byte("other payload"), sig); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("want ErrSignatureInvalid, got %v", err)
		}
	})
}
