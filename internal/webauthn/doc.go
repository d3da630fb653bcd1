// Package webauthn implements the relying-party side of WebAuthn ceremonies:
// decoding of authenticator responses (client data JSON, CBOR attestation
// objects, binary authenticator data, COSE public keys) and verification of
// registration and authentication ceremonies against expected challenge,
// origin and relying-party bindings.
//
// The package is pure computation. It performs no I/O and holds no state;
// persistence of credentials, challenges and counters belongs to the caller.
package webauthn
