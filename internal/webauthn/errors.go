package webauthn

import "errors"

var (
	// ErrMalformedCeremonyData reports a structural violation in the
	// authenticator response: truncated buffers, invalid encodings,
	// unknown key algorithms, missing required sections.
	ErrMalformedCeremonyData = errors.New("malformed ceremony data")

	// ErrCeremonyTypeMismatch reports a client data type that does not match
	// the ceremony being verified ("webauthn.create" vs "webauthn.get").
	ErrCeremonyTypeMismatch = errors.New("ceremony type mismatch")

	// ErrChallengeMismatch reports a client data challenge that is not
	// byte-equal to the challenge issued for this ceremony.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrOriginMismatch reports a client data origin differing from the
	// expected origin. The comparison is exact, with no normalization.
	ErrOriginMismatch = errors.New("origin mismatch")

	// ErrRPIDMismatch reports an authenticator-data RP ID hash that is not
	// SHA-256 of the expected relying-party identifier.
	ErrRPIDMismatch = errors.New("relying party id mismatch")

	// ErrFlagsRejected reports missing user-present or, when required,
	// user-verified authenticator flags.
	ErrFlagsRejected = errors.New("authenticator flags rejected")

	// ErrSignatureInvalid reports an assertion signature that does not verify
	// against the stored credential public key.
	ErrSignatureInvalid = errors.New("invalid signature")

	// ErrCloneDetected reports a signature counter that failed to increase,
	// which indicates a cloned credential.
	ErrCloneDetected = errors.New("credential clone detected")
)
