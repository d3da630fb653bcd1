package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passkeyd/internal/common"
	"passkeyd/internal/webauthn"
)

// The tests here drive the full ceremonies against a virtual authenticator,
// which exercises the real CBOR, COSE, and signature paths end to end.

func virtualRP() virtualwebauthn.RelyingParty {
	return virtualwebauthn.RelyingParty{
		Name:   "Example",
		ID:     "example.com",
		Origin: "https://example.com",
	}
}

func register(t *testing.T, svc *CeremonyService, username string,
	authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential) {
	t.Helper()
	ctx := context.Background()

	opts, err := svc.RegistrationOptions(ctx, username)
	require.NoError(t, err)

	optsJSON, err := json.Marshal(opts)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAttestationOptions(string(optsJSON))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(virtualRP(), authenticator, credential, *parsed)

	_, err = svc.FinishRegistration(ctx, username, []byte(attestation))
	require.NoError(t, err)
}

func login(t *testing.T, svc *CeremonyService, username string,
	authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential) (*TokenPair, error) {
	t.Helper()
	ctx := context.Background()

	opts, err := svc.AuthenticationOptions(ctx, username)
	require.NoError(t, err)

	optsJSON, err := json.Marshal(opts)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAssertionOptions(string(optsJSON))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(virtualRP(), authenticator, credential, *parsed)

	return svc.FinishAuthentication(ctx, username, []byte(assertion))
}

func TestCeremonies_RegisterThenLogin(t *testing.T) {
	svc, m := newCeremonyService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	register(t, svc, "alice", authenticator, credential)
	authenticator.AddCredential(credential)

	require.Len(t, m.creds.byCredID, 1)

	credential.Counter = 5
	pair, err := login(t, svc, "alice", authenticator, credential)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.SessionToken)

	// The stored counter advanced to at least the asserted value.
	for _, c := range m.creds.byCredID {
		assert.GreaterOrEqual(t, c.Counter, uint32(5))
	}

	// The access token resolves back to the registered user.
	sessSvc := NewSessionService(newTestDB(t), m, testConfig())
	user, err := sessSvc.Resolve(context.Background(), pair.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserName)
}

func TestCeremonies_RSAKeyRegisters(t *testing.T) {
	svc, _ := newCeremonyService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeRSA)

	register(t, svc, "bob", authenticator, credential)
}

func TestCeremonies_CounterRollbackDetected(t *testing.T) {
	svc, _ := newCeremonyService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	register(t, svc, "alice", authenticator, credential)
	authenticator.AddCredential(credential)

	credential.Counter = 10
	_, err := login(t, svc, "alice", authenticator, credential)
	require.NoError(t, err)

	// A replayed or cloned authenticator presents a stale counter.
	credential.Counter = 2
	_, err = login(t, svc, "alice", authenticator, credential)
	assert.ErrorIs(t, err, webauthn.ErrCloneDetected)
}

func TestCeremonies_SecondLoginNeedsFreshChallenge(t *testing.T) {
	svc, _ := newCeremonyService(t)
	ctx := context.Background()

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	register(t, svc, "alice", authenticator, credential)
	authenticator.AddCredential(credential)

	opts, err := svc.AuthenticationOptions(ctx, "alice")
	require.NoError(t, err)
	optsJSON, err := json.Marshal(opts)
	require.NoError(t, err)
	parsed, err := virtualwebauthn.ParseAssertionOptions(string(optsJSON))
	require.NoError(t, err)

	credential.Counter = 3
	assertion := virtualwebauthn.CreateAssertionResponse(virtualRP(), authenticator, credential, *parsed)

	_, err = svc.FinishAuthentication(ctx, "alice", []byte(assertion))
	require.NoError(t, err)

	// Replaying the exact same response fails: the challenge is spent.
	_, err = svc.FinishAuthentication(ctx, "alice", []byte(assertion))
	assert.ErrorIs(t, err, common.ErrorNoValidChallenge)
}

func TestCeremonies_ForeignCredentialRejected(t *testing.T) {
	svc, _ := newCeremonyService(t)
	ctx := context.Background()

	aliceAuth := virtualwebauthn.NewAuthenticator()
	aliceCred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	register(t, svc, "alice", aliceAuth, aliceCred)
	aliceAuth.AddCredential(aliceCred)

	bobAuth := virtualwebauthn.NewAuthenticator()
	bobCred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	register(t, svc, "bob", bobAuth, bobCred)
	bobAuth.AddCredential(bobCred)

	// Bob asks for options, but answers with Alice's credential.
	opts, err := svc.AuthenticationOptions(ctx, "bob")
	require.NoError(t, err)
	optsJSON, err := json.Marshal(opts)
	require.NoError(t, err)
	parsed, err := virtualwebauthn.ParseAssertionOptions(string(optsJSON))
	require.NoError(t, err)

	aliceCred.Counter = 1
	assertion := virtualwebauthn.CreateAssertionResponse(virtualRP(), aliceAuth, aliceCred, *parsed)

	_, err = svc.FinishAuthentication(ctx, "bob", []byte(assertion))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestCeremonies_DuplicateRegistrationRejected(t *testing.T) {
	svc, _ := newCeremonyService(t)
	ctx := context.Background()

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	register(t, svc, "alice", authenticator, credential)

	// Same credential presented again under a fresh challenge.
	opts, err := svc.RegistrationOptions(ctx, "alice")
	require.NoError(t, err)
	optsJSON, err := json.Marshal(opts)
	require.NoError(t, err)
	parsed, err := virtualwebauthn.ParseAttestationOptions(string(optsJSON))
	require.NoError(t, err)
	attestation := virtualwebauthn.CreateAttestationResponse(virtualRP(), authenticator, credential, *parsed)

	_, err = svc.FinishRegistration(ctx, "alice", []byte(attestation))
	assert.ErrorIs(t, err, common.ErrorDuplicateCredential)
}
