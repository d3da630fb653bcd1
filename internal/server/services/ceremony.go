package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"passkeyd/internal/common"
	"passkeyd/internal/dbx"
	"passkeyd/internal/server/auth"
	"passkeyd/internal/server/config"
	"passkeyd/internal/server/models"
	"passkeyd/internal/server/repositories/repomanager"
	"passkeyd/internal/webauthn"
)

// TokenPair is what a successful authentication ceremony hands back: a
// short-lived JWT access token and an opaque session token.
type TokenPair struct {
	AccessToken  string
	SessionToken string
}

// CeremonyService drives the registration and authentication ceremonies:
// it issues single-use challenges, verifies authenticator responses, and
// persists the outcome.
type CeremonyService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	sessionValidityDuration     time.Duration
	rpID                        string
	rpName                      string
	origin                      string
	challengeTTL                time.Duration
	requireUserVerification     bool
}

func NewCeremonyService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CeremonyService {
	return &CeremonyService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   auth.DeriveSigningKey(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		sessionValidityDuration:     cfg.SessionValidityDuration,
		rpID:                        cfg.RPID,
		rpName:                      cfg.RPName,
		origin:                      cfg.Origin,
		challengeTTL:                cfg.ChallengeTTL,
		requireUserVerification:     cfg.RequireUserVerification,
	}
}

// RegistrationOptions starts a registration ceremony for username. The user
// row is created on first contact. A fresh challenge is stored and returned
// inside the creation options, and credentials the user already registered
// are placed on the exclude list.
func (s *CeremonyService) RegistrationOptions(ctx context.Context, username string) (*webauthn.CreationOptions, error) {

	user, err := s.repomanager.Users(s.db).FindOrCreate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error finding or creating user: %w", err)
	}

	challenge, err := s.issueChallenge(ctx, user.ID, models.ChallengeKindRegistration)
	if err != nil {
		return nil, err
	}

	existing, err := s.repomanager.Credentials(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing credentials: %w", err)
	}

	exclude := make([]webauthn.CredentialDescriptor, 0, len(existing))
	for _, c := range existing {
		exclude = append(exclude, webauthn.NewCredentialDescriptor(c.CredentialID, c.Transports))
	}

	return webauthn.NewCreationOptions(s.rpID, s.rpName, []byte(user.ID), username,
		challenge, exclude, s.requireUserVerification), nil
}

// FinishRegistration completes a registration ceremony. The newest valid
// challenge for the user is consumed before verification, so a failed
// response still burns the challenge.
func (s *CeremonyService) FinishRegistration(ctx context.Context, username string, body []byte) (*models.Credential, error) {

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNoValidChallenge
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	challenge, err := s.consumeChallenge(ctx, user.ID, models.ChallengeKindRegistration)
	if err != nil {
		return nil, err
	}

	resp, err := webauthn.ParseRegistrationResponse(body)
	if err != nil {
		return nil, err
	}

	expected, err := s.expected(challenge)
	if err != nil {
		return nil, err
	}

	registered, err := webauthn.VerifyRegistration(resp, expected)
	if err != nil {
		return nil, err
	}

	credential := &models.Credential{
		UserID:       user.ID,
		CredentialID: base64.RawURLEncoding.EncodeToString(registered.CredentialID),
		PublicKey:    registered.PublicKey,
		Counter:      registered.SignCount,
		Transports:   registered.Transports,
	}

	credential, err = s.repomanager.Credentials(s.db).Create(ctx, credential)
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateCredential) {
			return nil, common.ErrorDuplicateCredential
		}
		return nil, fmt.Errorf("error storing credential: %w", err)
	}

	return credential, nil
}

// AuthenticationOptions starts an authentication ceremony. An unknown user
// reports ErrorNotFound; a known user with no registered credentials gets
// ErrorNoCredentials rather than an allow list the client cannot satisfy.
func (s *CeremonyService) AuthenticationOptions(ctx context.Context, username string) (*webauthn.RequestOptions, error) {

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	creds, err := s.repomanager.Credentials(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, common.ErrorNoCredentials
	}

	challenge, err := s.issueChallenge(ctx, user.ID, models.ChallengeKindAuthentication)
	if err != nil {
		return nil, err
	}

	allow := make([]webauthn.CredentialDescriptor, 0, len(creds))
	for _, c := range creds {
		allow = append(allow, webauthn.NewCredentialDescriptor(c.CredentialID, c.Transports))
	}

	return webauthn.NewRequestOptions(s.rpID, challenge, allow, s.requireUserVerification), nil
}

// FinishAuthentication completes an authentication ceremony and, on success,
// bumps the signature counter and issues tokens. Counter update and session
// insert run in one transaction so a stored session always reflects the
// counter state it was issued under.
func (s *CeremonyService) FinishAuthentication(ctx context.Context, username string, body []byte) (*TokenPair, error) {

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNoValidChallenge
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	challenge, err := s.consumeChallenge(ctx, user.ID, models.ChallengeKindAuthentication)
	if err != nil {
		return nil, err
	}

	resp, err := webauthn.ParseAssertionResponse(body)
	if err != nil {
		return nil, err
	}

	credentialID := base64.RawURLEncoding.EncodeToString(resp.CredentialID)
	credential, err := s.repomanager.Credentials(s.db).GetByCredentialID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading credential: %w", err)
	}

	// A credential registered to another user must not authenticate this one.
	if credential.UserID != user.ID {
		return nil, common.ErrorUnauthorized
	}

	expected, err := s.expected(challenge)
	if err != nil {
		return nil, err
	}

	newCounter, err := webauthn.VerifyAssertion(resp, credential.PublicKey, credential.Counter, expected)
	if err != nil {
		return nil, err
	}

	sessionToken, tokenHash := auth.NewSessionToken()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if newCounter > 0 {
			if err := s.repomanager.Credentials(tx).UpdateCounter(ctx, credentialID, newCounter); err != nil {
				return err
			}
		}
		return s.repomanager.Sessions(tx).Create(ctx, user.ID, tokenHash, s.sessionValidityDuration)
	})
	if err != nil {
		if errors.Is(err, common.ErrorCounterRegression) {
			return nil, webauthn.ErrCloneDetected
		}
		return nil, fmt.Errorf("error recording authentication: %w", err)
	}

	accessToken, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, SessionToken: sessionToken}, nil
}

// CleanupExpired removes spent and expired challenges and expired sessions.
// Called periodically from the server loop.
func (s *CeremonyService) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	nChallenges, err := s.repomanager.Challenges(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	nSessions, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return nChallenges, err
	}
	return nChallenges + nSessions, nil
}

func (s *CeremonyService) expected(challenge *models.Challenge) (*webauthn.Expected, error) {
	raw, err := webauthn.DecodeChallenge(challenge.Value)
	if err != nil {
		// Stored challenges are written by issueChallenge; a value that no
		// longer decodes means corrupt storage, not a ceremony failure.
		return nil, fmt.Errorf("stored challenge corrupt: %w", err)
	}
	return &webauthn.Expected{
		Challenge:               raw,
		Origin:                  s.origin,
		RPID:                    s.rpID,
		RequireUserVerification: s.requireUserVerification,
	}, nil
}

func (s *CeremonyService) issueChallenge(ctx context.Context, userID, kind string) ([]byte, error) {
	challenge, err := webauthn.GenerateChallenge()
	if err != nil {
		return nil, fmt.Errorf("error generating challenge: %w", err)
	}

	_, err = s.repomanager.Challenges(s.db).Issue(ctx, &models.Challenge{
		UserID:    userID,
		Kind:      kind,
		Value:     webauthn.EncodeChallenge(challenge),
		ExpiresAt: time.Now().Add(s.challengeTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("error storing challenge: %w", err)
	}

	return challenge, nil
}

func (s *CeremonyService) consumeChallenge(ctx context.Context, userID, kind string) (*models.Challenge, error) {
	challenge, err := s.repomanager.Challenges(s.db).ConsumeLatestValid(ctx, userID, kind, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNoValidChallenge) {
			return nil, common.ErrorNoValidChallenge
		}
		return nil, fmt.Errorf("error consuming challenge: %w", err)
	}
	return challenge, nil
}
