package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"passkeyd/internal/common"
	"passkeyd/internal/server/auth"
	"passkeyd/internal/server/config"
	"passkeyd/internal/server/models"
	"passkeyd/internal/server/repositories/repomanager"
)

// SessionService resolves and revokes the opaque session tokens issued by
// CeremonyService, and verifies JWT access tokens.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		jwtSecret:   auth.DeriveSigningKey(cfg.SecretKey),
	}
}

// Resolve returns the user a session token belongs to. Unknown and expired
// tokens both report ErrorUnauthorized, so callers cannot tell the cases
// apart.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, error) {

	session, err := s.repomanager.Sessions(s.db).Find(ctx, auth.HashSessionToken(token), time.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error looking up session: %w", err)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return user, nil
}

// ResolveAccessToken returns the user ID carried by a valid JWT access token.
func (s *SessionService) ResolveAccessToken(tokenString string) (string, error) {
	userID, err := auth.GetUserIDFromToken(tokenString, s.jwtSecret)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return userID, nil
}

// ResolveBearer resolves an Authorization bearer value and returns the user.
// Both token kinds issued at login are accepted: the JWT access token and
// the opaque session token.
func (s *SessionService) ResolveBearer(ctx context.Context, token string) (*models.User, error) {
	if userID, err := s.ResolveAccessToken(token); err == nil {
		user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorUnauthorized
			}
			return nil, fmt.Errorf("error loading user: %w", err)
		}
		return user, nil
	}
	return s.Resolve(ctx, token)
}

// Revoke deletes a session. Revoking a token that does not exist is a no-op.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, auth.HashSessionToken(token)); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
