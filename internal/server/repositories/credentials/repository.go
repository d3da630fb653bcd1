package credentials

import (
	"context"

	"passkeyd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, credential *models.Credential) (*models.Credential, error)
	GetByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	UpdateCounter(ctx context.Context, credentialID string, counter uint32) error
}
