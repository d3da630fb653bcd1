package users

import (
	"context"

	"passkeyd/internal/server/models"
)

type Repository interface {
	FindOrCreate(ctx context.Context, username string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
