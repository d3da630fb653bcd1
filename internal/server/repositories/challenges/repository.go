package challenges

import (
	"context"
	"time"

	"passkeyd/internal/server/models"
)

type Repository interface {
	Issue(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error)
	ConsumeLatestValid(ctx context.Context, userID string, kind string, now time.Time) (*models.Challenge, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
