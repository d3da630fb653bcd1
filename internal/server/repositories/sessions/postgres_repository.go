package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"passkeyd/internal/common"
	"passkeyd/internal/dbx"
	"passkeyd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, tokenHash []byte, validity time.Duration) error {

	query :=
		`INSERT INTO sessions (user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, userID, tokenHash, time.Now().Add(validity))

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, tokenHash []byte, now time.Time) (*models.Session, error) {
	query :=
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions
		 WHERE token_hash = $1 AND expires_at > $2
		 `

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&session.ID, &session.UserID, &session.TokenHash,
			&session.ExpiresAt, &session.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tokenHash []byte) error {
	query :=
		`DELETE FROM sessions
		 WHERE token_hash = $1
		 `

	_, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM sessions
		 WHERE expires_at <= $1
		 `

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
