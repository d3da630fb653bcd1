package challenges

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

func (r *PostgresRepository) Issue(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error) {

	query :=
		`INSERT INTO challenges (user_id, kind, value, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		challenge.UserID, challenge.Kind, challenge.Value, challenge.ExpiresAt).
		Scan(&challenge.ID, &challenge.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return challenge, nil
}

// ConsumeLatestValid marks the newest unconsumed, unexpired challenge for
// the user and ceremony kind as consumed and returns it. SKIP LOCKED in the
// subselect plus the repeated consumed/expiry quals on the UPDATE itself
// keep the row single-use under concurrent verification attempts: a second
// consumer either skips the locked row or fails the recheck after the lock
// wait. No matching row reports ErrorNoValidChallenge.
func (r *PostgresRepository) ConsumeLatestValid(ctx context.Context, userID string, kind string, now time.Time) (*models.Challenge, error) {

	query :=
		`UPDATE challenges SET consumed = true
		 WHERE consumed = false AND expires_at > $3 AND id = (
		     SELECT id FROM challenges
		     WHERE user_id = $1 AND kind = $2 AND consumed = false AND expires_at > $3
		     ORDER BY created_at DESC
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, user_id, kind, value, expires_at, created_at
		 `

	challenge := &models.Challenge{Consumed: true}
	err := r.db.QueryRowContext(ctx, query, userID, kind, now).
		Scan(&challenge.ID, &challenge.UserID, &challenge.Kind,
			&challenge.Value, &challenge.ExpiresAt, &challenge.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNoValidChallenge
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return challenge, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM challenges
		 WHERE expires_at <= $1 OR consumed = true
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
