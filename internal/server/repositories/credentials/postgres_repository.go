package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"passkeyd/internal/common"
	"passkeyd/internal/dbx"
	"passkeyd/internal/server/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Transports are stored as a comma-joined text column.
func joinTransports(transports []string) string {
	return strings.Join(transports, ",")
}

func splitTransports(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r *PostgresRepository) Create(ctx context.Context, credential *models.Credential) (*models.Credential, error) {

	query :=
		`INSERT INTO credentials (user_id, credential_id, public_key, counter, transports)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		credential.UserID, credential.CredentialID, credential.PublicKey,
		int64(credential.Counter), joinTransports(credential.Transports)).
		Scan(&credential.ID, &credential.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorDuplicateCredential
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return credential, nil
}

func (r *PostgresRepository) GetByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error) {
	query :=
		`SELECT id, user_id, credential_id, public_key, counter, transports, created_at
		 FROM credentials
		 WHERE credential_id = $1
		 `

	credential := &models.Credential{}
	var counter int64
	var transports string
	err := r.db.QueryRowContext(ctx, query, credentialID).
		Scan(&credential.ID, &credential.UserID, &credential.CredentialID,
			&credential.PublicKey, &counter, &transports, &credential.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	credential.Counter = uint32(counter)
	credential.Transports = splitTransports(transports)

	return credential, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query :=
		`SELECT id, user_id, credential_id, public_key, counter, transports, created_at
		 FROM credentials
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		credential := &models.Credential{}
		var counter int64
		var transports string
		err := rows.Scan(&credential.ID, &credential.UserID, &credential.CredentialID,
			&credential.PublicKey, &counter, &transports, &credential.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		credential.Counter = uint32(counter)
		credential.Transports = splitTransports(transports)
		result = append(result, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// UpdateCounter stores the new signature counter. The update is conditional
// on the stored value being strictly smaller, so a stale or replayed counter
// never overwrites a newer one. A zero-row update reports ErrorCounterRegression.
func (r *PostgresRepository) UpdateCounter(ctx context.Context, credentialID string, counter uint32) error {
	query :=
		`UPDATE credentials SET counter = $2
		 WHERE credential_id = $1 AND counter < $2
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, credentialID, int64(counter)).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorCounterRegression
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
