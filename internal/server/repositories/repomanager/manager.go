package repomanager

import (
	"context"
	"database/sql"

	"passkeyd/internal/dbx"
	"passkeyd/internal/server/repositories/challenges"
	"passkeyd/internal/server/repositories/credentials"
	"passkeyd/internal/server/repositories/sessions"
	"passkeyd/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// repository code runs against either a plain connection or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
