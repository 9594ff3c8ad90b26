package db

import (
	"context"
	"database/sql"

	libdb "tuitionpay/backend/libs/db"
)

// NewPostgres connects to Postgres using shared library helper.
func NewPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(ctx, dsn)
}
