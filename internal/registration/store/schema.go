// Package store holds storage-level plumbing shared by the per-entity
// Postgres stores: schema management and error translation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"intake/pkg/platform/sentinel"
)

// Schema carries the unique indexes on the normalized identity fields. The
// saga does not lock across its duplicate read and its write, so these
// constraints are what stops two concurrent registrations for the same
// identity when both pass the resolver.
const schema = `
CREATE TABLE IF NOT EXISTS persons (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL,
	birth_date DATE NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	phone_canonical TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS persons_email_key
	ON persons (lower(email)) WHERE email <> '';
CREATE UNIQUE INDEX IF NOT EXISTS persons_phone_key
	ON persons (phone_canonical) WHERE phone_canonical <> '';
CREATE UNIQUE INDEX IF NOT EXISTS persons_name_birth_key
	ON persons (lower(first_name), lower(last_name), birth_date);

CREATE TABLE IF NOT EXISTS service_requests (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES persons (id),
	service TEXT NOT NULL,
	request_date TEXT NOT NULL DEFAULT '',
	request_time TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	attributes JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS service_requests_date_idx
	ON service_requests (request_date) WHERE request_date <> '';

CREATE TABLE IF NOT EXISTS credentials (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	secret_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the registration tables and indexes if they do not
// exist. cmd/server runs this at startup; integration tests run it per suite.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure registration schema: %w", err)
	}
	return nil
}

// RequireAffected translates a zero-row write into ErrNotFound.
func RequireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// TranslateError maps driver errors onto storage sentinels so services never
// inspect Postgres error codes.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return err
}
