package credential

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"intake/internal/registration/models"
	"intake/internal/registration/store"
	"intake/pkg/domain"
)

// PostgresStore persists Credential records in PostgreSQL. The UNIQUE
// constraint on email enforces the 1:1 credential-per-email binding.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, email, secret_hash, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(c.ID), models.NormalizedEmail(c.Email), c.SecretHash, c.Role, string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create credential: %w", store.TranslateError(err))
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	var id uuid.UUID
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, secret_hash, role, status, created_at
		FROM credentials WHERE email = $1`,
		models.NormalizedEmail(email),
	).Scan(&id, &c.Email, &c.SecretHash, &c.Role, &status, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", store.TranslateError(err))
	}
	c.ID = domain.CredentialID(id)
	c.Status = models.CredentialStatus(status)
	return &c, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.CredentialID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete credential: %w", store.TranslateError(err))
	}
	return store.RequireAffected(res)
}
