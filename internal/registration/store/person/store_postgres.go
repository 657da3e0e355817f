package person

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"intake/internal/registration/models"
	"intake/internal/registration/store"
	"intake/pkg/domain"
	"intake/pkg/phone"
)

// PostgresStore persists Person records in PostgreSQL. The unique indexes on
// lower(email), phone_canonical, and the (name, birth date) tuple back the
// application-level duplicate check against concurrent registrations.
type PostgresStore struct {
	db   *sql.DB
	plan phone.Plan
}

func NewPostgres(db *sql.DB, plan phone.Plan) *PostgresStore {
	return &PostgresStore{db: db, plan: plan}
}

const personColumns = `id, first_name, middle_name, last_name, birth_date::text, email, phone, gender, address, position, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, first_name, middle_name, last_name, birth_date, email, phone, phone_canonical, gender, address, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(p.ID), p.FirstName, p.MiddleName, p.LastName, p.BirthDate,
		models.NormalizedEmail(p.Email), p.Phone, s.plan.Canonical(p.Phone),
		p.Gender, p.Address, p.Position, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create person: %w", store.TranslateError(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PersonID) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, uuid.UUID(id))
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("find person: %w", store.TranslateError(err))
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", store.TranslateError(err))
	}
	defer rows.Close()

	var out []*models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Person) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET email = $2, phone = $3, phone_canonical = $4, gender = $5, address = $6, position = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(p.ID), models.NormalizedEmail(p.Email), p.Phone, s.plan.Canonical(p.Phone),
		p.Gender, p.Address, p.Position, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", store.TranslateError(err))
	}
	return store.RequireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.PersonID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete person: %w", store.TranslateError(err))
	}
	return store.RequireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var p models.Person
	var id uuid.UUID
	err := row.Scan(&id, &p.FirstName, &p.MiddleName, &p.LastName, &p.BirthDate,
		&p.Email, &p.Phone, &p.Gender, &p.Address, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = domain.PersonID(id)
	return &p, nil
}
