package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"intake/internal/registration/models"
	"intake/internal/registration/store"
	"intake/pkg/domain"
)

// PostgresStore persists ServiceRequest records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, person_id, service, request_date, request_time, status, attributes, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.ServiceRequest) error {
	attrs, err := marshalAttributes(r.Attributes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(r.ID), uuid.UUID(r.PersonID), r.Service, r.Date, r.Time,
		string(r.Status), attrs, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create service request: %w", store.TranslateError(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, uuid.UUID(id))
	r, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("find service request: %w", store.TranslateError(err))
	}
	return r, nil
}

func (s *PostgresStore) FindByDate(ctx context.Context, date string) ([]*models.ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE request_date = $1 ORDER BY created_at, id`, date)
	if err != nil {
		return nil, fmt.Errorf("find service requests by date: %w", store.TranslateError(err))
	}
	defer rows.Close()

	var out []*models.ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find service requests by date: %w", err)
	}
	return out, nil
}

// Execute loads the request FOR UPDATE, runs validate and apply inside the
// transaction, and writes the result back. The row lock makes the
// check-then-mutate atomic against concurrent transitions.
func (s *PostgresStore) Execute(ctx context.Context, id domain.RequestID,
	validate func(*models.ServiceRequest) error,
	apply func(*models.ServiceRequest),
) (*models.ServiceRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	r, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("load service request: %w", store.TranslateError(err))
	}

	if err := validate(r); err != nil {
		return nil, err
	}
	apply(r)

	attrs, err := marshalAttributes(r.Attributes)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE service_requests
		SET service = $2, request_date = $3, request_time = $4, status = $5, attributes = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(r.ID), r.Service, r.Date, r.Time, string(r.Status), attrs, r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update service request: %w", store.TranslateError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.RequestID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete service request: %w", store.TranslateError(err))
	}
	return store.RequireAffected(res)
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal request attributes: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ServiceRequest, error) {
	var r models.ServiceRequest
	var id, personID uuid.UUID
	var status string
	var attrs []byte
	err := row.Scan(&id, &personID, &r.Service, &r.Date, &r.Time, &status, &attrs, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = domain.RequestID(id)
	r.PersonID = domain.PersonID(personID)
	r.Status = models.RequestStatus(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &r.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal request attributes: %w", err)
		}
	}
	return &r, nil
}
