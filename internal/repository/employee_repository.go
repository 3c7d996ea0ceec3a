package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// EmployeeRepository resolves external-facing emails to internal identifiers.
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByEmail returns the employee with the given email, or nil when no such
// employee exists. Callers attach their own domain error code.
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	query := `SELECT id, email, full_name FROM employees WHERE email = $1`

	e := &Employee{}
	err := r.db.QueryRow(ctx, query, email).Scan(&e.ID, &e.Email, &e.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to look up employee")
	}
	return e, nil
}
