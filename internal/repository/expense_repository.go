package repository

import (
	"context"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// ExpenseRepository owns expense line items. Reads go through expenses_view,
// which joins the employee email onto each row.
type ExpenseRepository struct {
	db *database.DB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// List returns the most recent expenses, newest first. The caller is
// responsible for clamping limit.
func (r *ExpenseRepository) List(ctx context.Context, limit int) ([]*Expense, error) {
	query := `
		SELECT id, employee_id, employee_email, expense_type,
		       to_char(txn_date, 'YYYY-MM-DD'), amount, currency,
		       merchant, receipt_url, created_at
		FROM expenses_view
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to list expenses")
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e := &Expense{}
		err := rows.Scan(
			&e.ID,
			&e.EmployeeID,
			&e.EmployeeEmail,
			&e.ExpenseType,
			&e.TxnDate,
			&e.Amount,
			&e.Currency,
			&e.Merchant,
			&e.ReceiptURL,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan expense")
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Create persists an expense row and fills in its id and created_at.
func (r *ExpenseRepository) Create(ctx context.Context, e *Expense) error {
	query := `
		INSERT INTO expenses (employee_id, expense_type, txn_date, amount, currency, merchant, receipt_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.EmployeeID,
		e.ExpenseType,
		e.TxnDate,
		e.Amount,
		e.Currency,
		e.Merchant,
		e.ReceiptURL,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDBError, "failed to create expense")
	}
	return nil
}
