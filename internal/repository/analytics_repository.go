package repository

import (
	"context"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// AnalyticsRepository reads the precomputed rollup views. No write path.
type AnalyticsRepository struct {
	db *database.DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(db *database.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// SpendByCategory30d returns the 30-day spend rollup per category.
func (r *AnalyticsRepository) SpendByCategory30d(ctx context.Context) ([]*CategorySpend, error) {
	query := `
		SELECT category, total_amount, txn_count
		FROM v_spend_by_category_30d
		ORDER BY total_amount DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to load spend rollup")
	}
	defer rows.Close()

	var spend []*CategorySpend
	for rows.Next() {
		c := &CategorySpend{}
		if err := rows.Scan(&c.Category, &c.TotalAmount, &c.TxnCount); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan spend rollup")
		}
		spend = append(spend, c)
	}
	return spend, rows.Err()
}

// PolicyViolations returns the current policy-violation list.
func (r *AnalyticsRepository) PolicyViolations(ctx context.Context) ([]*PolicyViolation, error) {
	query := `
		SELECT expense_id, employee_email, rule, amount, to_char(txn_date, 'YYYY-MM-DD')
		FROM v_policy_violations
		ORDER BY txn_date DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to load policy violations")
	}
	defer rows.Close()

	var violations []*PolicyViolation
	for rows.Next() {
		v := &PolicyViolation{}
		if err := rows.Scan(&v.ExpenseID, &v.EmployeeEmail, &v.Rule, &v.Amount, &v.TxnDate); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan policy violation")
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
