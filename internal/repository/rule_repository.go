package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// RuleRepository is the read side of approval routing plus the rule
// ingestion point where the non-overlap invariant is enforced.
type RuleRepository struct {
	db *database.DB
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *database.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Resolve returns the rule governing stepOrder for (costCenter, amount), or
// nil when no rule covers the amount. Should overlapping bands exist in
// pre-existing data, the lowest min_amount wins, an explicit tie-break
// rather than storage order.
func (r *RuleRepository) Resolve(ctx context.Context, costCenter string, amount int64, stepOrder int) (*ApprovalRule, error) {
	query := `
		SELECT id, cost_center_code, step_order, min_amount, max_amount, approver_email, created_at
		FROM approval_rules
		WHERE cost_center_code = $1
		  AND min_amount <= $2
		  AND max_amount >= $2
		  AND step_order = $3
		ORDER BY min_amount ASC
		LIMIT 1`

	rule, err := scanRule(r.db.QueryRow(ctx, query, costCenter, amount, stepOrder))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to resolve approval rule")
	}
	return rule, nil
}

// bandsOverlap reports whether the inclusive amount bands [minA, maxA] and
// [minB, maxB] share any amount. Touching endpoints count as overlap.
func bandsOverlap(minA, maxA, minB, maxB int64) bool {
	return minA <= maxB && maxA >= minB
}

// Create inserts a rule after validating that its [min, max] band does not
// overlap an existing band for the same (cost_center_code, step_order). The
// existing bands are loaded and evaluated in Go; check and insert run in one
// transaction so concurrent creates cannot slip past each other.
func (r *RuleRepository) Create(ctx context.Context, rule *ApprovalRule) error {
	if rule.MinAmount > rule.MaxAmount {
		return apperr.InvalidInput("min_amount", "min_amount must not exceed max_amount")
	}

	bandsQuery := `
		SELECT min_amount, max_amount
		FROM approval_rules
		WHERE cost_center_code = $1
		  AND step_order = $2`

	insertQuery := `
		INSERT INTO approval_rules (cost_center_code, step_order, min_amount, max_amount, approver_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, bandsQuery, rule.CostCenterCode, rule.StepOrder)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeDBError, "failed to check rule overlap")
		}
		defer rows.Close()

		for rows.Next() {
			var lo, hi int64
			if err := rows.Scan(&lo, &hi); err != nil {
				return apperr.Wrap(err, apperr.CodeDBError, "failed to check rule overlap")
			}
			if bandsOverlap(rule.MinAmount, rule.MaxAmount, lo, hi) {
				return apperr.New(apperr.CodeValidation,
					"amount band overlaps an existing rule for this cost center and step")
			}
		}
		if err := rows.Err(); err != nil {
			return apperr.Wrap(err, apperr.CodeDBError, "failed to check rule overlap")
		}

		err = tx.QueryRow(ctx, insertQuery,
			rule.CostCenterCode,
			rule.StepOrder,
			rule.MinAmount,
			rule.MaxAmount,
			rule.ApproverEmail,
		).Scan(&rule.ID, &rule.CreatedAt)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeDBError, "failed to create approval rule")
		}
		return nil
	})
	return err
}

// List returns rules, optionally filtered to one cost center, in evaluation
// order.
func (r *RuleRepository) List(ctx context.Context, costCenter string) ([]*ApprovalRule, error) {
	query := `
		SELECT id, cost_center_code, step_order, min_amount, max_amount, approver_email, created_at
		FROM approval_rules`
	args := []any{}
	if costCenter != "" {
		query += ` WHERE cost_center_code = $1`
		args = append(args, costCenter)
	}
	query += ` ORDER BY cost_center_code ASC, step_order ASC, min_amount ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to list approval rules")
	}
	defer rows.Close()

	var rules []*ApprovalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan approval rule")
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ── scan helper ──────────────────────────────────────────────────────────────

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (*ApprovalRule, error) {
	rule := &ApprovalRule{}
	err := row.Scan(
		&rule.ID,
		&rule.CostCenterCode,
		&rule.StepOrder,
		&rule.MinAmount,
		&rule.MaxAmount,
		&rule.ApproverEmail,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}
