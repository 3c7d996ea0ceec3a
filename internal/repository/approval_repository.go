package repository

import (
	"context"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

// ApprovalRepository owns the append-only approvals trail: one row per step
// a report has entered. Rows are created pending and later updated with the
// approver's decision; they are never deleted.
type ApprovalRepository struct {
	db *database.DB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// CreatePending records that a report entered a step awaiting approverID.
func (r *ApprovalRepository) CreatePending(ctx context.Context, reportID, approverID int64, level int) error {
	query := `
		INSERT INTO approvals (entity_type, entity_id, approver_id, level, status)
		VALUES ($1, $2, $3, $4, 'pending')`

	_, err := r.db.Exec(ctx, query, EntityTypeExpenseReport, reportID, approverID, level)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDBError, "failed to create approval record")
	}
	return nil
}

// RecordDecision stamps the decision on the pending row for (report, level).
func (r *ApprovalRepository) RecordDecision(ctx context.Context, reportID int64, level int, status string, comments *string) error {
	query := `
		UPDATE approvals
		SET status        = $3,
		    decision_date = NOW(),
		    comments      = $4
		WHERE entity_type = $1
		  AND entity_id = $2
		  AND level = $5
		  AND status = 'pending'`

	_, err := r.db.Exec(ctx, query, EntityTypeExpenseReport, reportID, status, comments, level)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeDBError, "failed to record approval decision")
	}
	return nil
}

// ListByReport returns the full approval trail for a report oldest-first,
// with approver emails joined in.
func (r *ApprovalRepository) ListByReport(ctx context.Context, reportID int64) ([]*Approval, error) {
	query := `
		SELECT a.id, a.entity_type, a.entity_id, a.approver_id, e.email,
		       a.level, a.status, a.decision_date, a.comments, a.created_at
		FROM approvals a
		JOIN employees e ON e.id = a.approver_id
		WHERE a.entity_type = $1
		  AND a.entity_id = $2
		ORDER BY a.level ASC, a.created_at ASC`

	rows, err := r.db.Query(ctx, query, EntityTypeExpenseReport, reportID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to list approvals")
	}
	defer rows.Close()

	var approvals []*Approval
	for rows.Next() {
		a := &Approval{}
		err := rows.Scan(
			&a.ID,
			&a.EntityType,
			&a.EntityID,
			&a.ApproverID,
			&a.ApproverEmail,
			&a.Level,
			&a.Status,
			&a.DecisionDate,
			&a.Comments,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan approval")
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}
