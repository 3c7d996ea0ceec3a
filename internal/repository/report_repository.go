package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/database"
)

const reportColumns = `
	id, employee_id, cost_center_code, total_amount, currency,
	approval_status, approval_step,
	submitted_at, approved_at, approved_by, rejection_reason,
	created_at, updated_at`

// ReportRepository owns reads and lifecycle writes on expense_reports.
// All state transitions are conditional updates guarded on the expected
// current status/step, so concurrent transitions against the same report
// cannot double-apply: the loser matches zero rows.
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetByID retrieves a report by primary key.
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*ExpenseReport, error) {
	query := `SELECT ` + reportColumns + ` FROM expense_reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("report", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to load report")
	}
	return report, nil
}

// Submit moves a draft report to pending at step 1 and stamps submitted_at.
// Returns nil (no error) when the report is no longer draft: the caller
// lost a race or the report was already submitted.
func (r *ReportRepository) Submit(ctx context.Context, id int64) (*ExpenseReport, error) {
	query := `
		UPDATE expense_reports
		SET approval_status = 'pending',
		    approval_step   = 1,
		    submitted_at    = NOW(),
		    updated_at      = NOW()
		WHERE id = $1
		  AND approval_status = 'draft'
		RETURNING ` + reportColumns

	return r.conditionalUpdate(ctx, query, id)
}

// Advance moves a pending report from fromStep to fromStep+1. Status stays
// pending. Returns nil when the report is not pending at fromStep anymore.
func (r *ReportRepository) Advance(ctx context.Context, id int64, fromStep int) (*ExpenseReport, error) {
	query := `
		UPDATE expense_reports
		SET approval_step = approval_step + 1,
		    updated_at    = NOW()
		WHERE id = $1
		  AND approval_status = 'pending'
		  AND approval_step = $2
		RETURNING ` + reportColumns

	return r.conditionalUpdate(ctx, query, id, fromStep)
}

// Approve terminally approves a pending report at fromStep.
func (r *ReportRepository) Approve(ctx context.Context, id int64, fromStep int, approvedBy int64) (*ExpenseReport, error) {
	query := `
		UPDATE expense_reports
		SET approval_status = 'approved',
		    approved_at     = NOW(),
		    approved_by     = $3,
		    updated_at      = NOW()
		WHERE id = $1
		  AND approval_status = 'pending'
		  AND approval_step = $2
		RETURNING ` + reportColumns

	return r.conditionalUpdate(ctx, query, id, fromStep, approvedBy)
}

// Reject terminally rejects a pending report at fromStep with a reason.
func (r *ReportRepository) Reject(ctx context.Context, id int64, fromStep int, reason string) (*ExpenseReport, error) {
	query := `
		UPDATE expense_reports
		SET approval_status  = 'rejected',
		    rejection_reason = $3,
		    updated_at       = NOW()
		WHERE id = $1
		  AND approval_status = 'pending'
		  AND approval_step = $2
		RETURNING ` + reportColumns

	return r.conditionalUpdate(ctx, query, id, fromStep, reason)
}

// ListApprovedByIDs returns the approved reports among ids, used by payment
// file generation.
func (r *ReportRepository) ListApprovedByIDs(ctx context.Context, ids []int64) ([]*ExpenseReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM expense_reports
		WHERE id = ANY($1)
		  AND approval_status = 'approved'
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to list approved reports")
	}
	defer rows.Close()

	var reports []*ExpenseReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to scan report")
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) conditionalUpdate(ctx context.Context, query string, args ...any) (*ExpenseReport, error) {
	report, err := scanReport(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDBError, "failed to update report")
	}
	return report, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type reportScanner interface {
	Scan(dest ...any) error
}

func scanReport(row reportScanner) (*ExpenseReport, error) {
	report := &ExpenseReport{}
	err := row.Scan(
		&report.ID,
		&report.EmployeeID,
		&report.CostCenterCode,
		&report.TotalAmount,
		&report.Currency,
		&report.ApprovalStatus,
		&report.ApprovalStep,
		&report.SubmittedAt,
		&report.ApprovedAt,
		&report.ApprovedBy,
		&report.RejectionReason,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}
