package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/repository"
)

// defaultRejectionReason is stored when a rejecting approver leaves no remark.
const defaultRejectionReason = "Rejected by approver"

// Approval actions accepted by Act.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ReportStore is the report lifecycle surface the state machine drives.
// The transition methods are conditional on the expected current status/step
// and return nil (no error) when the report has already moved on.
type ReportStore interface {
	GetByID(ctx context.Context, id int64) (*repository.ExpenseReport, error)
	Submit(ctx context.Context, id int64) (*repository.ExpenseReport, error)
	Advance(ctx context.Context, id int64, fromStep int) (*repository.ExpenseReport, error)
	Approve(ctx context.Context, id int64, fromStep int, approvedBy int64) (*repository.ExpenseReport, error)
	Reject(ctx context.Context, id int64, fromStep int, reason string) (*repository.ExpenseReport, error)
}

// RuleStore resolves the approval rule for a (cost center, amount, step).
// Resolve returns nil when no rule covers the amount at that step.
type RuleStore interface {
	Resolve(ctx context.Context, costCenter string, amount int64, stepOrder int) (*repository.ApprovalRule, error)
}

// ApprovalStore records the append-only per-step approval trail.
type ApprovalStore interface {
	CreatePending(ctx context.Context, reportID, approverID int64, level int) error
	RecordDecision(ctx context.Context, reportID int64, level int, status string, comments *string) error
	ListByReport(ctx context.Context, reportID int64) ([]*repository.Approval, error)
}

// EmployeeStore resolves emails to internal identities. GetByEmail returns
// nil when the email is unknown.
type EmployeeStore interface {
	GetByEmail(ctx context.Context, email string) (*repository.Employee, error)
}

// Notifier publishes workflow events. Implementations must never block the
// workflow: failures are logged, not returned.
type Notifier interface {
	PublishReportEvent(ctx context.Context, eventType string, reportID int64, actor string, recipients []string, payload map[string]any)
}

// ApprovalService drives an expense report through
// draft → pending(step) → approved | rejected.
type ApprovalService struct {
	reports   ReportStore
	rules     RuleStore
	approvals ApprovalStore
	employees EmployeeStore
	notifier  Notifier
	log       zerolog.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	reports ReportStore,
	rules RuleStore,
	approvals ApprovalStore,
	employees EmployeeStore,
	notifier Notifier,
	log zerolog.Logger,
) *ApprovalService {
	return &ApprovalService{
		reports:   reports,
		rules:     rules,
		approvals: approvals,
		employees: employees,
		notifier:  notifier,
		log:       log,
	}
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Message      string                    `json:"message"`
	Report       *repository.ExpenseReport `json:"report"`
	NextApprover string                    `json:"next_approver"`
	Step         int                       `json:"step"`
}

// ActResult is returned by Act. Exactly one of NextApprover/Step or
// FinalStatus is populated depending on whether the workflow continued.
type ActResult struct {
	Message      string                    `json:"message"`
	Report       *repository.ExpenseReport `json:"report"`
	NextApprover string                    `json:"next_approver,omitempty"`
	Step         int                       `json:"step,omitempty"`
	FinalStatus  string                    `json:"final_status,omitempty"`
}

// ── Submit ───────────────────────────────────────────────────────────────────

// Submit moves a draft report into the approval workflow at step 1.
func (s *ApprovalService) Submit(ctx context.Context, reportID int64, actorEmail string) (*SubmitResult, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ApprovalStatus != repository.StatusDraft {
		return nil, apperr.New(apperr.CodeNotPending,
			fmt.Sprintf("report is not draft (status: %s)", report.ApprovalStatus))
	}

	rule, err := s.rules.Resolve(ctx, report.CostCenterCode, report.TotalAmount, 1)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, apperr.New(apperr.CodeNoRule,
			"no approval rule found for this cost center and amount")
	}

	// Conditional update: loses against a concurrent submit, which then
	// surfaces as NOT_PENDING rather than double-entering the workflow.
	updated, err := s.reports.Submit(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.New(apperr.CodeNotPending, "report already submitted")
	}

	s.createPendingApproval(ctx, reportID, rule.ApproverEmail, 1)

	s.notifier.PublishReportEvent(ctx, "report_submitted", reportID, actorEmail,
		[]string{rule.ApproverEmail}, map[string]any{"step": 1})

	s.log.Info().
		Int64("report_id", reportID).
		Str("submitted_by", actorEmail).
		Str("next_approver", rule.ApproverEmail).
		Msg("Report submitted for approval")

	return &SubmitResult{
		Message:      "Report submitted for approval",
		Report:       updated,
		NextApprover: rule.ApproverEmail,
		Step:         1,
	}, nil
}

// ── Act ──────────────────────────────────────────────────────────────────────

// Act records an approver's decision on the report's current step. Approve
// advances to the next step when one is configured, otherwise terminally
// approves; reject is terminal at any step.
func (s *ApprovalService) Act(ctx context.Context, reportID int64, actorEmail, action string, remark *string) (*ActResult, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, apperr.InvalidInput("action", "must be approve or reject")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ApprovalStatus != repository.StatusPending {
		return nil, apperr.New(apperr.CodeNotPending, "report is not pending approval")
	}

	step := 1
	if report.ApprovalStep != nil {
		step = *report.ApprovalStep
	}

	rule, err := s.rules.Resolve(ctx, report.CostCenterCode, report.TotalAmount, step)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, apperr.New(apperr.CodeNoRule, "no approval rule found for current step")
	}
	if rule.ApproverEmail != actorEmail {
		return nil, apperr.Forbidden("not authorized to approve at this step")
	}

	actor, err := s.employees.GetByEmail(ctx, actorEmail)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperr.New(apperr.CodeActorNotFound, "actor employee not found")
	}

	decision := repository.ApprovalApproved
	if action == ActionReject {
		decision = repository.ApprovalRejected
	}
	if err := s.approvals.RecordDecision(ctx, reportID, step, decision, remark); err != nil {
		s.log.Warn().Err(err).
			Int64("report_id", reportID).
			Int("step", step).
			Msg("Failed to record approval decision")
	}

	if action == ActionReject {
		return s.reject(ctx, report, step, actorEmail, remark)
	}
	return s.approve(ctx, report, step, actor)
}

// reject terminally rejects the report at step.
func (s *ApprovalService) reject(ctx context.Context, report *repository.ExpenseReport, step int, actorEmail string, remark *string) (*ActResult, error) {
	reason := defaultRejectionReason
	if remark != nil && *remark != "" {
		reason = *remark
	}

	updated, err := s.reports.Reject(ctx, report.ID, step, reason)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.New(apperr.CodeNotPending, "report is no longer pending at this step")
	}

	s.notifier.PublishReportEvent(ctx, "report_rejected", report.ID, actorEmail, nil,
		map[string]any{"step": step, "reason": reason})

	s.log.Info().
		Int64("report_id", report.ID).
		Int("step", step).
		Str("rejected_by", actorEmail).
		Msg("Report rejected")

	return &ActResult{
		Message:     "Report rejected",
		Report:      updated,
		FinalStatus: repository.StatusRejected,
	}, nil
}

// approve advances the report past step, terminally approving when step was
// the last configured one.
func (s *ApprovalService) approve(ctx context.Context, report *repository.ExpenseReport, step int, actor *repository.Employee) (*ActResult, error) {
	nextRule, err := s.rules.Resolve(ctx, report.CostCenterCode, report.TotalAmount, step+1)
	if err != nil {
		return nil, err
	}

	if nextRule == nil {
		// Final step.
		updated, err := s.reports.Approve(ctx, report.ID, step, actor.ID)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, apperr.New(apperr.CodeNotPending, "report is no longer pending at this step")
		}

		s.notifier.PublishReportEvent(ctx, "report_approved", report.ID, actor.Email, nil,
			map[string]any{"step": step})

		s.log.Info().
			Int64("report_id", report.ID).
			Int("step", step).
			Str("approved_by", actor.Email).
			Msg("Report fully approved")

		return &ActResult{
			Message:     "Report fully approved",
			Report:      updated,
			FinalStatus: repository.StatusApproved,
		}, nil
	}

	updated, err := s.reports.Advance(ctx, report.ID, step)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.New(apperr.CodeNotPending, "report is no longer pending at this step")
	}

	nextStep := step + 1
	s.createPendingApproval(ctx, report.ID, nextRule.ApproverEmail, nextStep)

	s.notifier.PublishReportEvent(ctx, "step_approved", report.ID, actor.Email,
		[]string{nextRule.ApproverEmail}, map[string]any{"step": nextStep})

	s.log.Info().
		Int64("report_id", report.ID).
		Int("step", step).
		Int("next_step", nextStep).
		Str("next_approver", nextRule.ApproverEmail).
		Msg("Step approved, advancing")

	return &ActResult{
		Message:      fmt.Sprintf("Approved - moving to step %d", nextStep),
		Report:       updated,
		NextApprover: nextRule.ApproverEmail,
		Step:         nextStep,
	}, nil
}

// ── History ──────────────────────────────────────────────────────────────────

// History returns the full approval trail for a report.
func (s *ApprovalService) History(ctx context.Context, reportID int64) ([]*repository.Approval, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, err
	}
	return s.approvals.ListByReport(ctx, reportID)
}

// ── Internal helpers ─────────────────────────────────────────────────────────

// createPendingApproval inserts the pending trail row for a step. Failures
// here never block a correctly resolved transition; they are logged and the
// report still advances.
func (s *ApprovalService) createPendingApproval(ctx context.Context, reportID int64, approverEmail string, level int) {
	approver, err := s.employees.GetByEmail(ctx, approverEmail)
	if err != nil || approver == nil {
		s.log.Warn().Err(err).
			Int64("report_id", reportID).
			Str("approver", approverEmail).
			Int("level", level).
			Msg("Could not resolve approver; approval record not created")
		return
	}
	if err := s.approvals.CreatePending(ctx, reportID, approver.ID, level); err != nil {
		s.log.Warn().Err(err).
			Int64("report_id", reportID).
			Int("level", level).
			Msg("Failed to create approval record")
	}
}
