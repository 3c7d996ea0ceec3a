package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/repository"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

// fakeReportStore mimics the conditional-update semantics of the real
// repository: transitions succeed only from the expected status/step and
// return nil otherwise.
type fakeReportStore struct {
	report *repository.ExpenseReport
}

func (f *fakeReportStore) GetByID(_ context.Context, id int64) (*repository.ExpenseReport, error) {
	if f.report == nil || f.report.ID != id {
		return nil, apperr.NotFound("report", id)
	}
	return f.report, nil
}

func (f *fakeReportStore) Submit(_ context.Context, id int64) (*repository.ExpenseReport, error) {
	if f.report == nil || f.report.ID != id || f.report.ApprovalStatus != repository.StatusDraft {
		return nil, nil
	}
	step := 1
	f.report.ApprovalStatus = repository.StatusPending
	f.report.ApprovalStep = &step
	return f.report, nil
}

func (f *fakeReportStore) Advance(_ context.Context, id int64, fromStep int) (*repository.ExpenseReport, error) {
	if !f.pendingAt(id, fromStep) {
		return nil, nil
	}
	*f.report.ApprovalStep++
	return f.report, nil
}

func (f *fakeReportStore) Approve(_ context.Context, id int64, fromStep int, approvedBy int64) (*repository.ExpenseReport, error) {
	if !f.pendingAt(id, fromStep) {
		return nil, nil
	}
	f.report.ApprovalStatus = repository.StatusApproved
	f.report.ApprovedBy = &approvedBy
	return f.report, nil
}

func (f *fakeReportStore) Reject(_ context.Context, id int64, fromStep int, reason string) (*repository.ExpenseReport, error) {
	if !f.pendingAt(id, fromStep) {
		return nil, nil
	}
	f.report.ApprovalStatus = repository.StatusRejected
	f.report.RejectionReason = &reason
	return f.report, nil
}

func (f *fakeReportStore) pendingAt(id int64, step int) bool {
	return f.report != nil &&
		f.report.ID == id &&
		f.report.ApprovalStatus == repository.StatusPending &&
		f.report.ApprovalStep != nil &&
		*f.report.ApprovalStep == step
}

type fakeRuleStore struct {
	rules []*repository.ApprovalRule
}

func (f *fakeRuleStore) Resolve(_ context.Context, costCenter string, amount int64, stepOrder int) (*repository.ApprovalRule, error) {
	var best *repository.ApprovalRule
	for _, r := range f.rules {
		if r.CostCenterCode != costCenter || r.StepOrder != stepOrder {
			continue
		}
		if amount < r.MinAmount || amount > r.MaxAmount {
			continue
		}
		if best == nil || r.MinAmount < best.MinAmount {
			best = r
		}
	}
	return best, nil
}

type recordedDecision struct {
	reportID int64
	level    int
	status   string
}

type fakeApprovalStore struct {
	pending   []recordedDecision
	decisions []recordedDecision
	trail     []*repository.Approval
}

func (f *fakeApprovalStore) CreatePending(_ context.Context, reportID, approverID int64, level int) error {
	f.pending = append(f.pending, recordedDecision{reportID: reportID, level: level, status: repository.ApprovalPending})
	return nil
}

func (f *fakeApprovalStore) RecordDecision(_ context.Context, reportID int64, level int, status string, _ *string) error {
	f.decisions = append(f.decisions, recordedDecision{reportID: reportID, level: level, status: status})
	return nil
}

func (f *fakeApprovalStore) ListByReport(_ context.Context, _ int64) ([]*repository.Approval, error) {
	return f.trail, nil
}

type fakeEmployeeStore struct {
	byEmail map[string]*repository.Employee
}

func (f *fakeEmployeeStore) GetByEmail(_ context.Context, email string) (*repository.Employee, error) {
	return f.byEmail[email], nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) PublishReportEvent(_ context.Context, eventType string, _ int64, _ string, _ []string, _ map[string]any) {
	f.events = append(f.events, eventType)
}

// ── Harness ──────────────────────────────────────────────────────────────────

type approvalHarness struct {
	svc       *ApprovalService
	reports   *fakeReportStore
	approvals *fakeApprovalStore
	notifier  *fakeNotifier
}

func newApprovalHarness(report *repository.ExpenseReport, rules []*repository.ApprovalRule) *approvalHarness {
	h := &approvalHarness{
		reports:   &fakeReportStore{report: report},
		approvals: &fakeApprovalStore{},
		notifier:  &fakeNotifier{},
	}
	employees := &fakeEmployeeStore{byEmail: map[string]*repository.Employee{
		"alice@example.com": {ID: 10, Email: "alice@example.com"},
		"bob@example.com":   {ID: 11, Email: "bob@example.com"},
	}}
	h.svc = NewApprovalService(h.reports, &fakeRuleStore{rules: rules}, h.approvals, employees, h.notifier, zerolog.Nop())
	return h
}

func draftReport() *repository.ExpenseReport {
	return &repository.ExpenseReport{
		ID:             1,
		EmployeeID:     5,
		CostCenterCode: "CC1",
		TotalAmount:    500,
		Currency:       "USD",
		ApprovalStatus: repository.StatusDraft,
	}
}

func pendingReport(step int) *repository.ExpenseReport {
	r := draftReport()
	r.ApprovalStatus = repository.StatusPending
	r.ApprovalStep = &step
	return r
}

func twoStepRules() []*repository.ApprovalRule {
	return []*repository.ApprovalRule{
		{CostCenterCode: "CC1", StepOrder: 1, MinAmount: 0, MaxAmount: 1000, ApproverEmail: "alice@example.com"},
		{CostCenterCode: "CC1", StepOrder: 2, MinAmount: 0, MaxAmount: 1000, ApproverEmail: "bob@example.com"},
	}
}

// ── Submit ───────────────────────────────────────────────────────────────────

func TestSubmitMovesDraftToPendingStepOne(t *testing.T) {
	h := newApprovalHarness(draftReport(), twoStepRules())

	res, err := h.svc.Submit(context.Background(), 1, "carol@example.com")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Step != 1 || res.NextApprover != "alice@example.com" {
		t.Fatalf("got step=%d approver=%q, want step=1 approver=alice", res.Step, res.NextApprover)
	}
	if res.Report.ApprovalStatus != repository.StatusPending {
		t.Fatalf("report status = %q, want pending", res.Report.ApprovalStatus)
	}
	if len(h.approvals.pending) != 1 || h.approvals.pending[0].level != 1 {
		t.Fatalf("expected one pending approval record at level 1, got %+v", h.approvals.pending)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != "report_submitted" {
		t.Fatalf("expected report_submitted event, got %v", h.notifier.events)
	}
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	_, err := h.svc.Submit(context.Background(), 1, "carol@example.com")
	if apperr.CodeOf(err) != apperr.CodeNotPending {
		t.Fatalf("error code = %q, want NOT_PENDING", apperr.CodeOf(err))
	}
}

func TestSubmitWithoutRuleLeavesReportUntouched(t *testing.T) {
	h := newApprovalHarness(draftReport(), nil)

	_, err := h.svc.Submit(context.Background(), 1, "carol@example.com")
	if apperr.CodeOf(err) != apperr.CodeNoRule {
		t.Fatalf("error code = %q, want NO_RULE", apperr.CodeOf(err))
	}
	if h.reports.report.ApprovalStatus != repository.StatusDraft {
		t.Fatalf("report mutated on NO_RULE: status=%q", h.reports.report.ApprovalStatus)
	}
	if len(h.notifier.events) != 0 {
		t.Fatalf("unexpected events: %v", h.notifier.events)
	}
}

func TestSubmitUnknownReport(t *testing.T) {
	h := newApprovalHarness(draftReport(), twoStepRules())

	_, err := h.svc.Submit(context.Background(), 999, "carol@example.com")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("error code = %q, want NOT_FOUND", apperr.CodeOf(err))
	}
}

// ── Act: approve ─────────────────────────────────────────────────────────────

func TestApproveAdvancesExactlyOneStep(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	res, err := h.svc.Act(context.Background(), 1, "alice@example.com", ActionApprove, nil)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if res.Step != 2 || res.NextApprover != "bob@example.com" {
		t.Fatalf("got step=%d approver=%q, want step=2 approver=bob", res.Step, res.NextApprover)
	}
	if res.FinalStatus != "" {
		t.Fatalf("non-final approve set final_status=%q", res.FinalStatus)
	}
	if res.Report.ApprovalStatus != repository.StatusPending || *res.Report.ApprovalStep != 2 {
		t.Fatalf("report = %q/%d, want pending/2", res.Report.ApprovalStatus, *res.Report.ApprovalStep)
	}
	if len(h.approvals.decisions) != 1 || h.approvals.decisions[0].status != repository.ApprovalApproved {
		t.Fatalf("expected one approved decision, got %+v", h.approvals.decisions)
	}
}

func TestApproveFinalStepIsTerminal(t *testing.T) {
	h := newApprovalHarness(pendingReport(2), twoStepRules())

	res, err := h.svc.Act(context.Background(), 1, "bob@example.com", ActionApprove, nil)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if res.FinalStatus != repository.StatusApproved {
		t.Fatalf("final_status = %q, want approved", res.FinalStatus)
	}
	if res.Report.ApprovalStatus != repository.StatusApproved {
		t.Fatalf("report status = %q, want approved", res.Report.ApprovalStatus)
	}
	if res.Report.ApprovedBy == nil || *res.Report.ApprovedBy != 11 {
		t.Fatalf("approved_by = %v, want 11", res.Report.ApprovedBy)
	}

	// A further decision must fail: the workflow is terminal.
	_, err = h.svc.Act(context.Background(), 1, "bob@example.com", ActionApprove, nil)
	if apperr.CodeOf(err) != apperr.CodeNotPending {
		t.Fatalf("post-terminal error code = %q, want NOT_PENDING", apperr.CodeOf(err))
	}
}

func TestApproveFullChain(t *testing.T) {
	h := newApprovalHarness(draftReport(), twoStepRules())
	ctx := context.Background()

	if _, err := h.svc.Submit(ctx, 1, "carol@example.com"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := h.svc.Act(ctx, 1, "alice@example.com", ActionApprove, nil); err != nil {
		t.Fatalf("step 1 approve failed: %v", err)
	}
	res, err := h.svc.Act(ctx, 1, "bob@example.com", ActionApprove, nil)
	if err != nil {
		t.Fatalf("step 2 approve failed: %v", err)
	}
	if res.FinalStatus != repository.StatusApproved {
		t.Fatalf("final_status = %q, want approved", res.FinalStatus)
	}

	want := []string{"report_submitted", "step_approved", "report_approved"}
	if len(h.notifier.events) != len(want) {
		t.Fatalf("events = %v, want %v", h.notifier.events, want)
	}
	for i, e := range want {
		if h.notifier.events[i] != e {
			t.Fatalf("events = %v, want %v", h.notifier.events, want)
		}
	}
}

// ── Act: reject ──────────────────────────────────────────────────────────────

func TestRejectIsTerminalAtAnyStep(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	res, err := h.svc.Act(context.Background(), 1, "alice@example.com", ActionReject, nil)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if res.FinalStatus != repository.StatusRejected {
		t.Fatalf("final_status = %q, want rejected", res.FinalStatus)
	}
	if res.Report.RejectionReason == nil || *res.Report.RejectionReason != "Rejected by approver" {
		t.Fatalf("rejection_reason = %v, want default reason", res.Report.RejectionReason)
	}

	_, err = h.svc.Act(context.Background(), 1, "alice@example.com", ActionApprove, nil)
	if apperr.CodeOf(err) != apperr.CodeNotPending {
		t.Fatalf("post-reject error code = %q, want NOT_PENDING", apperr.CodeOf(err))
	}
}

func TestRejectStoresRemarkAsReason(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	remark := "missing receipts"
	res, err := h.svc.Act(context.Background(), 1, "alice@example.com", ActionReject, &remark)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if res.Report.RejectionReason == nil || *res.Report.RejectionReason != remark {
		t.Fatalf("rejection_reason = %v, want %q", res.Report.RejectionReason, remark)
	}
}

// ── Act: authorization and input ─────────────────────────────────────────────

func TestActRejectsWrongApprover(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	_, err := h.svc.Act(context.Background(), 1, "mallory@example.com", ActionApprove, nil)
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("error code = %q, want FORBIDDEN", apperr.CodeOf(err))
	}
	if h.reports.report.ApprovalStatus != repository.StatusPending || *h.reports.report.ApprovalStep != 1 {
		t.Fatalf("report mutated by forbidden actor")
	}
}

func TestActRejectsUnknownActor(t *testing.T) {
	rules := []*repository.ApprovalRule{
		{CostCenterCode: "CC1", StepOrder: 1, MinAmount: 0, MaxAmount: 1000, ApproverEmail: "ghost@example.com"},
	}
	h := newApprovalHarness(pendingReport(1), rules)

	_, err := h.svc.Act(context.Background(), 1, "ghost@example.com", ActionApprove, nil)
	if apperr.CodeOf(err) != apperr.CodeActorNotFound {
		t.Fatalf("error code = %q, want ACTOR_NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestActRejectsInvalidAction(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	_, err := h.svc.Act(context.Background(), 1, "alice@example.com", "defer", nil)
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("error code = %q, want VALIDATION", apperr.CodeOf(err))
	}
}

func TestActRejectsNonPendingReport(t *testing.T) {
	h := newApprovalHarness(draftReport(), twoStepRules())

	_, err := h.svc.Act(context.Background(), 1, "alice@example.com", ActionApprove, nil)
	if apperr.CodeOf(err) != apperr.CodeNotPending {
		t.Fatalf("error code = %q, want NOT_PENDING", apperr.CodeOf(err))
	}
}

// ── Trail robustness ─────────────────────────────────────────────────────────

func TestSubmitSucceedsWhenApproverUnresolvable(t *testing.T) {
	rules := []*repository.ApprovalRule{
		{CostCenterCode: "CC1", StepOrder: 1, MinAmount: 0, MaxAmount: 1000, ApproverEmail: "ghost@example.com"},
	}
	h := newApprovalHarness(draftReport(), rules)

	res, err := h.svc.Submit(context.Background(), 1, "carol@example.com")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Report.ApprovalStatus != repository.StatusPending {
		t.Fatalf("report status = %q, want pending", res.Report.ApprovalStatus)
	}
	if len(h.approvals.pending) != 0 {
		t.Fatalf("pending record created for unresolvable approver: %+v", h.approvals.pending)
	}
}

func TestHistoryReturnsTrail(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())
	h.approvals.trail = []*repository.Approval{
		{ID: 1, EntityID: 1, Level: 1, Status: repository.ApprovalPending},
	}

	trail, err := h.svc.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(trail) != 1 || trail[0].Level != 1 {
		t.Fatalf("trail = %+v, want one level-1 row", trail)
	}
}

func TestHistoryUnknownReport(t *testing.T) {
	h := newApprovalHarness(pendingReport(1), twoStepRules())

	_, err := h.svc.History(context.Background(), 42)
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("error code = %q, want NOT_FOUND", apperr.CodeOf(err))
	}
}
