package repository

import "time"

// ── Report lifecycle ─────────────────────────────────────────────────────────

// Approval statuses for an expense report.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ExpenseReport is the aggregate the approval workflow operates on. Amounts
// are integer minor units (cents). ApprovalStep is set only while pending.
type ExpenseReport struct {
	ID              int64      `json:"id"`
	EmployeeID      int64      `json:"employee_id"`
	CostCenterCode  string     `json:"cost_center_code"`
	TotalAmount     int64      `json:"total_amount"`
	Currency        string     `json:"currency"`
	ApprovalStatus  string     `json:"approval_status"`
	ApprovalStep    *int       `json:"approval_step"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovedBy      *int64     `json:"approved_by"`
	RejectionReason *string    `json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ApprovalRule routes one approval step: for a cost center and an amount
// inside [MinAmount, MaxAmount], the step at StepOrder belongs to
// ApproverEmail. Bands for the same (cost_center_code, step_order) must not
// overlap; the resolver breaks ties on pre-existing data by lowest min_amount.
type ApprovalRule struct {
	ID             int64     `json:"id"`
	CostCenterCode string    `json:"cost_center_code"`
	StepOrder      int       `json:"step_order"`
	MinAmount      int64     `json:"min_amount"`
	MaxAmount      int64     `json:"max_amount"`
	ApproverEmail  string    `json:"approver_email"`
	CreatedAt      time.Time `json:"created_at"`
}

// Approval step-decision statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Approval is one row per step attempted on a report. Rows are created
// pending when a report enters a step and updated when the approver acts;
// they are never deleted, forming an append-only audit trail.
type Approval struct {
	ID            int64      `json:"id"`
	EntityType    string     `json:"entity_type"`
	EntityID      int64      `json:"entity_id"`
	ApproverID    int64      `json:"approver_id"`
	ApproverEmail string     `json:"approver_email,omitempty"`
	Level         int        `json:"level"`
	Status        string     `json:"status"`
	DecisionDate  *time.Time `json:"decision_date"`
	Comments      *string    `json:"comments"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EntityTypeExpenseReport is the only entity type the workflow handles today.
const EntityTypeExpenseReport = "expense_report"

// ── Supporting aggregates ────────────────────────────────────────────────────

// Employee resolves an external-facing email to an internal identifier.
type Employee struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Expense is a single expense line item, decoupled from report lifecycle.
type Expense struct {
	ID            int64     `json:"id"`
	EmployeeID    int64     `json:"employee_id"`
	EmployeeEmail string    `json:"employee_email,omitempty"`
	ExpenseType   string    `json:"expense_type"`
	TxnDate       string    `json:"txn_date"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Merchant      string    `json:"merchant"`
	ReceiptURL    string    `json:"receipt_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// CategorySpend is one row of the 30-day spend-by-category rollup view.
type CategorySpend struct {
	Category    string `json:"category"`
	TotalAmount int64  `json:"total_amount"`
	TxnCount    int64  `json:"txn_count"`
}

// PolicyViolation is one row of the policy-violation view.
type PolicyViolation struct {
	ExpenseID     int64  `json:"expense_id"`
	EmployeeEmail string `json:"employee_email"`
	Rule          string `json:"rule"`
	Amount        int64  `json:"amount"`
	TxnDate       string `json:"txn_date"`
}
