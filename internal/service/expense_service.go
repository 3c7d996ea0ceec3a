package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/repository"
)

// Limits applied to expense listing regardless of caller input.
const (
	DefaultExpenseLimit = 25
	maxExpenseLimit     = 100
)

// ExpenseStore is the persistence surface for expense line items.
type ExpenseStore interface {
	List(ctx context.Context, limit int) ([]*repository.Expense, error)
	Create(ctx context.Context, e *repository.Expense) error
}

// ExpenseService handles expense line-item capture, decoupled from the
// report approval lifecycle.
type ExpenseService struct {
	expenses  ExpenseStore
	employees EmployeeStore
	log       zerolog.Logger
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenses ExpenseStore, employees EmployeeStore, log zerolog.Logger) *ExpenseService {
	return &ExpenseService{expenses: expenses, employees: employees, log: log}
}

// CreateExpenseRequest is the validated create payload.
type CreateExpenseRequest struct {
	EmployeeEmail string `json:"employee_email"`
	ExpenseType   string `json:"expense_type"`
	TxnDate       string `json:"txn_date"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Merchant      string `json:"merchant,omitempty"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
}

// List returns the most recent expenses. Limit is clamped to
// [1, maxExpenseLimit]; zero or negative input becomes 1.
func (s *ExpenseService) List(ctx context.Context, limit int) ([]*repository.Expense, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxExpenseLimit {
		limit = maxExpenseLimit
	}
	return s.expenses.List(ctx, limit)
}

// Create validates the request, resolves the employee and persists the
// expense, returning its new identifier.
func (s *ExpenseService) Create(ctx context.Context, req *CreateExpenseRequest) (int64, error) {
	if req.EmployeeEmail == "" {
		return 0, apperr.InvalidInput("employee_email", "required")
	}
	if req.ExpenseType == "" {
		return 0, apperr.InvalidInput("expense_type", "required")
	}
	if req.Amount <= 0 {
		return 0, apperr.InvalidInput("amount", "must be positive")
	}
	if len(req.Currency) != 3 {
		return 0, apperr.InvalidInput("currency", "must be 3-letter ISO code")
	}
	if _, err := time.Parse("2006-01-02", req.TxnDate); err != nil {
		return 0, apperr.InvalidInput("txn_date", "invalid date format, expected YYYY-MM-DD")
	}

	employee, err := s.employees.GetByEmail(ctx, req.EmployeeEmail)
	if err != nil {
		return 0, err
	}
	if employee == nil {
		return 0, apperr.New(apperr.CodeEmployeeNotFound, "employee not found")
	}

	expense := &repository.Expense{
		EmployeeID:  employee.ID,
		ExpenseType: req.ExpenseType,
		TxnDate:     req.TxnDate,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Merchant:    req.Merchant,
		ReceiptURL:  req.ReceiptURL,
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		return 0, err
	}

	s.log.Info().
		Int64("expense_id", expense.ID).
		Str("employee_email", req.EmployeeEmail).
		Int64("amount", req.Amount).
		Str("currency", expense.Currency).
		Msg("Expense created")

	return expense.ID, nil
}
