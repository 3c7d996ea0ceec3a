package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/client"
	"expense-reports-service/internal/repository"
	"expense-reports-service/internal/service"
)

// RuleAdmin is the approval-rule ingestion surface.
type RuleAdmin interface {
	Create(ctx context.Context, rule *repository.ApprovalRule) error
	List(ctx context.Context, costCenter string) ([]*repository.ApprovalRule, error)
}

// DocumentParser is the narrow OCR collaborator interface.
type DocumentParser interface {
	ParseDocument(ctx context.Context, filename, contentType string, file io.Reader) (*client.OCRResult, error)
}

// HTTPHandler holds the business handlers behind the contract wrapper.
type HTTPHandler struct {
	expenses  *service.ExpenseService
	approvals *service.ApprovalService
	analytics *service.AnalyticsService
	payments  *service.PaymentService
	rules     RuleAdmin
	ocr       DocumentParser
	log       zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	expenses *service.ExpenseService,
	approvals *service.ApprovalService,
	analytics *service.AnalyticsService,
	payments *service.PaymentService,
	rules RuleAdmin,
	ocr DocumentParser,
	log zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		expenses:  expenses,
		approvals: approvals,
		analytics: analytics,
		payments:  payments,
		rules:     rules,
		ocr:       ocr,
		log:       log,
	}
}

// ── Expenses ─────────────────────────────────────────────────────────────────

// Expenses dispatches GET (list) and POST (create) on /expenses.
func (h *HTTPHandler) Expenses(r *http.Request) (any, error) {
	if r.Method == http.MethodGet {
		return h.listExpenses(r)
	}
	return h.createExpense(r)
}

func (h *HTTPHandler) listExpenses(r *http.Request) (any, error) {
	limit := service.DefaultExpenseLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.InvalidInput("limit", "must be an integer")
		}
		limit = n
	}
	expenses, err := h.expenses.List(r.Context(), limit)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []*repository.Expense{}
	}
	return expenses, nil
}

func (h *HTTPHandler) createExpense(r *http.Request) (any, error) {
	var req service.CreateExpenseRequest
	if err := decodeStrict(r, &req); err != nil {
		return nil, err
	}
	id, err := h.expenses.Create(r.Context(), &req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

// ── Approvals ────────────────────────────────────────────────────────────────

type submitRequest struct {
	ReportID   int64  `json:"report_id"`
	ActorEmail string `json:"actor_email"`
}

// SubmitReport moves a draft report into the approval workflow.
func (h *HTTPHandler) SubmitReport(r *http.Request) (any, error) {
	var req submitRequest
	if err := decodeStrict(r, &req); err != nil {
		return nil, err
	}
	if req.ReportID == 0 || req.ActorEmail == "" {
		return nil, apperr.New(apperr.CodeValidation, "report_id and actor_email required")
	}
	return h.approvals.Submit(r.Context(), req.ReportID, req.ActorEmail)
}

type stepRequest struct {
	ReportID   int64   `json:"report_id"`
	ActorEmail string  `json:"actor_email"`
	Action     string  `json:"action"`
	Remark     *string `json:"remark"`
}

// StepReport records an approve/reject decision on the current step.
func (h *HTTPHandler) StepReport(r *http.Request) (any, error) {
	var req stepRequest
	if err := decodeStrict(r, &req); err != nil {
		return nil, err
	}
	if req.ReportID == 0 || req.ActorEmail == "" || req.Action == "" {
		return nil, apperr.New(apperr.CodeValidation, "report_id, action, and actor_email required")
	}
	return h.approvals.Act(r.Context(), req.ReportID, req.ActorEmail, req.Action, req.Remark)
}

// ApprovalHistory returns the audit trail for one report.
func (h *HTTPHandler) ApprovalHistory(r *http.Request) (any, error) {
	raw := r.URL.Query().Get("report_id")
	if raw == "" {
		return nil, apperr.InvalidInput("report_id", "required")
	}
	reportID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.InvalidInput("report_id", "must be an integer")
	}

	history, err := h.approvals.History(r.Context(), reportID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*repository.Approval{}
	}
	return history, nil
}

// ── Analytics ────────────────────────────────────────────────────────────────

// AnalyticsSummary returns the read-only rollups.
func (h *HTTPHandler) AnalyticsSummary(r *http.Request) (any, error) {
	return h.analytics.Summary(r.Context())
}

// ── Payments ─────────────────────────────────────────────────────────────────

type generatePaymentsRequest struct {
	ReportIDs   []int64 `json:"report_ids"`
	PaymentDate string  `json:"payment_date"`
}

// GeneratePayments builds a pain.001 file for approved reports.
func (h *HTTPHandler) GeneratePayments(r *http.Request) (any, error) {
	var req generatePaymentsRequest
	if err := decodeStrict(r, &req); err != nil {
		return nil, err
	}
	return h.payments.Generate(r.Context(), req.ReportIDs, req.PaymentDate)
}

// ── Approval rules ───────────────────────────────────────────────────────────

// ApprovalRules dispatches GET (list) and POST (create) on /approval-rules.
func (h *HTTPHandler) ApprovalRules(r *http.Request) (any, error) {
	if r.Method == http.MethodGet {
		rules, err := h.rules.List(r.Context(), r.URL.Query().Get("cost_center"))
		if err != nil {
			return nil, err
		}
		if rules == nil {
			rules = []*repository.ApprovalRule{}
		}
		return rules, nil
	}
	return h.createRule(r)
}

type createRuleRequest struct {
	CostCenterCode string `json:"cost_center_code"`
	StepOrder      int    `json:"step_order"`
	MinAmount      int64  `json:"min_amount"`
	MaxAmount      int64  `json:"max_amount"`
	ApproverEmail  string `json:"approver_email"`
}

func (h *HTTPHandler) createRule(r *http.Request) (any, error) {
	var req createRuleRequest
	if err := decodeStrict(r, &req); err != nil {
		return nil, err
	}
	if req.CostCenterCode == "" {
		return nil, apperr.InvalidInput("cost_center_code", "required")
	}
	if req.StepOrder < 1 {
		return nil, apperr.InvalidInput("step_order", "must be >= 1")
	}
	if req.ApproverEmail == "" {
		return nil, apperr.InvalidInput("approver_email", "required")
	}

	rule := &repository.ApprovalRule{
		CostCenterCode: req.CostCenterCode,
		StepOrder:      req.StepOrder,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		ApproverEmail:  req.ApproverEmail,
	}
	if err := h.rules.Create(r.Context(), rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ── OCR ──────────────────────────────────────────────────────────────────────

// Content types the OCR glue accepts.
var allowedOCRTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/webp":      true,
}

// maxOCRUploadBytes bounds in-memory multipart parsing.
const maxOCRUploadBytes = 32 << 20

// ParseDocument proxies a document upload to the external OCR service.
func (h *HTTPHandler) ParseDocument(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxOCRUploadBytes); err != nil {
		return nil, apperr.InvalidInput("file", "multipart form-data body required")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.InvalidInput("file", "no file provided")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedOCRTypes[contentType] {
		return nil, apperr.InvalidInput("file", "invalid file type; supported: PDF, PNG, JPEG, WebP")
	}

	return h.ocr.ParseDocument(r.Context(), header.Filename, contentType, file)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// decodeStrict decodes a JSON body, rejecting unknown fields and trailing
// data after the object.
func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "request body required")
		}
		msg := err.Error()
		if strings.Contains(msg, "unknown field") {
			return apperr.New(apperr.CodeValidation, msg)
		}
		return apperr.New(apperr.CodeValidation, "invalid request body")
	}
	if dec.More() {
		return apperr.New(apperr.CodeValidation, "invalid request body")
	}
	return nil
}
