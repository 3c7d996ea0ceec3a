package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"expense-reports-service/internal/apperr"
	"expense-reports-service/internal/payments"
	"expense-reports-service/internal/repository"
)

// PaymentFileFormat identifies the generated payment file flavor.
const PaymentFileFormat = "ISO20022_pain001"

// ApprovedReportSource loads the approved reports eligible for payment.
type ApprovedReportSource interface {
	ListApprovedByIDs(ctx context.Context, ids []int64) ([]*repository.ExpenseReport, error)
}

// PaymentService turns approved expense reports into a pain.001 payment file.
type PaymentService struct {
	reports ApprovedReportSource
	debtor  string
	log     zerolog.Logger
}

// NewPaymentService creates a new PaymentService. debtor names the paying
// party in generated files.
func NewPaymentService(reports ApprovedReportSource, debtor string, log zerolog.Logger) *PaymentService {
	if debtor == "" {
		debtor = "Expense Reimbursements"
	}
	return &PaymentService{reports: reports, debtor: debtor, log: log}
}

// PaymentFile is the generation result.
type PaymentFile struct {
	PaymentFile string `json:"payment_file"`
	PaymentID   string `json:"payment_id"`
	Format      string `json:"format"`
}

// Generate builds a pain.001 file covering the approved reports among ids.
// paymentDate defaults to today when empty.
func (s *PaymentService) Generate(ctx context.Context, ids []int64, paymentDate string) (*PaymentFile, error) {
	if len(ids) == 0 {
		return nil, apperr.InvalidInput("report_ids", "array required")
	}
	if paymentDate == "" {
		paymentDate = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", paymentDate); err != nil {
		return nil, apperr.InvalidInput("payment_date", "invalid date format, expected YYYY-MM-DD")
	}

	reports, err := s.reports.ListApprovedByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, apperr.New(apperr.CodeNotFound, "no approved reports found for the given ids")
	}

	transfers := make([]payments.Transfer, 0, len(reports))
	for _, r := range reports {
		transfers = append(transfers, payments.Transfer{
			EndToEndID: fmt.Sprintf("EXP-%d", r.ID),
			Creditor:   fmt.Sprintf("Employee %d", r.EmployeeID),
			Amount:     r.TotalAmount,
			Currency:   r.Currency,
		})
	}

	paymentID := "PAY-" + uuid.NewString()
	file, err := payments.BuildPain001(paymentID, s.debtor, paymentDate, time.Now(), transfers)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeRPCError, "failed to build payment file")
	}

	s.log.Info().
		Str("payment_id", paymentID).
		Int("report_count", len(reports)).
		Msg("Payment file generated")

	return &PaymentFile{
		PaymentFile: file,
		PaymentID:   paymentID,
		Format:      PaymentFileFormat,
	}, nil
}
