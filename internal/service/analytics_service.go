package service

import (
	"context"

	"github.com/rs/zerolog"

	"expense-reports-service/internal/repository"
)

// AnalyticsStore reads the precomputed rollup views.
type AnalyticsStore interface {
	SpendByCategory30d(ctx context.Context) ([]*repository.CategorySpend, error)
	PolicyViolations(ctx context.Context) ([]*repository.PolicyViolation, error)
}

// AnalyticsService serves read-only rollups over expenses and approvals.
type AnalyticsService struct {
	analytics AnalyticsStore
	log       zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(analytics AnalyticsStore, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, log: log}
}

// Summary is the analytics rollup payload.
type Summary struct {
	SpendByCategory30d []*repository.CategorySpend   `json:"spend_by_category_30d"`
	PolicyViolations   []*repository.PolicyViolation `json:"policy_violations"`
}

// Summary returns the spend-by-category rollup and the policy-violation list.
func (s *AnalyticsService) Summary(ctx context.Context) (*Summary, error) {
	spend, err := s.analytics.SpendByCategory30d(ctx)
	if err != nil {
		return nil, err
	}

	violations, err := s.analytics.PolicyViolations(ctx)
	if err != nil {
		return nil, err
	}

	if spend == nil {
		spend = []*repository.CategorySpend{}
	}
	if violations == nil {
		violations = []*repository.PolicyViolation{}
	}

	return &Summary{
		SpendByCategory30d: spend,
		PolicyViolations:   violations,
	}, nil
}
