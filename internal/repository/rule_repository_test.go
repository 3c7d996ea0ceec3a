package repository

import (
	"context"
	"testing"

	"expense-reports-service/internal/apperr"
)

func TestBandsOverlap(t *testing.T) {
	cases := []struct {
		name                   string
		minA, maxA, minB, maxB int64
		want                   bool
	}{
		{"identical", 0, 1000, 0, 1000, true},
		{"contained", 100, 200, 0, 1000, true},
		{"contains", 0, 1000, 100, 200, true},
		{"partial low", 0, 500, 400, 1000, true},
		{"partial high", 400, 1000, 0, 500, true},
		{"touching endpoints", 0, 1000, 1000, 2000, true},
		{"adjacent", 0, 999, 1000, 2000, false},
		{"disjoint below", 0, 100, 500, 1000, false},
		{"disjoint above", 2000, 3000, 0, 1000, false},
		{"single point inside", 500, 500, 0, 1000, true},
		{"single point outside", 1500, 1500, 0, 1000, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := bandsOverlap(c.minA, c.maxA, c.minB, c.maxB); got != c.want {
				t.Fatalf("bandsOverlap(%d,%d,%d,%d) = %v, want %v",
					c.minA, c.maxA, c.minB, c.maxB, got, c.want)
			}
			// Overlap is symmetric.
			if got := bandsOverlap(c.minB, c.maxB, c.minA, c.maxA); got != c.want {
				t.Fatalf("bandsOverlap(%d,%d,%d,%d) = %v, want %v",
					c.minB, c.maxB, c.minA, c.maxA, got, c.want)
			}
		})
	}
}

func TestCreateRejectsInvertedBand(t *testing.T) {
	r := NewRuleRepository(nil)

	rule := &ApprovalRule{
		CostCenterCode: "CC1",
		StepOrder:      1,
		MinAmount:      5000,
		MaxAmount:      1000,
		ApproverEmail:  "alice@example.com",
	}
	err := r.Create(context.Background(), rule)
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("error code = %q, want VALIDATION", apperr.CodeOf(err))
	}
}
