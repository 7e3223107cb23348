package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeEMI_MatchesAmortizationFormula(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	annualRate := decimal.NewFromFloat(0.02)
	months := 12

	got := ComputeEMI(principal, months, annualRate)

	// Closed-form check, computed independently of the implementation:
	// emi = P * r * (1+r)^n / ((1+r)^n - 1) with r = annual/12.
	r := annualRate.Div(decimal.NewFromInt(12))
	n := decimal.NewFromInt(int64(months))
	compounded := decimal.NewFromInt(1).Add(r).Pow(n)
	want := principal.Mul(r).Mul(compounded).Div(compounded.Sub(decimal.NewFromInt(1))).Round(2)

	if !got.Equal(want) {
		t.Errorf("Expected EMI %s, got %s", want, got)
	}

	// 12 installments must repay more than the principal at a positive rate.
	if !got.Mul(n).GreaterThan(principal) {
		t.Errorf("Expected %s * %d to exceed principal %s", got, months, principal)
	}

	// Currency-minor-unit rounding.
	if !got.Equal(got.Round(2)) {
		t.Errorf("Expected EMI rounded to 2 decimal places, got %s", got)
	}
}

func TestComputeEMI_ZeroRate(t *testing.T) {
	got := ComputeEMI(decimal.NewFromInt(1200), 12, decimal.Zero)
	want := decimal.NewFromInt(100)
	if !got.Equal(want) {
		t.Errorf("Expected EMI %s at zero rate, got %s", want, got)
	}
}

func TestComputePenalty(t *testing.T) {
	rate := decimal.NewFromFloat(0.01)
	outstanding := decimal.NewFromInt(1000)

	if got := ComputePenalty(-5, outstanding, rate); !got.Equal(decimal.Zero) {
		t.Errorf("Expected zero penalty before due date, got %s", got)
	}
	if got := ComputePenalty(0, outstanding, rate); !got.Equal(decimal.Zero) {
		t.Errorf("Expected zero penalty on due date, got %s", got)
	}

	want := decimal.NewFromInt(100)
	if got := ComputePenalty(10, outstanding, rate); !got.Equal(want) {
		t.Errorf("Expected penalty %s for 10 overdue days, got %s", want, got)
	}
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := overdueDays(due.AddDate(0, 0, 31), due); got != 31 {
		t.Errorf("Expected 31 overdue days, got %d", got)
	}
	if got := overdueDays(due.AddDate(0, 0, -5), due); got >= 0 {
		t.Errorf("Expected negative overdue days before due date, got %d", got)
	}
	if got := overdueDays(due, due); got != 0 {
		t.Errorf("Expected 0 overdue days on due date, got %d", got)
	}
}
