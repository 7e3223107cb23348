package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	monthsInYear = decimal.NewFromInt(12)
	one          = decimal.NewFromInt(1)
)

// ComputeEMI returns the fixed monthly installment amortizing principal over
// months at the given annual rate, rounded to 2 decimal places:
//
//	emi = principal * r * (1+r)^months / ((1+r)^months - 1)
//
// with r the monthly rate (annualRate / 12). months must be positive; the
// purchase flow rejects non-positive terms before calling. A zero rate
// degenerates to an even split of the principal.
func ComputeEMI(principal decimal.Decimal, months int, annualRate decimal.Decimal) decimal.Decimal {
	n := decimal.NewFromInt(int64(months))
	r := annualRate.Div(monthsInYear)
	if r.IsZero() {
		return principal.Div(n).Round(2)
	}

	compounded := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(compounded).Div(compounded.Sub(one))
	return emi.Round(2)
}

// ComputePenalty returns the penalty accrued on an outstanding principal
// after the given number of overdue days, at a flat (non-compounding) daily
// rate, rounded to 2 decimal places. Non-positive overdue days (plan not yet
// due) yield a zero penalty.
func ComputePenalty(overdueDays int, outstandingPrincipal decimal.Decimal, dailyRate decimal.Decimal) decimal.Decimal {
	if overdueDays <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(overdueDays)).Mul(outstandingPrincipal).Mul(dailyRate).Round(2)
}

// overdueDays counts whole days elapsed past due as of today; negative when
// the due date is still in the future.
func overdueDays(today, due time.Time) int {
	return int(today.Sub(due).Hours() / 24)
}
