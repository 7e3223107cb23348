package ledger

import (
	"time"

	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// applyPayment runs one repayment cycle for a single open plan. Any penalty
// accrued as of today is folded into the principal before allocation, then
// at most emi * remaining installments of the payment is consumed — surplus
// funds must flow to the next plan in allocation order, not be absorbed by
// one plan's future installments.
//
// The plan is mutated in place. When it stays open, the due date advances a
// full cycle from today and the penalty bucket resets to zero. The returned
// amount is what this plan actually consumed; closed reports whether the
// plan reached its terminal state (remaining installments exhausted or
// principal fully paid) and must be deleted by the caller.
func (l *Ledger) applyPayment(plan *models.RepaymentPlan, paymentAmount decimal.Decimal, today time.Time) (consumed decimal.Decimal, closed bool) {
	penalty := ComputePenalty(overdueDays(today, plan.NextDueDate), plan.Principal, l.cfg.DailyPenaltyRate)
	effectivePrincipal := plan.Principal.Add(penalty)

	maxPayable := plan.EMI.Mul(decimal.NewFromInt(int64(plan.RemainingInstallments)))
	consumed = decimal.Min(paymentAmount, maxPayable)

	newPrincipal := effectivePrincipal.Sub(consumed)
	remaining := newPrincipal.Div(plan.EMI).IntPart()
	if remaining < 0 {
		remaining = 0
	}

	plan.Principal = newPrincipal
	plan.RemainingInstallments = int(remaining)
	plan.Penalties = decimal.Zero

	if remaining == 0 || !newPrincipal.IsPositive() {
		// Terminal. A slightly negative principal is absorbed, not refunded.
		return consumed, true
	}

	plan.NextDueDate = today.AddDate(0, 0, l.cfg.CycleDays)
	return consumed, false
}
