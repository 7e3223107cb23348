package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

func testPlan(principal, emi float64, remaining int, due time.Time) *models.RepaymentPlan {
	return &models.RepaymentPlan{
		ID:                    uuid.New(),
		PurchaseID:            uuid.New(),
		UserID:                "u1",
		Principal:             decimal.NewFromFloat(principal),
		EMI:                   decimal.NewFromFloat(emi),
		Months:                remaining,
		RemainingInstallments: remaining,
		NextDueDate:           due,
		Penalties:             decimal.Zero,
		CreatedAt:             due.AddDate(0, 0, -30),
	}
}

func TestApplyPayment_PartialNotOverdue(t *testing.T) {
	l := newTestLedger(NewMockStore())
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := testPlan(1200, 100, 12, today.AddDate(0, 0, 15))

	consumed, closed := l.applyPayment(plan, decimal.NewFromInt(300), today)

	if !consumed.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected consumed 300, got %s", consumed)
	}
	if closed {
		t.Error("Expected plan to stay open")
	}
	if !plan.Principal.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected principal 900, got %s", plan.Principal)
	}
	if plan.RemainingInstallments != 9 {
		t.Errorf("Expected 9 remaining installments, got %d", plan.RemainingInstallments)
	}
	if !plan.NextDueDate.Equal(today.AddDate(0, 0, 30)) {
		t.Errorf("Expected due date advanced to %s, got %s", today.AddDate(0, 0, 30), plan.NextDueDate)
	}
	if !plan.Penalties.Equal(decimal.Zero) {
		t.Errorf("Expected penalties reset to 0, got %s", plan.Penalties)
	}
}

func TestApplyPayment_PenaltyFoldedIntoPrincipal(t *testing.T) {
	l := newTestLedger(NewMockStore())
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := testPlan(1000, 100, 10, today.AddDate(0, 0, -10)) // 10 days overdue

	consumed, closed := l.applyPayment(plan, decimal.NewFromInt(200), today)

	// penalty = 10 * 1000 * 0.01 = 100, folded in before allocation
	if !consumed.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected consumed 200, got %s", consumed)
	}
	if closed {
		t.Error("Expected plan to stay open")
	}
	if !plan.Principal.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected principal 1000+100-200=900, got %s", plan.Principal)
	}
	if plan.RemainingInstallments != 9 {
		t.Errorf("Expected 9 remaining installments, got %d", plan.RemainingInstallments)
	}
}

func TestApplyPayment_CappedAtRemainingInstallments(t *testing.T) {
	l := newTestLedger(NewMockStore())
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := testPlan(150, 100, 2, today.AddDate(0, 0, 15))

	consumed, closed := l.applyPayment(plan, decimal.NewFromInt(1000), today)

	// cap = emi * remaining = 200; the 50 overshoot past the 150 principal
	// is absorbed by the plan, not returned
	if !consumed.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected consumed capped at 200, got %s", consumed)
	}
	if !closed {
		t.Error("Expected plan to close")
	}
}

func TestApplyPayment_ClosesWhenInstallmentsExhausted(t *testing.T) {
	l := newTestLedger(NewMockStore())
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := testPlan(1000, 300, 3, today.AddDate(0, 0, 15))

	consumed, closed := l.applyPayment(plan, decimal.NewFromInt(750), today)

	// newPrincipal = 250 is positive, but floor(250/300) = 0 installments
	// remain, so the plan is terminal either way
	if !consumed.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected consumed 750, got %s", consumed)
	}
	if !closed {
		t.Error("Expected plan to close once no installments remain")
	}
}

func TestApplyPayment_ExactPayoff(t *testing.T) {
	l := newTestLedger(NewMockStore())
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := testPlan(500, 100, 5, today.AddDate(0, 0, 15))

	consumed, closed := l.applyPayment(plan, decimal.NewFromInt(500), today)

	if !consumed.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected consumed 500, got %s", consumed)
	}
	if !closed {
		t.Error("Expected plan to close on exact payoff")
	}
	if plan.RemainingInstallments != 0 {
		t.Errorf("Expected 0 remaining installments, got %d", plan.RemainingInstallments)
	}
}
