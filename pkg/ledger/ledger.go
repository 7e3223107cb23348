package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nkathuria/bnpl-ledger/pkg/config"
	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/nkathuria/bnpl-ledger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Ledger handles the business logic for credit, purchases and repayments.
// Operations on the same user are serialized by a per-user lock; operations
// on different users proceed in parallel. Each operation runs inside a
// single storage transaction, so a failed precondition leaves no partial
// mutation.
type Ledger struct {
	storage store.Storage
	cfg     *config.Config
	log     *logrus.Logger
	now     func() time.Time // injectable for deterministic date logic in tests

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// PaymentResult summarizes how one incoming payment was allocated.
type PaymentResult struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	Consumed     decimal.Decimal `json:"consumed"`      // total applied to plans
	Leftover     decimal.Decimal `json:"leftover"`      // returned to available credit
	PlansTouched int             `json:"plans_touched"` // plans visited this cycle
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, cfg *config.Config, log *logrus.Logger) *Ledger {
	return &Ledger{
		storage:   s,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// lockUser acquires the single-writer lock for one user and returns the
// release function.
func (l *Ledger) lockUser(userID string) func() {
	l.mu.Lock()
	lk, ok := l.userLocks[userID]
	if !ok {
		lk = &sync.Mutex{}
		l.userLocks[userID] = lk
	}
	l.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// RegisterUser creates a new user with the default credit limit, fully
// available.
func (l *Ledger) RegisterUser(userID, name string) (*models.User, error) {
	defer l.lockUser(userID)()

	user := &models.User{
		ID:              userID,
		Name:            name,
		CreditLimit:     l.cfg.DefaultCreditLimit,
		AvailableCredit: l.cfg.DefaultCreditLimit,
		CreatedAt:       l.now(),
	}

	err := l.storage.Transact(func(st store.Store) error {
		if _, err := st.GetUser(userID); err == nil {
			return ErrUserAlreadyExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return st.CreateUser(user)
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("User registered: %s", userID)
	return user, nil
}

// RecordPurchase debits the purchase amount from the user's available credit
// and records the purchase. An EMI purchase additionally opens a repayment
// plan: principal = amount, a fixed installment from the amortization
// formula, and the first due date one cycle from today. All preconditions
// are checked before any mutation.
func (l *Ledger) RecordPurchase(userID string, amount decimal.Decimal, repaymentType models.RepaymentType, months int) (*models.Purchase, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if repaymentType == models.RepaymentTypeEMI && months <= 0 {
		return nil, ErrInvalidTerm
	}

	defer l.lockUser(userID)()
	today := l.now()

	purchase := &models.Purchase{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Date:          today,
		RepaymentType: repaymentType,
	}

	err := l.storage.Transact(func(st store.Store) error {
		user, err := l.getUser(st, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(user.AvailableCredit) {
			return ErrInsufficientCredit
		}

		debit(user, amount)
		if err := st.UpdateUserCredit(user.ID, user.AvailableCredit); err != nil {
			return err
		}
		if err := st.CreatePurchase(purchase); err != nil {
			return err
		}

		if repaymentType == models.RepaymentTypeEMI {
			plan := &models.RepaymentPlan{
				ID:                    uuid.New(),
				PurchaseID:            purchase.ID,
				UserID:                userID,
				Principal:             amount,
				EMI:                   ComputeEMI(amount, months, l.cfg.AnnualInterestRate),
				Months:                months,
				RemainingInstallments: months,
				NextDueDate:           today.AddDate(0, 0, l.cfg.CycleDays),
				Penalties:             decimal.Zero,
				CreatedAt:             today,
			}
			if err := st.CreatePlan(plan); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("Purchase %s recorded for user %s: %s (%s)", purchase.ID, userID, amount.StringFixed(2), repaymentType)
	return purchase, nil
}

// RecordPayment distributes one incoming payment across the user's open
// plans, earliest due date first. Each visited plan consumes at most the sum
// of its remaining scheduled installments; allocation stops as soon as the
// payment is exhausted, leaving later plans untouched this cycle. Whatever
// remains after all plans is returned to the user's available credit, capped
// at the credit limit. The payment row always records the full submitted
// amount.
func (l *Ledger) RecordPayment(userID string, amount decimal.Decimal) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	defer l.lockUser(userID)()
	today := l.now()

	result := &PaymentResult{PaymentID: uuid.New()}
	err := l.storage.Transact(func(st store.Store) error {
		user, err := l.getUser(st, userID)
		if err != nil {
			return err
		}

		plans, err := st.OpenPlansForUser(userID)
		if err != nil {
			return err
		}

		remaining := amount
		for _, plan := range plans {
			if !remaining.IsPositive() {
				break
			}
			consumed, closed := l.applyPayment(plan, remaining, today)
			remaining = remaining.Sub(consumed)
			result.PlansTouched++

			if closed {
				if err := st.DeletePlan(plan.ID); err != nil {
					return err
				}
			} else if err := st.UpdatePlan(plan); err != nil {
				return err
			}
		}

		if remaining.IsPositive() {
			credit(user, remaining)
			if err := st.UpdateUserCredit(user.ID, user.AvailableCredit); err != nil {
				return err
			}
		}

		result.Consumed = amount.Sub(remaining)
		result.Leftover = remaining
		return st.CreatePayment(&models.Payment{
			ID:     result.PaymentID,
			UserID: userID,
			Amount: amount,
			Date:   today,
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("Payment %s recorded for user %s: %s consumed, %s leftover across %d plans",
		result.PaymentID, userID, result.Consumed.StringFixed(2), result.Leftover.StringFixed(2), result.PlansTouched)
	return result, nil
}

// ActivePlans returns the user's open plans with penalties freshly computed
// from today's overdue days. The figures are derived, not persisted, so
// repeated reads without an intervening payment are identical.
func (l *Ledger) ActivePlans(userID string) ([]*models.RepaymentPlan, error) {
	today := l.now()

	var plans []*models.RepaymentPlan
	err := l.storage.Transact(func(st store.Store) error {
		if _, err := l.getUser(st, userID); err != nil {
			return err
		}
		var err error
		plans, err = st.OpenPlansForUser(userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, plan := range plans {
		plan.Penalties = ComputePenalty(overdueDays(today, plan.NextDueDate), plan.Principal, l.cfg.DailyPenaltyRate)
	}
	return plans, nil
}

// OutstandingBalance sums every purchase the user has ever made. Settled and
// unsettled purchases are deliberately not distinguished; this is a
// reporting figure, not unpaid principal.
func (l *Ledger) OutstandingBalance(userID string) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := l.storage.Transact(func(st store.Store) error {
		if _, err := l.getUser(st, userID); err != nil {
			return err
		}
		purchases, err := st.PurchasesForUser(userID)
		if err != nil {
			return err
		}
		for _, purchase := range purchases {
			balance = balance.Add(purchase.Amount)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Report returns purchases matching the given filter.
func (l *Ledger) Report(filter store.PurchaseFilter) ([]*models.Purchase, error) {
	purchases, err := l.storage.FilterPurchases(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	return purchases, nil
}

// RepaymentHistory returns the user's payments, most recent first.
func (l *Ledger) RepaymentHistory(userID string) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := l.storage.Transact(func(st store.Store) error {
		if _, err := l.getUser(st, userID); err != nil {
			return err
		}
		var err error
		payments, err = st.PaymentsForUser(userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (l *Ledger) getUser(st store.Store, userID string) (*models.User, error) {
	user, err := st.GetUser(userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// debit reduces available credit. Callers guarantee the amount never drives
// the balance negative.
func debit(user *models.User, amount decimal.Decimal) {
	user.AvailableCredit = user.AvailableCredit.Sub(amount)
}

// credit restores available credit, capped at the credit limit so usage can
// never exceed the originally granted headroom.
func credit(user *models.User, amount decimal.Decimal) {
	user.AvailableCredit = decimal.Min(user.CreditLimit, user.AvailableCredit.Add(amount))
}
