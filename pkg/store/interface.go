package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PurchaseFilter narrows a purchase report. Nil/empty fields are ignored.
type PurchaseFilter struct {
	UserIDs   []string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Store defines the row-level operations for users, purchases, repayment
// plans and payments.
type Store interface {
	CreateUser(user *models.User) error
	GetUser(id string) (*models.User, error)
	UpdateUserCredit(id string, availableCredit decimal.Decimal) error

	CreatePurchase(purchase *models.Purchase) error
	PurchasesForUser(userID string) ([]*models.Purchase, error)
	FilterPurchases(filter PurchaseFilter) ([]*models.Purchase, error)

	CreatePlan(plan *models.RepaymentPlan) error
	// OpenPlansForUser returns a user's open plans ordered by next due date
	// ascending, ties broken by plan id ascending.
	OpenPlansForUser(userID string) ([]*models.RepaymentPlan, error)
	UpdatePlan(plan *models.RepaymentPlan) error
	DeletePlan(id uuid.UUID) error

	CreatePayment(payment *models.Payment) error
	// PaymentsForUser returns a user's payments ordered by date descending.
	PaymentsForUser(userID string) ([]*models.Payment, error)
}

// Storage is a Store that can scope a group of operations to a single
// transaction. Transact commits when fn returns nil and rolls back
// otherwise, so a failed logical operation leaves no partial mutation.
type Storage interface {
	Store
	Transact(fn func(Store) error) error
	Close() error
}
