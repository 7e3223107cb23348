package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User carries a fixed credit limit and the mutable portion of it that is
// not currently held against unpaid purchases.
// Invariant: 0 <= AvailableCredit <= CreditLimit.
type User struct {
	ID              string          `json:"user_id"`
	Name            string          `json:"name"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	CreatedAt       time.Time       `json:"created_at"`
}

type RepaymentType string

const (
	RepaymentTypeFull RepaymentType = "full"
	RepaymentTypeEMI  RepaymentType = "emi"
)

// Purchase is an immutable audit record. It is never updated or deleted,
// regardless of repayment state.
type Purchase struct {
	ID            uuid.UUID       `json:"id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	RepaymentType RepaymentType   `json:"repayment_type"`
}

// RepaymentPlan is the installment schedule for one EMI purchase.
// Principal is the current outstanding amount (accrued penalties are folded
// into it on payment). EMI and Months are fixed at creation. A plan is
// deleted as soon as it closes, so a persisted plan always has positive
// principal, positive remaining installments, and a concrete NextDueDate.
type RepaymentPlan struct {
	ID                    uuid.UUID       `json:"id"`
	PurchaseID            uuid.UUID       `json:"purchase_id"`
	UserID                string          `json:"user_id"`
	Principal             decimal.Decimal `json:"principal"`
	EMI                   decimal.Decimal `json:"emi"`
	Months                int             `json:"months"`
	RemainingInstallments int             `json:"remaining_installments"`
	NextDueDate           time.Time       `json:"next_due_date"`
	Penalties             decimal.Decimal `json:"penalties"` // recomputed on read, never accumulated
	CreatedAt             time.Time       `json:"created_at"`
}

// Payment is the immutable record of one submitted payment, for the full
// submitted amount whether or not all of it was consumed by plans.
type Payment struct {
	ID     uuid.UUID       `json:"id"`
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}
