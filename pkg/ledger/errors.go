package ledger

import "errors"

var (
	// ErrUserNotFound means an operation referenced an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists means a registration reused an existing user id.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInsufficientCredit means a purchase amount exceeds available credit.
	ErrInsufficientCredit = errors.New("insufficient credit")
	// ErrInvalidTerm means an EMI purchase was submitted with months <= 0.
	ErrInvalidTerm = errors.New("invalid EMI duration")
	// ErrInvalidAmount means a purchase or payment amount was not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
)
