package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
	q  querier // the live handle: the pool, or a transaction inside Transact
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, q: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		credit_limit TEXT NOT NULL,
		available_credit TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date DATETIME NOT NULL,
		repayment_type TEXT NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	CREATE TABLE IF NOT EXISTS repayment_plans (
		id TEXT PRIMARY KEY,
		purchase_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		principal TEXT NOT NULL,
		emi TEXT NOT NULL,
		months INTEGER NOT NULL,
		remaining_installments INTEGER NOT NULL,
		next_due_date DATETIME NOT NULL,
		penalties TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL,
		FOREIGN KEY(purchase_id) REFERENCES purchases(id),
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Transact runs fn inside a single SQLite transaction. The transaction is
// rolled back unless fn returns nil, including on panic.
func (s *SQLiteStore) Transact(fn func(Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(user *models.User) error {
	_, err := s.q.Exec(
		`INSERT INTO users (id, name, credit_limit, available_credit, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.CreditLimit, user.AvailableCredit, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by its ID.
func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	var user models.User
	row := s.q.QueryRow(`SELECT id, name, credit_limit, available_credit, created_at FROM users WHERE id = ?`, id)
	err := row.Scan(&user.ID, &user.Name, &user.CreditLimit, &user.AvailableCredit, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUserCredit persists a user's new available credit.
func (s *SQLiteStore) UpdateUserCredit(id string, availableCredit decimal.Decimal) error {
	result, err := s.q.Exec(`UPDATE users SET available_credit = ? WHERE id = ?`, availableCredit, id)
	if err != nil {
		return fmt.Errorf("failed to update user credit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePurchase inserts a new purchase into the database.
func (s *SQLiteStore) CreatePurchase(purchase *models.Purchase) error {
	_, err := s.q.Exec(
		`INSERT INTO purchases (id, user_id, amount, date, repayment_type) VALUES (?, ?, ?, ?, ?)`,
		purchase.ID.String(), purchase.UserID, purchase.Amount, purchase.Date, string(purchase.RepaymentType),
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

// PurchasesForUser retrieves all purchases ever made by a user.
func (s *SQLiteStore) PurchasesForUser(userID string) ([]*models.Purchase, error) {
	rows, err := s.q.Query(`SELECT id, user_id, amount, date, repayment_type FROM purchases WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// FilterPurchases retrieves purchases matching the given report filter.
func (s *SQLiteStore) FilterPurchases(filter PurchaseFilter) ([]*models.Purchase, error) {
	query := `SELECT id, user_id, amount, date, repayment_type FROM purchases WHERE 1=1`
	var args []any

	if len(filter.UserIDs) > 0 {
		query += fmt.Sprintf(" AND user_id IN (%s)", strings.TrimSuffix(strings.Repeat("?,", len(filter.UserIDs)), ","))
		for _, id := range filter.UserIDs {
			args = append(args, id)
		}
	}
	if filter.From != nil && filter.To != nil {
		query += " AND date BETWEEN ? AND ?"
		args = append(args, *filter.From, *filter.To)
	}
	if filter.MinAmount != nil && filter.MaxAmount != nil {
		query += " AND CAST(amount AS REAL) BETWEEN ? AND ?"
		args = append(args, filter.MinAmount.InexactFloat64(), filter.MaxAmount.InexactFloat64())
	}

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter purchases: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

func scanPurchases(rows *sql.Rows) ([]*models.Purchase, error) {
	var purchases []*models.Purchase
	for rows.Next() {
		var purchase models.Purchase
		var idStr, repaymentType string
		if err := rows.Scan(&idStr, &purchase.UserID, &purchase.Amount, &purchase.Date, &repaymentType); err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}
		purchase.ID = uuid.MustParse(idStr)
		purchase.RepaymentType = models.RepaymentType(repaymentType)
		purchases = append(purchases, &purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return purchases, nil
}

// CreatePlan inserts a new repayment plan into the database.
func (s *SQLiteStore) CreatePlan(plan *models.RepaymentPlan) error {
	_, err := s.q.Exec(
		`INSERT INTO repayment_plans (id, purchase_id, user_id, principal, emi, months, remaining_installments, next_due_date, penalties, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID.String(), plan.PurchaseID.String(), plan.UserID, plan.Principal, plan.EMI, plan.Months, plan.RemainingInstallments, plan.NextDueDate, plan.Penalties, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create repayment plan: %w", err)
	}
	return nil
}

// OpenPlansForUser retrieves a user's open plans in allocation order:
// earliest due date first, plan id as the deterministic tie-break.
func (s *SQLiteStore) OpenPlansForUser(userID string) ([]*models.RepaymentPlan, error) {
	rows, err := s.q.Query(
		`SELECT id, purchase_id, user_id, principal, emi, months, remaining_installments, next_due_date, penalties, created_at
		FROM repayment_plans WHERE user_id = ? ORDER BY next_due_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []*models.RepaymentPlan
	for rows.Next() {
		var plan models.RepaymentPlan
		var idStr, purchaseIDStr string
		if err := rows.Scan(&idStr, &purchaseIDStr, &plan.UserID, &plan.Principal, &plan.EMI, &plan.Months, &plan.RemainingInstallments, &plan.NextDueDate, &plan.Penalties, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repayment plan row: %w", err)
		}
		plan.ID = uuid.MustParse(idStr)
		plan.PurchaseID = uuid.MustParse(purchaseIDStr)
		plans = append(plans, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return plans, nil
}

// UpdatePlan updates an existing repayment plan in the database.
func (s *SQLiteStore) UpdatePlan(plan *models.RepaymentPlan) error {
	result, err := s.q.Exec(
		`UPDATE repayment_plans SET principal = ?, remaining_installments = ?, next_due_date = ?, penalties = ? WHERE id = ?`,
		plan.Principal, plan.RemainingInstallments, plan.NextDueDate, plan.Penalties, plan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update repayment plan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlan removes a repayment plan from the database.
func (s *SQLiteStore) DeletePlan(id uuid.UUID) error {
	result, err := s.q.Exec(`DELETE FROM repayment_plans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete repayment plan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePayment inserts a new payment into the database.
func (s *SQLiteStore) CreatePayment(payment *models.Payment) error {
	_, err := s.q.Exec(
		`INSERT INTO payments (id, user_id, amount, date) VALUES (?, ?, ?, ?)`,
		payment.ID.String(), payment.UserID, payment.Amount, payment.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// PaymentsForUser retrieves a user's payments, most recent first.
func (s *SQLiteStore) PaymentsForUser(userID string) ([]*models.Payment, error) {
	rows, err := s.q.Query(`SELECT id, user_id, amount, date FROM payments WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var payment models.Payment
		var idStr string
		if err := rows.Scan(&idStr, &payment.UserID, &payment.Amount, &payment.Date); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payment.ID = uuid.MustParse(idStr)
		payments = append(payments, &payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return payments, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStore)(nil)
