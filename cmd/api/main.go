package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/nkathuria/bnpl-ledger/pkg/config"
	"github.com/nkathuria/bnpl-ledger/pkg/ledger"
	"github.com/nkathuria/bnpl-ledger/pkg/models"
	"github.com/nkathuria/bnpl-ledger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
	log     *logrus.Logger
}

func NewServer(s store.Storage, cfg *config.Config, log *logrus.Logger) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, cfg, log),
		storage: s,
		log:     log,
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/register", s.registerHandler).Methods("POST")
	r.HandleFunc("/purchase", s.purchaseHandler).Methods("POST")
	r.HandleFunc("/payment", s.paymentHandler).Methods("POST")
	r.HandleFunc("/active_plans/{user_id}", s.activePlansHandler).Methods("GET")
	r.HandleFunc("/outstanding_balance/{user_id}", s.outstandingBalanceHandler).Methods("GET")
	r.HandleFunc("/reports", s.reportsHandler).Methods("GET")
	r.HandleFunc("/repayment_history/{user_id}", s.repaymentHistoryHandler).Methods("GET")
	return r
}

// writeLedgerError maps the ledger's error kinds to HTTP statuses.
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrUserAlreadyExists):
		http.Error(w, "User already exists", http.StatusConflict)
	case errors.Is(err, ledger.ErrInsufficientCredit):
		http.Error(w, "Insufficient credit", http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInvalidTerm):
		http.Error(w, "Invalid EMI duration", http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
	default:
		s.log.Errorf("Internal error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	user, err := s.ledger.RegisterUser(req.UserID, req.Name)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":          "User registered successfully.",
		"user_id":          user.ID,
		"credit_limit":     user.CreditLimit,
		"available_credit": user.AvailableCredit,
	})
}

func (s *Server) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string          `json:"user_id"`
		Amount        decimal.Decimal `json:"amount"`
		RepaymentType string          `json:"repayment_type"`
		Months        int             `json:"months"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	repaymentType := models.RepaymentType(req.RepaymentType)
	if repaymentType != models.RepaymentTypeFull && repaymentType != models.RepaymentTypeEMI {
		http.Error(w, "repayment_type must be 'full' or 'emi'", http.StatusBadRequest)
		return
	}

	purchase, err := s.ledger.RecordPurchase(req.UserID, req.Amount, repaymentType, req.Months)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Purchase recorded successfully.",
		"purchase_id": purchase.ID,
	})
}

func (s *Server) paymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string          `json:"user_id"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.ledger.RecordPayment(req.UserID, req.Amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "Payment recorded successfully.",
		"payment_id":    result.PaymentID,
		"consumed":      result.Consumed,
		"leftover":      result.Leftover,
		"plans_touched": result.PlansTouched,
	})
}

func (s *Server) activePlansHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	plans, err := s.ledger.ActivePlans(userID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if plans == nil {
		plans = []*models.RepaymentPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) outstandingBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	balance, err := s.ledger.OutstandingBalance(userID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"outstanding_balance": balance})
}

// parseReportFilter reads the comma-separated report query parameters:
// user_ids=a,b  date_range=2024-01-01,2024-12-31  amount_range=10,5000
func parseReportFilter(r *http.Request) (store.PurchaseFilter, error) {
	var filter store.PurchaseFilter
	q := r.URL.Query()

	if raw := q.Get("user_ids"); raw != "" {
		filter.UserIDs = strings.Split(raw, ",")
	}
	if raw := q.Get("date_range"); raw != "" {
		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			return filter, fmt.Errorf("date_range must be 'start,end'")
		}
		from, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return filter, fmt.Errorf("invalid date_range start: %w", err)
		}
		to, err := time.Parse("2006-01-02", parts[1])
		if err != nil {
			return filter, fmt.Errorf("invalid date_range end: %w", err)
		}
		// Include the whole end day.
		to = to.AddDate(0, 0, 1)
		filter.From, filter.To = &from, &to
	}
	if raw := q.Get("amount_range"); raw != "" {
		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			return filter, fmt.Errorf("amount_range must be 'min,max'")
		}
		min, err := decimal.NewFromString(parts[0])
		if err != nil {
			return filter, fmt.Errorf("invalid amount_range min: %w", err)
		}
		max, err := decimal.NewFromString(parts[1])
		if err != nil {
			return filter, fmt.Errorf("invalid amount_range max: %w", err)
		}
		filter.MinAmount, filter.MaxAmount = &min, &max
	}

	return filter, nil
}

func (s *Server) reportsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	purchases, err := s.ledger.Report(filter)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if purchases == nil {
		purchases = []*models.Purchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (s *Server) repaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	payments, err := s.ledger.RepaymentHistory(userID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize SQLite Store
	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, cfg, logger)

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
