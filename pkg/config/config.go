package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	DefaultCreditLimit decimal.Decimal // granted to every new user at registration
	AnnualInterestRate decimal.Decimal // EMI rate, divided by 12 for the monthly rate
	DailyPenaltyRate   decimal.Decimal // flat rate per overdue day on outstanding principal
	CycleDays          int             // fixed installment cycle length
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBPath:   getEnv("DB_PATH", "bnpl.db"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	var err error
	if cfg.DefaultCreditLimit, err = getEnvDecimal("DEFAULT_CREDIT_LIMIT", "100000"); err != nil {
		return nil, err
	}
	if cfg.AnnualInterestRate, err = getEnvDecimal("INTEREST_RATE", "0.02"); err != nil {
		return nil, err
	}
	if cfg.DailyPenaltyRate, err = getEnvDecimal("LATE_PAYMENT_PENALTY_RATE", "0.01"); err != nil {
		return nil, err
	}
	if cfg.CycleDays, err = getEnvInt("CYCLE_DAYS", 30); err != nil {
		return nil, err
	}

	if !cfg.DefaultCreditLimit.IsPositive() {
		return nil, fmt.Errorf("DEFAULT_CREDIT_LIMIT must be positive")
	}
	if cfg.AnnualInterestRate.IsNegative() {
		return nil, fmt.Errorf("INTEREST_RATE must not be negative")
	}
	if cfg.DailyPenaltyRate.IsNegative() {
		return nil, fmt.Errorf("LATE_PAYMENT_PENALTY_RATE must not be negative")
	}
	if cfg.CycleDays <= 0 {
		return nil, fmt.Errorf("CYCLE_DAYS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvDecimal(key, defaultVal string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
