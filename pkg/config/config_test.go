package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.DefaultCreditLimit.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("Expected default credit limit 100000, got %s", cfg.DefaultCreditLimit)
	}
	if !cfg.AnnualInterestRate.Equal(decimal.NewFromFloat(0.02)) {
		t.Errorf("Expected default interest rate 0.02, got %s", cfg.AnnualInterestRate)
	}
	if !cfg.DailyPenaltyRate.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("Expected default penalty rate 0.01, got %s", cfg.DailyPenaltyRate)
	}
	if cfg.CycleDays != 30 {
		t.Errorf("Expected default cycle of 30 days, got %d", cfg.CycleDays)
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_CREDIT_LIMIT", "50000")
	t.Setenv("CYCLE_DAYS", "14")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.DefaultCreditLimit.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Expected credit limit 50000, got %s", cfg.DefaultCreditLimit)
	}
	if cfg.CycleDays != 14 {
		t.Errorf("Expected cycle of 14 days, got %d", cfg.CycleDays)
	}
}

func TestNewConfig_Invalid(t *testing.T) {
	t.Setenv("INTEREST_RATE", "not-a-number")
	if _, err := NewConfig(); err == nil {
		t.Error("Expected error for malformed INTEREST_RATE")
	}
}
