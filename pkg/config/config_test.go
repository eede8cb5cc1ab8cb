package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.DB.Path != "./sentinel.db" {
		t.Errorf("Expected DB.Path default, got %s", cfg.DB.Path)
	}

	if cfg.Thresholds.RateLimitPaper != 2 {
		t.Errorf("Expected RateLimitPaper=2, got %d", cfg.Thresholds.RateLimitPaper)
	}
	if cfg.Thresholds.RateLimitLive != 19 {
		t.Errorf("Expected RateLimitLive=19, got %d", cfg.Thresholds.RateLimitLive)
	}
	if cfg.Thresholds.TakeProfit1 != 5.0 {
		t.Errorf("Expected TakeProfit1=5.0, got %f", cfg.Thresholds.TakeProfit1)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("ENV", "production")
	os.Setenv("TRADING_MODE", "REAL")
	os.Setenv("DB_PATH", "/data/sentinel.db")
	os.Setenv("RATE_LIMIT_LIVE", "15")
	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("TRADING_MODE")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("RATE_LIMIT_LIVE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env=production, got %s", cfg.Env)
	}
	if cfg.Trading.Mode != "REAL" {
		t.Errorf("Expected Trading.Mode=REAL, got %s", cfg.Trading.Mode)
	}
	if cfg.DB.Path != "/data/sentinel.db" {
		t.Errorf("Expected DB.Path override, got %s", cfg.DB.Path)
	}
	if cfg.Thresholds.RateLimitLive != 15 {
		t.Errorf("Expected RateLimitLive=15, got %d", cfg.Thresholds.RateLimitLive)
	}
}

func TestLoad_InvalidEnvIsRejected(t *testing.T) {
	os.Setenv("ENV", "bogus")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for invalid ENV, got nil")
	}
}

func TestLoad_InvalidTradingModeIsRejected(t *testing.T) {
	os.Setenv("TRADING_MODE", "PRETEND")
	defer os.Unsetenv("TRADING_MODE")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for invalid TRADING_MODE, got nil")
	}
}

func TestLoad_MissingBrokerCredentialsDoNotFailLoad(t *testing.T) {
	os.Unsetenv("KIS_APP_KEY")
	os.Unsetenv("KIS_APP_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should tolerate absent broker credentials, got: %v", err)
	}
	if cfg.KIS.AppKey != "" {
		t.Errorf("Expected empty AppKey default, got %s", cfg.KIS.AppKey)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "3.75")
	defer os.Unsetenv("TEST_FLOAT")

	if v := getEnvAsFloat("TEST_FLOAT", 1.0); v != 3.75 {
		t.Errorf("Expected 3.75, got %f", v)
	}
	if v := getEnvAsFloat("TEST_FLOAT_MISSING", 2.5); v != 2.5 {
		t.Errorf("Expected default 2.5, got %f", v)
	}
}
