package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Years = []int{2015}
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "url without host",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "https://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty symbol",
			mutate: func(cfg *Config) {
				cfg.Symbol = ""
			},
			wantErr: "symbol",
		},
		{
			name: "empty instrument",
			mutate: func(cfg *Config) {
				cfg.Instrument = ""
			},
			wantErr: "instrument",
		},
		{
			name: "no years",
			mutate: func(cfg *Config) {
				cfg.Years = nil
			},
			wantErr: "year",
		},
		{
			name: "year too early",
			mutate: func(cfg *Config) {
				cfg.Years = []int{1999}
			},
			wantErr: "out of range",
		},
		{
			name: "future year",
			mutate: func(cfg *Config) {
				cfg.Years = []int{time.Now().Year() + 1}
			},
			wantErr: "out of range",
		},
		{
			name: "bad bootstrap mode",
			mutate: func(cfg *Config) {
				cfg.Bootstrap = "carrier-pigeon"
			},
			wantErr: "bootstrap",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1 * time.Second
			},
			wantErr: "delay",
		},
		{
			name: "zero timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = 0
			},
			wantErr: "timeout",
		},
		{
			name: "empty output root",
			mutate: func(cfg *Config) {
				cfg.OutputRoot = ""
			},
			wantErr: "output root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default config with a year should validate, got %v", err)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("NSE_TEST_INT", "7")
	value, ok, err := EnvInt("NSE_TEST_INT")
	if err != nil || !ok || value != 7 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (7, true, nil)", value, ok, err)
	}

	t.Setenv("NSE_TEST_INT", "seven")
	if _, _, err := EnvInt("NSE_TEST_INT"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}

	if _, ok, err := EnvInt("NSE_TEST_INT_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report not ok, got (%v, %v)", ok, err)
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("NSE_TEST_STR", "BANKNIFTY")
	if value, ok := EnvString("NSE_TEST_STR"); !ok || value != "BANKNIFTY" {
		t.Fatalf("EnvString = (%q, %v), want (BANKNIFTY, true)", value, ok)
	}
	if _, ok := EnvString("NSE_TEST_STR_UNSET"); ok {
		t.Fatalf("unset variable should report not ok")
	}
}
