package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

const validConfig = `
server:
  addr: ":9090"
database:
  dsn: "file:test.db"
auth:
  admin_password_hash: "$2a$12$fakehashfakehashfakehash"
  token_ttl: "6h"
ledger:
  card_prefix: "CARD"
  initial_credits: 10
  validity_days: 30
  enable_history: true
  merchants:
    - name: "MerchantA"
    - name: "CHAAAMA CHOPP"
      label: "CHAMA"
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTL.Std() != 6*time.Hour {
		t.Fatalf("token ttl: got %v", cfg.Auth.TokenTTL.Std())
	}
	if len(cfg.Ledger.Merchants) != 2 {
		t.Fatalf("merchants: got %d", len(cfg.Ledger.Merchants))
	}
	if cfg.Ledger.Merchants[1].Label != "CHAMA" {
		t.Fatalf("merchant label: got %s", cfg.Ledger.Merchants[1].Label)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("LOYALTY_ADMIN_PASSWORD_HASH", "$2a$12$envhash")
	t.Setenv("DATABASE_URL", "postgres://localhost/loyalty")

	cfg, errLoad := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if errLoad == nil {
		// defaults carry no merchants, so validation must reject
		t.Fatalf("expected validation error, got config %+v", cfg)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/loyalty")
	path := writeConfigFile(t, validConfig)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database.DSN != "postgres://env-host/loyalty" {
		t.Fatalf("dsn override: got %s", cfg.Database.DSN)
	}
}

func TestValidateRejectsBadLedgerSettings(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.Auth.AdminPasswordHash = "$2a$12$fakehash"
		cfg.Ledger.Merchants = []Merchant{{Name: "MerchantA"}}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.Ledger.CardPrefix = " " }},
		{"zero credits", func(c *Config) { c.Ledger.InitialCredits = 0 }},
		{"negative validity", func(c *Config) { c.Ledger.ValidityDays = -1 }},
		{"no merchants", func(c *Config) { c.Ledger.Merchants = nil }},
		{"duplicate merchants", func(c *Config) {
			c.Ledger.Merchants = []Merchant{{Name: "A"}, {Name: "A"}}
		}},
		{"operator mode without operators", func(c *Config) {
			c.Ledger.EnableOperatorAccounts = true
			c.Auth.JWTSecret = "secret"
		}},
		{"operator mode without secret", func(c *Config) {
			c.Ledger.EnableOperatorAccounts = true
			c.Ledger.Operators = []string{"ana"}
			c.Auth.JWTSecret = ""
		}},
		{"shared mode without password hash", func(c *Config) {
			c.Auth.AdminPasswordHash = ""
		}},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(&cfg)
		if errValidate := cfg.Validate(); errValidate == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	if errValidate := base().Validate(); errValidate != nil {
		t.Fatalf("base config should validate: %v", errValidate)
	}
}
