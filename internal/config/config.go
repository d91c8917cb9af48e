package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres or SQLite DSN; dialect auto-detected.
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // logrus level name; defaults to info.
	File  string `yaml:"file"`  // Rolling log file path; empty logs to stderr.
}

// Duration wraps time.Duration so YAML values like "12h" parse.
type Duration time.Duration

// UnmarshalYAML parses a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asString string
	if errStr := value.Decode(&asString); errStr == nil {
		parsed, errParse := time.ParseDuration(asString)
		if errParse != nil {
			return fmt.Errorf("config: invalid duration %q: %w", asString, errParse)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds int64
	if errInt := value.Decode(&seconds); errInt != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AuthConfig holds access gate settings.
type AuthConfig struct {
	JWTSecret         string   `yaml:"jwt_secret"`          // HS256 signing secret for operator tokens.
	TokenTTL          Duration `yaml:"token_ttl"`           // Operator token lifetime.
	AdminPasswordHash string   `yaml:"admin_password_hash"` // bcrypt hash of the shared admin password.
}

// Merchant is one allow-listed deduction counterparty.
type Merchant struct {
	Name  string `yaml:"name"`  // Display name used for selection.
	Label string `yaml:"label"` // Canonical short label written to history; defaults to Name.
}

// LedgerConfig holds the credit lifecycle rules.
type LedgerConfig struct {
	CardPrefix             string     `yaml:"card_prefix"`              // Required card identifier prefix.
	InitialCredits         int        `yaml:"initial_credits"`          // Balance granted on registration and recharge.
	ValidityDays           int        `yaml:"validity_days"`            // Expiration window in days.
	EnableHistory          bool       `yaml:"enable_history"`           // Append balance changes to history.
	EnableOperatorAccounts bool       `yaml:"enable_operator_accounts"` // Named operator logins instead of the shared password.
	Operators              []string   `yaml:"operators"`                // Operator usernames seeded at startup.
	Merchants              []Merchant `yaml:"merchants"`                // Closed set of partner merchants.
}

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// Default returns a config populated with defaults.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "file:loyalty.db"},
		Logging:  LoggingConfig{Level: "info"},
		Auth:     AuthConfig{TokenTTL: Duration(12 * time.Hour)},
		Ledger: LedgerConfig{
			CardPrefix:     "CARD",
			InitialCredits: 10,
			ValidityDays:   30,
			EnableHistory:  true,
		},
	}
}

// Load reads the YAML config at path, applies environment overrides and
// validates the result. A missing file is not an error; defaults plus
// environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// fall through to env + defaults
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(&cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOYALTY_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("LOYALTY_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOYALTY_JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("LOYALTY_ADMIN_PASSWORD_HASH")); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
}

// Validate checks invariants the rest of the service relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(c.Ledger.CardPrefix) == "" {
		return fmt.Errorf("config: ledger.card_prefix is required")
	}
	if c.Ledger.InitialCredits <= 0 {
		return fmt.Errorf("config: ledger.initial_credits must be positive")
	}
	if c.Ledger.ValidityDays <= 0 {
		return fmt.Errorf("config: ledger.validity_days must be positive")
	}
	if len(c.Ledger.Merchants) == 0 {
		return fmt.Errorf("config: ledger.merchants must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Ledger.Merchants))
	for _, m := range c.Ledger.Merchants {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("config: merchant name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("config: duplicate merchant %q", name)
		}
		seen[name] = struct{}{}
	}
	if c.Ledger.EnableOperatorAccounts {
		if len(c.Ledger.Operators) == 0 {
			return fmt.Errorf("config: ledger.operators required when operator accounts are enabled")
		}
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return fmt.Errorf("config: auth.jwt_secret required when operator accounts are enabled")
		}
		if c.Auth.TokenTTL <= 0 {
			return fmt.Errorf("config: auth.token_ttl must be positive")
		}
	} else if strings.TrimSpace(c.Auth.AdminPasswordHash) == "" {
		return fmt.Errorf("config: auth.admin_password_hash is required")
	}
	return nil
}
