// Package gate implements the access gate in front of sensitive ledger
// operations: either a shared admin password or named operator logins with
// JWT sessions, selected by configuration. Denials never leave side effects.
package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fidelicard/loyalty/internal/config"
	"github.com/fidelicard/loyalty/internal/models"
	"github.com/fidelicard/loyalty/internal/security"
)

// ErrWrongCredential indicates a rejected login or admin password. The
// message is deliberately the same for unknown logins and bad passwords.
var ErrWrongCredential = errors.New("wrong login or password")

// Gate checks credentials for sensitive operations.
type Gate struct {
	db *gorm.DB

	operatorMode bool
	adminHash    string
	jwtSecret    string
	tokenTTL     time.Duration
}

// New builds a Gate from auth configuration.
func New(conn *gorm.DB, authCfg config.AuthConfig, operatorMode bool) *Gate {
	return &Gate{
		db:           conn,
		operatorMode: operatorMode,
		adminHash:    authCfg.AdminPasswordHash,
		jwtSecret:    authCfg.JWTSecret,
		tokenTTL:     authCfg.TokenTTL.Std(),
	}
}

// OperatorMode reports whether named operator accounts are enabled.
func (g *Gate) OperatorMode() bool {
	return g.operatorMode
}

// SeedOperators ensures a row exists for every configured operator name.
// Existing rows, including any set password, are left untouched.
func (g *Gate) SeedOperators(ctx context.Context, usernames []string) error {
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}
		operator := models.Operator{Username: username}
		if errSeed := g.db.WithContext(ctx).
			Where("username = ?", username).
			FirstOrCreate(&operator).Error; errSeed != nil {
			return errSeed
		}
	}
	return nil
}

// CheckAdminPassword verifies the shared admin password against the
// configured bcrypt hash.
func (g *Gate) CheckAdminPassword(password string) error {
	if g.adminHash == "" || !security.CheckPassword(g.adminHash, password) {
		return ErrWrongCredential
	}
	return nil
}

// Login authenticates an operator and returns a session token. The first
// successful login for an operator without a password sets it; the set is a
// conditional update so concurrent first logins cannot both win.
func (g *Gate) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return "", ErrWrongCredential
	}

	var operator models.Operator
	if errFind := g.db.WithContext(ctx).
		Where("username = ?", username).
		First(&operator).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", ErrWrongCredential
		}
		return "", errFind
	}

	if operator.PasswordHash == "" {
		hash, errHash := security.HashPassword(password)
		if errHash != nil {
			return "", errHash
		}
		res := g.db.WithContext(ctx).
			Model(&models.Operator{}).
			Where("id = ? AND password_hash = ''", operator.ID).
			Update("password_hash", hash)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race: someone set the password first, check against it
			if errReload := g.db.WithContext(ctx).
				First(&operator, operator.ID).Error; errReload != nil {
				return "", errReload
			}
			if !security.CheckPassword(operator.PasswordHash, password) {
				return "", ErrWrongCredential
			}
		}
	} else if !security.CheckPassword(operator.PasswordHash, password) {
		return "", ErrWrongCredential
	}

	return security.GenerateOperatorToken(g.jwtSecret, operator.ID, operator.Username, g.tokenTTL)
}

// ParseToken validates an operator session token.
func (g *Gate) ParseToken(token string) (*security.OperatorClaims, error) {
	return security.ParseOperatorToken(g.jwtSecret, token)
}
