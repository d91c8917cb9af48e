// Package ledger enforces the lifecycle and arithmetic rules of customer
// credit balances: issuance, expiration, recharge, manual adjustment and
// deduction, plus the optional append-only history.
package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fidelicard/loyalty/internal/config"
	dbutil "github.com/fidelicard/loyalty/internal/db"
	"github.com/fidelicard/loyalty/internal/merchants"
	"github.com/fidelicard/loyalty/internal/models"
)

// Ledger runs all credit operations against the store. Every operation is a
// single transaction; read-check-then-write sequences never span two.
type Ledger struct {
	db        *gorm.DB
	merchants *merchants.Set

	prefix         string
	initialCredits int
	validityDays   int
	historyOn      bool

	now func() time.Time
}

// New builds a Ledger using the wall clock.
func New(conn *gorm.DB, cfg config.LedgerConfig, set *merchants.Set) *Ledger {
	return NewWithClock(conn, cfg, set, time.Now)
}

// NewWithClock builds a Ledger with an injected clock for deterministic
// expiry checks in tests.
func NewWithClock(conn *gorm.DB, cfg config.LedgerConfig, set *merchants.Set, now func() time.Time) *Ledger {
	return &Ledger{
		db:             conn,
		merchants:      set,
		prefix:         cfg.CardPrefix,
		initialCredits: cfg.InitialCredits,
		validityDays:   cfg.ValidityDays,
		historyOn:      cfg.EnableHistory,
		now:            now,
	}
}

// Merchants returns the configured merchant allow-list.
func (l *Ledger) Merchants() *merchants.Set {
	return l.merchants
}

// civilDate truncates a time to its calendar date at midnight UTC.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (l *Ledger) today() time.Time {
	return civilDate(l.now())
}

// isExpired reports whether today is strictly past the expiration date.
// today == expiration is still active.
func isExpired(today time.Time, expiresOn datatypes.Date) bool {
	return today.After(civilDate(time.Time(expiresOn)))
}

// lockForUpdate takes a row lock on dialects that support it. SQLite
// serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if dbutil.IsSQLite(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// parseAmount validates a user-supplied quantity string.
func parseAmount(raw string) (int, error) {
	amount, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// ValidateNewID checks a candidate card identifier against the prefix rule
// and current store state. Advisory only: Register treats the unique
// constraint as the authoritative duplicate signal.
func (l *Ledger) ValidateNewID(ctx context.Context, cardID string) error {
	if !strings.HasPrefix(cardID, l.prefix) {
		return ErrInvalidFormat
	}
	var count int64
	if errCount := l.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("card_id = ?", cardID).
		Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Register creates a customer with the initial credit grant and a fresh
// expiration window. Duplicate card identifiers are rejected by the unique
// index in a single atomic insert.
func (l *Ledger) Register(ctx context.Context, name, cardID, phone string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	cardID = strings.TrimSpace(cardID)
	if name == "" || phone == "" {
		return nil, ErrMissingField
	}
	if !strings.HasPrefix(cardID, l.prefix) {
		return nil, ErrInvalidFormat
	}

	today := l.today()
	customer := models.Customer{
		Name:        name,
		CardID:      cardID,
		Phone:       phone,
		Credits:     l.initialCredits,
		LastPayment: datatypes.Date(today),
		ExpiresOn:   datatypes.Date(today.AddDate(0, 0, l.validityDays)),
	}
	if errCreate := l.db.WithContext(ctx).Create(&customer).Error; errCreate != nil {
		if isDuplicateKey(errCreate) {
			return nil, ErrAlreadyExists
		}
		return nil, errCreate
	}
	return &customer, nil
}

// isDuplicateKey recognizes unique constraint violations across dialects,
// including connections opened without gorm error translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

// Find looks up a customer by card identifier.
func (l *Ledger) Find(ctx context.Context, cardID string) (*models.Customer, error) {
	var customer models.Customer
	if errFind := l.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		First(&customer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &customer, nil
}

// FindByPhone looks up a customer by phone number.
func (l *Ledger) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrNotFound
	}
	var customer models.Customer
	if errFind := l.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&customer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &customer, nil
}

// CustomerRef is a (card id, name) pair for selection UIs.
type CustomerRef struct {
	CardID string `json:"card_id"`
	Name   string `json:"name"`
}

// ListAll returns all customers as (card id, name) pairs in insertion order.
func (l *Ledger) ListAll(ctx context.Context) ([]CustomerRef, error) {
	var rows []models.Customer
	if errFind := l.db.WithContext(ctx).
		Select("card_id", "name").
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	out := make([]CustomerRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, CustomerRef{CardID: row.CardID, Name: row.Name})
	}
	return out, nil
}

// Roster returns full customer rows in insertion order, optionally filtered
// by a case-insensitive name match.
func (l *Ledger) Roster(ctx context.Context, nameFilter string) ([]models.Customer, error) {
	q := l.db.WithContext(ctx).Model(&models.Customer{})
	if trimmed := strings.TrimSpace(nameFilter); trimmed != "" {
		pattern := dbutil.NormalizeLikePattern(l.db, "%"+trimmed+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(l.db, "name"), pattern)
	}
	var rows []models.Customer
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Rename overwrites a customer's name and phone. When history is enabled the
// denormalized name copies on that customer's history rows are rewritten in
// the same transaction.
func (l *Ledger) Rename(ctx context.Context, cardID, newName, newPhone string) error {
	newName = strings.TrimSpace(newName)
	newPhone = strings.TrimSpace(newPhone)
	if newName == "" || newPhone == "" {
		return ErrMissingField
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Customer{}).
			Where("card_id = ?", cardID).
			Updates(map[string]any{"name": newName, "phone": newPhone})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if l.historyOn {
			if errHist := tx.Model(&models.HistoryEntry{}).
				Where("card_id = ?", cardID).
				Update("customer_name", newName).Error; errHist != nil {
				return errHist
			}
		}
		return nil
	})
}

// Delete removes a customer and all of their history rows atomically.
func (l *Ledger) Delete(ctx context.Context, cardID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("card_id = ?", cardID).Delete(&models.Customer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("card_id = ?", cardID).Delete(&models.HistoryEntry{}).Error
	})
}

// Recharge resets the balance to the initial grant and restarts the
// expiration window. Deliberately non-cumulative: unspent credits are
// forfeited.
func (l *Ledger) Recharge(ctx context.Context, cardID string) (*models.Customer, error) {
	today := l.today()
	expiresOn := today.AddDate(0, 0, l.validityDays)

	var customer models.Customer
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := lockForUpdate(tx).
			Where("card_id = ?", cardID).
			First(&customer).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if errUpdate := tx.Model(&customer).Updates(map[string]any{
			"credits":      l.initialCredits,
			"last_payment": datatypes.Date(today),
			"expires_on":   datatypes.Date(expiresOn),
		}).Error; errUpdate != nil {
			return errUpdate
		}
		customer.Credits = l.initialCredits
		customer.LastPayment = datatypes.Date(today)
		customer.ExpiresOn = datatypes.Date(expiresOn)
		return l.appendHistory(tx, &customer, merchants.LabelRecharge, l.initialCredits)
	})
	if errTx != nil {
		return nil, errTx
	}
	return &customer, nil
}

// AddManual adds credits to a non-expired customer. The expiration window is
// evaluated but never extended here.
func (l *Ledger) AddManual(ctx context.Context, cardID, rawAmount string) (int, error) {
	amount, errAmount := parseAmount(rawAmount)
	if errAmount != nil {
		return 0, errAmount
	}

	today := l.today()
	var newBalance int
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if errFind := lockForUpdate(tx).
			Where("card_id = ?", cardID).
			First(&customer).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if isExpired(today, customer.ExpiresOn) {
			return ErrExpired
		}
		if errUpdate := tx.Model(&customer).
			UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error; errUpdate != nil {
			return errUpdate
		}
		newBalance = customer.Credits + amount
		return l.appendHistory(tx, &customer, merchants.LabelManual, amount)
	})
	if errTx != nil {
		return 0, errTx
	}
	return newBalance, nil
}

// Deduct spends credits at an allow-listed merchant. The debit is a
// conditional update guarded by the current balance, so it can never drive
// the balance negative even under concurrent requests for the same card.
func (l *Ledger) Deduct(ctx context.Context, cardID, rawAmount, merchantName string) (int, error) {
	label, known := l.merchants.Label(merchantName)
	if !known {
		return 0, ErrInvalidMerchant
	}
	amount, errAmount := parseAmount(rawAmount)
	if errAmount != nil {
		return 0, errAmount
	}

	today := l.today()
	var newBalance int
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if errFind := lockForUpdate(tx).
			Where("card_id = ?", cardID).
			First(&customer).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if isExpired(today, customer.ExpiresOn) {
			return ErrExpired
		}

		res := tx.Model(&models.Customer{}).
			Where("card_id = ? AND credits >= ?", cardID, amount).
			UpdateColumn("credits", gorm.Expr("credits - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InsufficientBalanceError{Available: customer.Credits, Requested: amount}
		}
		newBalance = customer.Credits - amount
		return l.appendHistory(tx, &customer, label, -amount)
	})
	if errTx != nil {
		return 0, errTx
	}
	return newBalance, nil
}

// appendHistory writes one signed history entry when the feature is on.
func (l *Ledger) appendHistory(tx *gorm.DB, customer *models.Customer, label string, amount int) error {
	if !l.historyOn {
		return nil
	}
	entry := models.HistoryEntry{
		CardID:        customer.CardID,
		CustomerName:  customer.Name,
		MerchantLabel: label,
		Amount:        amount,
	}
	return tx.Create(&entry).Error
}

// ExpiredMarker is the literal days-remaining value for lapsed customers.
const ExpiredMarker = "Expired"

// Info is the customer summary shown at the point of sale.
type Info struct {
	Name          string `json:"name"`
	Credits       int    `json:"credits"`
	DaysRemaining string `json:"days_remaining"` // Decimal day count, or the literal "Expired".
	Days          int    `json:"days,omitempty"` // Numeric day count; zero when expired.
	Expired       bool   `json:"expired"`        // Convenience flag mirroring DaysRemaining.
	ExpiresOn     string `json:"expires_on"`     // Formatted dd/mm/yyyy.
}

// Info summarizes a customer's balance and remaining window. today equal to
// the expiration date still counts as active.
func (l *Ledger) Info(ctx context.Context, cardID string) (*Info, error) {
	customer, errFind := l.Find(ctx, cardID)
	if errFind != nil {
		return nil, errFind
	}

	today := l.today()
	expiresOn := civilDate(time.Time(customer.ExpiresOn))
	info := &Info{
		Name:      customer.Name,
		Credits:   customer.Credits,
		ExpiresOn: expiresOn.Format("02/01/2006"),
	}
	if today.After(expiresOn) {
		info.Expired = true
		info.DaysRemaining = ExpiredMarker
		return info, nil
	}
	info.Days = int(expiresOn.Sub(today).Hours() / 24)
	info.DaysRemaining = strconv.Itoa(info.Days)
	return info, nil
}

// History returns a customer's balance changes, newest first.
func (l *Ledger) History(ctx context.Context, cardID string) ([]models.HistoryEntry, error) {
	if !l.historyOn {
		return nil, ErrHistoryDisabled
	}
	if _, errFind := l.Find(ctx, cardID); errFind != nil {
		return nil, errFind
	}
	var rows []models.HistoryEntry
	if errFind := l.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id DESC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
