package ledger

import (
	"errors"
	"fmt"
)

// Expected, recoverable outcomes of ledger operations. The HTTP layer maps
// these to user-facing responses; none of them is fatal.
var (
	// ErrInvalidFormat indicates a card identifier without the required prefix.
	ErrInvalidFormat = errors.New("card id must start with the configured prefix")
	// ErrAlreadyExists indicates the card identifier is already registered.
	ErrAlreadyExists = errors.New("card id already registered")
	// ErrNotFound indicates no customer holds the given card identifier.
	ErrNotFound = errors.New("customer not found")
	// ErrMissingField indicates a required registration field was empty.
	ErrMissingField = errors.New("name and phone are required")
	// ErrInvalidAmount indicates a non-numeric or non-positive amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrExpired indicates the credit window has lapsed; only recharge recovers.
	ErrExpired = errors.New("credits expired, recharge required")
	// ErrInvalidMerchant indicates a merchant outside the allow-list.
	ErrInvalidMerchant = errors.New("merchant not in allow-list")
	// ErrHistoryDisabled indicates the history feature is switched off.
	ErrHistoryDisabled = errors.New("history is disabled")
)

// InsufficientBalanceError reports a rejected deduction with both sides of
// the comparison, so callers can show available vs requested.
type InsufficientBalanceError struct {
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient credits: available %d, requested %d", e.Available, e.Requested)
}
