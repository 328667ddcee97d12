package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
	Bill    TransactionType = "BILL"
	Debt    TransactionType = "DEBT"
)

// IncomeNote is the note attached to every recorded daily income entry.
const IncomeNote = "Daily Income Entry"

const (
	maxNoteLength   = 200
	maxPersonLength = 100
)

type (
	TransactionType string

	// Transaction is an immutable ledger entry. Corrections are new entries.
	Transaction struct {
		ID         string
		Date       time.Time // creation instant, full precision
		Type       TransactionType
		Amount     decimal.Decimal
		Note       string
		PersonName string // DEBT only
	}

	// DailySession is the per-day gate state. It is reset by the rollover.
	DailySession struct {
		HasSetDailyIncome  bool
		CurrentDailyIncome decimal.Decimal // display cache, the ledger is authoritative
		LastActiveDate     Day
	}

	// AppState is everything that gets snapshotted.
	AppState struct {
		IsLoggedIn   bool
		Transactions []Transaction
		Session      DailySession
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrZeroAmount     = errors.New("amount cannot be zero")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrMissingPerson  = errors.New("person name is required for debt")
	ErrEmptyID        = errors.New("empty transaction id")
	ErrZeroDate       = errors.New("transaction date cannot be zero")
	ErrNoteTooLong    = fmt.Errorf("note too long (max %d characters)", maxNoteLength)
	ErrPersonTooLong  = fmt.Errorf("person name too long (max %d characters)", maxPersonLength)
)

// TransactionTypes lists every type in display order.
var TransactionTypes = []TransactionType{Income, Expense, Bill, Debt}

// ParseTransactionType accepts any casing, surrounding blanks are ignored.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Bill, Debt:
		return true
	}
	return false
}

func (t TransactionType) String() string {
	return string(t)
}

// ValidateAmount checks the sign convention for a type: INCOME may be zero,
// EXPENSE and BILL are positive magnitudes, DEBT is signed but never zero.
func ValidateAmount(t TransactionType, amount decimal.Decimal) error {
	switch t {
	case Income:
		if amount.IsNegative() {
			return ErrNegativeAmount
		}
	case Expense, Bill:
		if amount.IsNegative() {
			return ErrNegativeAmount
		}
		if amount.IsZero() {
			return ErrZeroAmount
		}
	case Debt:
		if amount.IsZero() {
			return ErrZeroAmount
		}
	default:
		return ErrInvalidType
	}
	return nil
}

// Validate checks a freshly built transaction before it enters the ledger.
func (tx Transaction) Validate() error {
	if err := tx.validateShape(); err != nil {
		return err
	}
	if err := ValidateAmount(tx.Type, tx.Amount); err != nil {
		return err
	}
	if tx.Type == Debt && strings.TrimSpace(tx.PersonName) == "" {
		return ErrMissingPerson
	}
	if len(tx.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	if len(tx.PersonName) > maxPersonLength {
		return ErrPersonTooLong
	}
	return nil
}

// ValidateStored checks the fields a persisted transaction cannot do without.
// Amount rules are not re-applied to entries that are already in the ledger.
func (tx Transaction) ValidateStored() error {
	return tx.validateShape()
}

func (tx Transaction) validateShape() error {
	if strings.TrimSpace(tx.ID) == "" {
		return ErrEmptyID
	}
	if tx.Date.IsZero() {
		return ErrZeroDate
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, string(tx.Type))
	}
	return nil
}

// Clone returns a copy that shares nothing mutable with s.
func (s AppState) Clone() AppState {
	out := s
	if s.Transactions != nil {
		out.Transactions = make([]Transaction, len(s.Transactions))
		copy(out.Transactions, s.Transactions)
	}
	return out
}
