package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
)

// Entry is the caller supplied part of a new transaction. The id and the
// creation instant come from the caller's generator and clock.
type Entry struct {
	ID         string
	At         time.Time
	Type       core.TransactionType
	Amount     decimal.Decimal
	Note       string
	PersonName string
}

// RecordIncome appends the day's INCOME entry and opens the income gate.
func RecordIncome(s core.AppState, id string, at time.Time, amount decimal.Decimal) (core.AppState, core.Transaction, error) {
	tx := core.Transaction{
		ID:     id,
		Date:   at,
		Type:   core.Income,
		Amount: amount,
		Note:   core.IncomeNote,
	}
	if err := tx.Validate(); err != nil {
		return s, core.Transaction{}, fmt.Errorf("record income: %w", err)
	}

	s = appendTx(s, tx)
	s.Session.HasSetDailyIncome = true
	s.Session.CurrentDailyIncome = amount
	return s, tx, nil
}

// RecordTransaction appends an EXPENSE, BILL or DEBT entry. The daily session
// is left alone. PersonName is dropped for anything but DEBT.
func RecordTransaction(s core.AppState, e Entry) (core.AppState, core.Transaction, error) {
	if e.Type == core.Income {
		return s, core.Transaction{}, fmt.Errorf("record transaction: %w: use RecordIncome for income", core.ErrInvalidType)
	}

	tx := core.Transaction{
		ID:     e.ID,
		Date:   e.At,
		Type:   e.Type,
		Amount: e.Amount,
		Note:   strings.TrimSpace(e.Note),
	}
	if e.Type == core.Debt {
		tx.PersonName = strings.TrimSpace(e.PersonName)
	}
	if err := tx.Validate(); err != nil {
		return s, core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	return appendTx(s, tx), tx, nil
}

// ReopenIncome closes the income gate so the user can enter a new figure.
// Prior INCOME entries stay in the ledger.
func ReopenIncome(s core.AppState) core.AppState {
	s.Session.HasSetDailyIncome = false
	return s
}

// appendTx always copies so a state value handed out earlier never sees
// entries added later.
func appendTx(s core.AppState, tx core.Transaction) core.AppState {
	txs := make([]core.Transaction, len(s.Transactions), len(s.Transactions)+1)
	copy(txs, s.Transactions)
	s.Transactions = append(txs, tx)
	return s
}
