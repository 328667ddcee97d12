package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
)

// ErrCorrupt marks a snapshot that exists but does not match the schema.
var ErrCorrupt = errors.New("corrupt snapshot")

// snapshotDocument is the persisted JSON shape. Field names are part of the
// on-disk format.
type snapshotDocument struct {
	IsLoggedIn         bool                  `json:"isLoggedIn"`
	HasSetDailyIncome  bool                  `json:"hasSetDailyIncome"`
	CurrentDailyIncome number                `json:"currentDailyIncome"`
	Transactions       []snapshotTransaction `json:"transactions"`
	LastActiveDate     string                `json:"lastActiveDate,omitempty"`
}

type snapshotTransaction struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Type       string `json:"type"`
	Amount     number `json:"amount"`
	Note       string `json:"note,omitempty"`
	PersonName string `json:"personName,omitempty"`
}

// number is a JSON number kept as its literal text. Unlike json.Number it
// refuses a quoted string.
type number string

func (n number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return []byte(n), nil
}

func (n *number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) == 0 || b[0] == '"' {
		return fmt.Errorf("want a JSON number, got %s", b)
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = number(num)
	return nil
}

// EncodeSnapshot renders the full application state.
func EncodeSnapshot(s core.AppState) ([]byte, error) {
	doc := snapshotDocument{
		IsLoggedIn:         s.IsLoggedIn,
		HasSetDailyIncome:  s.Session.HasSetDailyIncome,
		CurrentDailyIncome: number(s.Session.CurrentDailyIncome.String()),
		Transactions:       make([]snapshotTransaction, 0, len(s.Transactions)),
		LastActiveDate:     s.Session.LastActiveDate.String(),
	}
	for _, tx := range s.Transactions {
		doc.Transactions = append(doc.Transactions, snapshotTransaction{
			ID:         tx.ID,
			Date:       tx.Date.Format(time.RFC3339Nano),
			Type:       string(tx.Type),
			Amount:     number(tx.Amount.String()),
			Note:       tx.Note,
			PersonName: tx.PersonName,
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot validates and converts a persisted snapshot. Any mismatch
// with the schema, a repeated transaction id included, returns an error
// wrapping ErrCorrupt. Missing optional
// fields are tolerated and unknown keys are ignored.
func DecodeSnapshot(data []byte) (core.AppState, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return core.AppState{}, fmt.Errorf("%w: not a JSON object", ErrCorrupt)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var doc snapshotDocument
	if err := dec.Decode(&doc); err != nil {
		return core.AppState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.AppState{}, fmt.Errorf("%w: trailing data after snapshot", ErrCorrupt)
	}

	s := core.AppState{
		IsLoggedIn:   doc.IsLoggedIn,
		Transactions: make([]core.Transaction, 0, len(doc.Transactions)),
		Session: core.DailySession{
			HasSetDailyIncome:  doc.HasSetDailyIncome,
			CurrentDailyIncome: decimal.Zero,
		},
	}

	if doc.CurrentDailyIncome != "" {
		income, err := decimal.NewFromString(string(doc.CurrentDailyIncome))
		if err != nil {
			return core.AppState{}, fmt.Errorf("%w: currentDailyIncome: %v", ErrCorrupt, err)
		}
		s.Session.CurrentDailyIncome = income
	}

	if doc.LastActiveDate != "" {
		day, err := core.ParseDay(doc.LastActiveDate)
		if err != nil {
			return core.AppState{}, fmt.Errorf("%w: lastActiveDate: %v", ErrCorrupt, err)
		}
		s.Session.LastActiveDate = day
	}

	seen := make(map[string]struct{}, len(doc.Transactions))
	for i, st := range doc.Transactions {
		tx, err := st.toCore()
		if err != nil {
			return core.AppState{}, fmt.Errorf("%w: transaction %d: %v", ErrCorrupt, i, err)
		}
		if _, dup := seen[tx.ID]; dup {
			return core.AppState{}, fmt.Errorf("%w: transaction %d: duplicate id %q", ErrCorrupt, i, tx.ID)
		}
		seen[tx.ID] = struct{}{}
		s.Transactions = append(s.Transactions, tx)
	}

	return s, nil
}

func (st snapshotTransaction) toCore() (core.Transaction, error) {
	if st.Amount == "" {
		return core.Transaction{}, errors.New("missing amount")
	}
	amount, err := decimal.NewFromString(string(st.Amount))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, st.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", err)
	}
	tx := core.Transaction{
		ID:         st.ID,
		Date:       at,
		Type:       core.TransactionType(st.Type),
		Amount:     amount,
		Note:       st.Note,
		PersonName: st.PersonName,
	}
	if err := tx.ValidateStored(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
