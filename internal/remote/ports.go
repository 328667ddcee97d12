// Package remote defines the remote mirror document and the port that
// mirror sinks implement. The remote copy is never read back into the
// application state.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
)

var ErrMissingKey = errors.New("document needs both user id and transaction id")

// Document is one ledger entry as stored remotely, keyed by (UserID, ID).
// Timestamp is the creation instant in epoch milliseconds.
type Document struct {
	UserID     string      `json:"userId"`
	ID         string      `json:"id"`
	Date       string      `json:"date"`
	Type       string      `json:"type"`
	Amount     json.Number `json:"amount"`
	Note       string      `json:"note,omitempty"`
	PersonName string      `json:"personName,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}

// DocumentWriter stores a document. Writing the same key twice overwrites.
type DocumentWriter interface {
	Put(ctx context.Context, doc Document) error
}

func NewDocument(userID string, tx core.Transaction) Document {
	return Document{
		UserID:     userID,
		ID:         tx.ID,
		Date:       tx.Date.Format(time.RFC3339Nano),
		Type:       string(tx.Type),
		Amount:     json.Number(tx.Amount.String()),
		Note:       tx.Note,
		PersonName: tx.PersonName,
		Timestamp:  tx.Date.UnixMilli(),
	}
}

// Key is the document path relative to the sink root.
func (d Document) Key() string {
	return fmt.Sprintf("users/%s/transactions/%s", d.UserID, d.ID)
}

func (d Document) Validate() error {
	if d.UserID == "" || d.ID == "" {
		return ErrMissingKey
	}
	if !core.TransactionType(d.Type).Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidType, d.Type)
	}
	if _, err := decimal.NewFromString(d.Amount.String()); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return nil
}
