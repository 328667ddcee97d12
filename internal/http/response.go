package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/log"
	"dailyledger/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

type transactionJSON struct {
	ID         string      `json:"id"`
	Date       string      `json:"date"`
	Day        string      `json:"day"`
	Type       string      `json:"type"`
	Amount     json.Number `json:"amount"`
	Note       string      `json:"note,omitempty"`
	PersonName string      `json:"personName,omitempty"`
}

type totalsJSON struct {
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Bill    json.Number `json:"bill"`
	Debt    json.Number `json:"debt"`
	Net     json.Number `json:"net"`
}

// amount renders a decimal as a JSON number with two decimals.
func amount(d decimal.Decimal) json.Number {
	return json.Number(core.FormatAmount(d))
}

func toTransactionJSON(tx core.Transaction, loc *time.Location) transactionJSON {
	return transactionJSON{
		ID:         tx.ID,
		Date:       tx.Date.In(loc).Format(time.RFC3339),
		Day:        core.DayOf(tx.Date, loc).String(),
		Type:       tx.Type.String(),
		Amount:     amount(tx.Amount),
		Note:       tx.Note,
		PersonName: tx.PersonName,
	}
}

func toTransactionsJSON(txs []core.Transaction, loc *time.Location) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx, loc))
	}
	return out
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		Income:  amount(t.Income),
		Expense: amount(t.Expense),
		Bill:    amount(t.Bill),
		Debt:    amount(t.Debt),
		Net:     amount(t.Net()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrZeroAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrMissingPerson),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrPersonTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrIncomeNotSet):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotOpen):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeDomainError answers with the mapped status. Server errors are
// logged and their details kept out of the body.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err.Error())
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}
