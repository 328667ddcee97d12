package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"dailyledger/internal/core"
)

const (
	gateLogin  = "login"
	gateIncome = "income"
	gateReady  = "ready"
)

type stateResponse struct {
	Gate               string      `json:"gate"`
	Today              string      `json:"today"`
	IsLoggedIn         bool        `json:"isLoggedIn"`
	HasSetDailyIncome  bool        `json:"hasSetDailyIncome"`
	CurrentDailyIncome json.Number `json:"currentDailyIncome"`
	TodayTotals        totalsJSON  `json:"todayTotals"`
	LedgerSize         int         `json:"ledgerSize"`
}

// gateOf tells the shell which screen to show.
func gateOf(st core.AppState) string {
	switch {
	case !st.IsLoggedIn:
		return gateLogin
	case !st.Session.HasSetDailyIncome:
		return gateIncome
	}
	return gateReady
}

// refresh runs the rollover check the shell would run when it comes back to
// the foreground, so a stale session never leaks into a response.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) bool {
	if _, err := s.deps.Session.CheckRollover(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.refresh(w, r) {
		return
	}
	st := s.deps.Session.State()
	writeJSON(w, http.StatusOK, stateResponse{
		Gate:               gateOf(st),
		Today:              s.deps.Session.Today().String(),
		IsLoggedIn:         st.IsLoggedIn,
		HasSetDailyIncome:  st.Session.HasSetDailyIncome,
		CurrentDailyIncome: amount(st.Session.CurrentDailyIncome),
		TodayTotals:        toTotalsJSON(s.deps.Session.TodayTotals()),
		LedgerSize:         len(st.Transactions),
	})
}

func (s *Server) handleTodayTransactions(w http.ResponseWriter, r *http.Request) {
	if !s.refresh(w, r) {
		return
	}
	loc := s.deps.Session.Location()
	writeJSON(w, http.StatusOK, map[string]any{
		"day":          s.deps.Session.Today().String(),
		"transactions": toTransactionsJSON(s.deps.Session.TodayTransactions(), loc),
		"totals":       toTotalsJSON(s.deps.Session.TodayTotals()),
	})
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	tx, err := s.deps.Session.RecordIncome(r.Context(), amt)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx, s.deps.Session.Location()))
}

// handleUpdateIncome reopens the income gate. The old INCOME entries stay.
func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.UpdateIncomeDynamically(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gate": gateIncome})
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if typ == core.Income {
		writeDomainError(w, r, fmt.Errorf("%w: income is recorded through /api/income", core.ErrInvalidType))
		return
	}
	parse := parseAmount
	if typ == core.Debt {
		parse = parseSignedAmount
	}
	amt, err := parse(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if typ == core.Debt && req.Repay {
		amt = amt.Abs().Neg()
	}

	tx, err := s.deps.Session.RecordTransaction(r.Context(), typ, amt, sanitizeText(req.Note), sanitizeText(req.PersonName))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx, s.deps.Session.Location()))
}
