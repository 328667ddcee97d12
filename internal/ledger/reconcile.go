// Package ledger holds the pure state transitions of the daily ledger:
// the rollover reconciler, the append-only mutators and the today view.
// Nothing here does I/O or reads the clock.
package ledger

import (
	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
)

// Reconcile resets the daily session when the stored day differs from today.
// The ledger and the login flag pass through untouched. The second result
// reports whether a rollover happened. Reconcile(Reconcile(s, d), d) equals
// Reconcile(s, d).
func Reconcile(s core.AppState, today core.Day) (core.AppState, bool) {
	if s.Session.LastActiveDate == today {
		return s, false
	}
	s.Session = core.DailySession{
		HasSetDailyIncome:  false,
		CurrentDailyIncome: decimal.Zero,
		LastActiveDate:     today,
	}
	return s, true
}

// ColdStart is the state used when no usable snapshot exists.
func ColdStart(today core.Day) core.AppState {
	return core.AppState{
		IsLoggedIn:   false,
		Transactions: []core.Transaction{},
		Session: core.DailySession{
			CurrentDailyIncome: decimal.Zero,
			LastActiveDate:     today,
		},
	}
}
