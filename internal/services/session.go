package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
	"dailyledger/internal/log"
)

var (
	// ErrNotOpen is returned by mutations attempted before Open.
	ErrNotOpen = errors.New("session not opened")
	// ErrIncomeNotSet is returned when a transaction arrives while today's
	// income gate is closed, including right after a rollover.
	ErrIncomeNotSet = errors.New("daily income not set")
)

// SnapshotGateway is the persistence port of the session.
type SnapshotGateway interface {
	Load(ctx context.Context) (core.AppState, bool, error)
	Save(ctx context.Context, s core.AppState) error
}

// Mirror receives every recorded transaction. Implementations must return
// immediately; the session never waits on the remote copy.
type Mirror interface {
	Mirror(tx core.Transaction)
}

type SessionOptions struct {
	Now      func() time.Time
	Location *time.Location // zone that decides what "today" is, default time.Local
	NewID    func() string
	Mirror   Mirror
	Logger   *log.Logger
}

// SessionService owns the application state. Every read-modify-write runs
// under one mutex, whether it comes from a request or the rollover timer,
// and every mutation is followed by a full snapshot save.
type SessionService struct {
	mu          sync.Mutex
	state       core.AppState
	opened      bool
	lastSaveErr error

	gateway SnapshotGateway
	mirror  Mirror
	now     func() time.Time
	loc     *time.Location
	newID   func() string
	logger  *log.Logger
}

func NewSessionService(gateway SnapshotGateway, opts SessionOptions) *SessionService {
	s := &SessionService{
		gateway: gateway,
		mirror:  opts.Mirror,
		now:     opts.Now,
		loc:     opts.Location,
		newID:   opts.NewID,
		logger:  opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentSession)
	return s
}

// Open loads the snapshot and reconciles it against today. A missing or
// corrupt snapshot starts from scratch. Only a failure to read the store
// is returned.
func (s *SessionService) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	loaded, ok, err := s.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if !ok {
		s.state = ledger.ColdStart(today)
		s.logger.InfoContext(ctx, "Cold start", log.FieldDay, today.String())
	} else {
		previous := loaded.Session.LastActiveDate
		var rolled bool
		s.state, rolled = ledger.Reconcile(loaded, today)
		s.logger.InfoContext(ctx, "Session restored",
			log.FieldDay, today.String(),
			log.FieldPreviousDay, previous.String(),
			"rolled_over", rolled,
			log.FieldLedgerSize, len(s.state.Transactions))
	}

	s.opened = true
	s.persistLocked(ctx)
	return nil
}

// CheckRollover applies the daily reset if the calendar day has changed
// since the last check. It reports whether a reset happened.
func (s *SessionService) CheckRollover(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return false, ErrNotOpen
	}
	rolled := s.reconcileLocked(ctx)
	if rolled {
		s.persistLocked(ctx)
	}
	return rolled, nil
}

// RecordIncome appends today's INCOME entry and opens the income gate.
func (s *SessionService) RecordIncome(ctx context.Context, amount decimal.Decimal) (core.Transaction, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Transaction{}, ErrNotOpen
	}
	s.reconcileLocked(ctx)

	next, tx, err := ledger.RecordIncome(s.state, s.newID(), s.now(), amount)
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	s.state = next
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logRecorded(ctx, tx)
	s.dispatch(tx)
	return tx, nil
}

// RecordTransaction appends an EXPENSE, BILL or DEBT entry. For DEBT the
// sign of amount is the caller's: positive borrowed, negative repaid.
// The income gate is checked after reconciling, under the same lock as the
// append.
func (s *SessionService) RecordTransaction(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, note, personName string) (core.Transaction, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Transaction{}, ErrNotOpen
	}
	s.reconcileLocked(ctx)

	next, tx, err := ledger.RecordTransaction(s.state, ledger.Entry{
		ID:         s.newID(),
		At:         s.now(),
		Type:       typ,
		Amount:     amount,
		Note:       note,
		PersonName: personName,
	})
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	if !s.state.Session.HasSetDailyIncome {
		s.mu.Unlock()
		return core.Transaction{}, ErrIncomeNotSet
	}
	s.state = next
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logRecorded(ctx, tx)
	s.dispatch(tx)
	return tx, nil
}

// UpdateIncomeDynamically closes the income gate so a new figure can be
// entered. Earlier INCOME entries stay in the ledger.
func (s *SessionService) UpdateIncomeDynamically(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return ErrNotOpen
	}
	s.reconcileLocked(ctx)
	s.state = ledger.ReopenIncome(s.state)
	s.persistLocked(ctx)
	return nil
}

// SetLoggedIn records the outcome of the authentication bridge.
func (s *SessionService) SetLoggedIn(ctx context.Context, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return ErrNotOpen
	}
	if s.state.IsLoggedIn == loggedIn {
		return nil
	}
	s.state.IsLoggedIn = loggedIn
	s.persistLocked(ctx)
	s.logger.InfoContext(ctx, "Login state changed", "logged_in", loggedIn)
	return nil
}

// State returns a copy of the current state.
func (s *SessionService) State() core.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Today is the current calendar day in the session's zone.
func (s *SessionService) Today() core.Day {
	return s.today()
}

func (s *SessionService) Location() *time.Location {
	return s.loc
}

// TodayTransactions returns today's entries in ledger order.
func (s *SessionService) TodayTransactions() []core.Transaction {
	st := s.State()
	out := slices.Collect(ledger.OnDay(st.Transactions, s.today(), s.loc))
	if out == nil {
		out = []core.Transaction{}
	}
	return out
}

// TodayTotals aggregates today's entries per type.
func (s *SessionService) TodayTotals() core.Totals {
	st := s.State()
	return ledger.Aggregate(ledger.OnDay(st.Transactions, s.today(), s.loc))
}

// LastSaveError is the error of the most recent snapshot save, nil when it
// succeeded.
func (s *SessionService) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}

func (s *SessionService) today() core.Day {
	return core.DayOf(s.now(), s.loc)
}

func (s *SessionService) reconcileLocked(ctx context.Context) bool {
	today := s.today()
	previous := s.state.Session.LastActiveDate
	next, rolled := ledger.Reconcile(s.state, today)
	if rolled {
		s.state = next
		s.logger.InfoContext(ctx, "Daily rollover",
			log.FieldOperation, log.OpReconcile,
			log.FieldPreviousDay, previous.String(),
			log.FieldDay, today.String())
	}
	return rolled
}

// persistLocked saves the snapshot. A failed save leaves the in-memory state
// authoritative; the next successful save carries the missed change.
func (s *SessionService) persistLocked(ctx context.Context) {
	err := s.gateway.Save(context.WithoutCancel(ctx), s.state)
	if err != nil && s.lastSaveErr == nil {
		s.logger.ErrorContext(ctx, "Snapshot save failed",
			log.FieldOperation, log.OpSave,
			log.FieldError, err.Error())
	}
	if err == nil && s.lastSaveErr != nil {
		s.logger.InfoContext(ctx, "Snapshot save recovered", log.FieldOperation, log.OpSave)
	}
	s.lastSaveErr = err
}

func (s *SessionService) logRecorded(ctx context.Context, tx core.Transaction) {
	s.logger.WithFields(log.NewFields().WithTransaction(tx).WithOperation(log.OpRecord)).
		InfoContext(ctx, "Transaction recorded")
}

func (s *SessionService) dispatch(tx core.Transaction) {
	if s.mirror == nil {
		return
	}
	s.mirror.Mirror(tx)
}
