package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func saveCount(t *testing.T, store *storage.MemoryStore) int64 {
	t.Helper()
	n, err := store.Saves(context.Background())
	if err != nil {
		t.Fatalf("Saves: %v", err)
	}
	return n
}

type recordingMirror struct {
	mu  sync.Mutex
	txs []core.Transaction
}

func (m *recordingMirror) Mirror(tx core.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// flakyGateway wraps a real gateway and fails Load or Save on demand.
type flakyGateway struct {
	*storage.Gateway
	loadErr error
	saveErr error
}

func (g *flakyGateway) Load(ctx context.Context) (core.AppState, bool, error) {
	if g.loadErr != nil {
		return core.AppState{}, false, g.loadErr
	}
	return g.Gateway.Load(ctx)
}

func (g *flakyGateway) Save(ctx context.Context, s core.AppState) error {
	if g.saveErr != nil {
		return g.saveErr
	}
	return g.Gateway.Save(ctx, s)
}

func newTestSession(t *testing.T, store storage.SnapshotStore, clock *fakeClock) (*SessionService, *recordingMirror) {
	t.Helper()
	n := 0
	mirror := &recordingMirror{}
	svc := NewSessionService(storage.NewGateway(store, nil), SessionOptions{
		Now:      clock.Now,
		Location: time.UTC,
		NewID: func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		},
		Mirror: mirror,
	})
	if err := svc.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return svc, mirror
}

func TestSessionService_ColdStart(t *testing.T) {
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	st := svc.State()
	if st.IsLoggedIn || st.Session.HasSetDailyIncome || len(st.Transactions) != 0 {
		t.Fatalf("unexpected cold start state: %+v", st)
	}
	if got := st.Session.LastActiveDate.String(); got != "2026-03-10" {
		t.Fatalf("LastActiveDate = %q", got)
	}
	if saveCount(t, store) != 1 {
		t.Fatalf("cold start should persist once, got %d saves", saveCount(t, store))
	}
}

func TestSessionService_DailyFlow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc, mirror := newTestSession(t, store, clock)

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, core.Expense, decimal.NewFromInt(30), " lunch ", ""); err != nil {
		t.Fatalf("RecordTransaction expense: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, core.Debt, decimal.NewFromInt(-20), "", "Ana"); err != nil {
		t.Fatalf("RecordTransaction debt: %v", err)
	}

	st := svc.State()
	if !st.Session.HasSetDailyIncome {
		t.Fatal("income gate should be open")
	}
	if !st.Session.CurrentDailyIncome.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("CurrentDailyIncome = %s", st.Session.CurrentDailyIncome)
	}
	if len(st.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(st.Transactions))
	}
	if st.Transactions[1].Note != "lunch" {
		t.Fatalf("note should be trimmed, got %q", st.Transactions[1].Note)
	}

	totals := svc.TodayTotals()
	if !totals.Net().Equal(decimal.NewFromInt(70)) {
		t.Fatalf("Net = %s, want 70", totals.Net())
	}
	if !totals.Debt.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("Debt = %s, want -20", totals.Debt)
	}
	if mirror.count() != 3 {
		t.Fatalf("expected 3 mirrored transactions, got %d", mirror.count())
	}
	// open + three mutations
	if saveCount(t, store) != 4 {
		t.Fatalf("expected 4 saves, got %d", saveCount(t, store))
	}
}

func TestSessionService_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc, mirror := newTestSession(t, store, clock)

	tests := []struct {
		name   string
		typ    core.TransactionType
		amount decimal.Decimal
		person string
		want   error
	}{
		{"negative expense", core.Expense, decimal.NewFromInt(-5), "", core.ErrNegativeAmount},
		{"zero bill", core.Bill, decimal.Zero, "", core.ErrZeroAmount},
		{"debt without person", core.Debt, decimal.NewFromInt(5), "  ", core.ErrMissingPerson},
		{"income through generic path", core.Income, decimal.NewFromInt(5), "", core.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordTransaction(ctx, tt.typ, tt.amount, "", tt.person)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if len(svc.State().Transactions) != 0 {
		t.Fatal("rejected input must not reach the ledger")
	}
	if mirror.count() != 0 {
		t.Fatal("rejected input must not be mirrored")
	}
	if saveCount(t, store) != 1 {
		t.Fatalf("rejected input must not be saved, got %d saves", saveCount(t, store))
	}
}

func TestSessionService_RolloverAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(80)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}

	// app closed overnight, reopened the next morning
	clock.Set(time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC))
	restarted, _ := newTestSession(t, store, clock)

	st := restarted.State()
	if st.Session.HasSetDailyIncome {
		t.Fatal("income gate should be closed after rollover")
	}
	if !st.Session.CurrentDailyIncome.IsZero() {
		t.Fatalf("CurrentDailyIncome = %s, want 0", st.Session.CurrentDailyIncome)
	}
	if got := st.Session.LastActiveDate.String(); got != "2026-03-11" {
		t.Fatalf("LastActiveDate = %q", got)
	}
	if len(st.Transactions) != 1 {
		t.Fatal("rollover must keep the ledger")
	}
	if len(restarted.TodayTransactions()) != 0 {
		t.Fatal("yesterday's income must not show up today")
	}
}

func TestSessionService_CheckRollover(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	saves := saveCount(t, store)

	rolled, err := svc.CheckRollover(ctx)
	if err != nil || rolled {
		t.Fatalf("same day: rolled=%v err=%v", rolled, err)
	}
	if saveCount(t, store) != saves {
		t.Fatal("a no-op check must not save")
	}

	clock.Set(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC))
	rolled, err = svc.CheckRollover(ctx)
	if err != nil || !rolled {
		t.Fatalf("next day: rolled=%v err=%v", rolled, err)
	}
	if svc.State().Session.HasSetDailyIncome {
		t.Fatal("gate should be closed")
	}

	rolled, _ = svc.CheckRollover(ctx)
	if rolled {
		t.Fatal("second check on the same day must be a no-op")
	}
}

func TestSessionService_MutationReconcilesFirst(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}

	// no timer tick between midnight and this write
	clock.Set(time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC))
	if _, err := svc.RecordTransaction(ctx, core.Expense, decimal.NewFromInt(5), "", ""); !errors.Is(err, ErrIncomeNotSet) {
		t.Fatalf("RecordTransaction err = %v, want ErrIncomeNotSet", err)
	}

	st := svc.State()
	if st.Session.HasSetDailyIncome {
		t.Fatal("the write should have triggered the rollover")
	}
	if got := st.Session.LastActiveDate.String(); got != "2026-03-11" {
		t.Fatalf("LastActiveDate = %q", got)
	}
	if len(st.Transactions) != 1 {
		t.Fatalf("expense must not be recorded under a closed gate, ledger has %d", len(st.Transactions))
	}

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(40)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, core.Expense, decimal.NewFromInt(5), "", ""); err != nil {
		t.Fatalf("RecordTransaction after income: %v", err)
	}
}

func TestSessionService_TransactionNeedsIncome(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, mirror := newTestSession(t, store, clock)

	_, err := svc.RecordTransaction(ctx, core.Bill, decimal.NewFromInt(9), "", "")
	if !errors.Is(err, ErrIncomeNotSet) {
		t.Fatalf("err = %v, want ErrIncomeNotSet", err)
	}
	if len(svc.State().Transactions) != 0 || mirror.count() != 0 {
		t.Fatal("a gated transaction must not reach the ledger or the mirror")
	}
}

func TestSessionService_UpdateIncomeDynamically(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if err := svc.UpdateIncomeDynamically(ctx); err != nil {
		t.Fatalf("UpdateIncomeDynamically: %v", err)
	}
	if svc.State().Session.HasSetDailyIncome {
		t.Fatal("gate should be closed")
	}
	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(60)); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}

	st := svc.State()
	if len(st.Transactions) != 2 {
		t.Fatalf("both income entries stay in the ledger, got %d", len(st.Transactions))
	}
	if !st.Session.CurrentDailyIncome.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("CurrentDailyIncome = %s, want 60", st.Session.CurrentDailyIncome)
	}
	if !svc.TodayTotals().Income.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("today's income = %s, want 110", svc.TodayTotals().Income)
	}
}

func TestSessionService_SetLoggedInPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if err := svc.SetLoggedIn(ctx, true); err != nil {
		t.Fatalf("SetLoggedIn: %v", err)
	}
	saves := saveCount(t, store)
	if err := svc.SetLoggedIn(ctx, true); err != nil {
		t.Fatalf("SetLoggedIn: %v", err)
	}
	if saveCount(t, store) != saves {
		t.Fatal("unchanged flag must not save")
	}

	restarted, _ := newTestSession(t, store, clock)
	if !restarted.State().IsLoggedIn {
		t.Fatal("login flag should survive a restart")
	}
}

func TestSessionService_SaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	gw := &flakyGateway{Gateway: storage.NewGateway(storage.NewMemoryStore(), nil)}
	svc := NewSessionService(gw, SessionOptions{Now: clock.Now, Location: time.UTC})
	if err := svc.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	gw.saveErr = errors.New("disk full")
	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("a failed save must not fail the mutation: %v", err)
	}
	if svc.LastSaveError() == nil {
		t.Fatal("LastSaveError should report the failure")
	}
	if len(svc.State().Transactions) != 1 {
		t.Fatal("in-memory state should keep the entry")
	}

	gw.saveErr = nil
	if _, err := svc.RecordTransaction(ctx, core.Bill, decimal.NewFromInt(3), "", ""); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if svc.LastSaveError() != nil {
		t.Fatalf("LastSaveError should clear, got %v", svc.LastSaveError())
	}
	st, ok, err := gw.Gateway.Load(ctx)
	if err != nil || !ok || len(st.Transactions) != 2 {
		t.Fatalf("next save should carry both entries: ok=%v err=%v n=%d", ok, err, len(st.Transactions))
	}
}

func TestSessionService_OpenFailsOnStoreError(t *testing.T) {
	gw := &flakyGateway{
		Gateway: storage.NewGateway(storage.NewMemoryStore(), nil),
		loadErr: errors.New("permission denied"),
	}
	svc := NewSessionService(gw, SessionOptions{})
	if err := svc.Open(context.Background()); err == nil {
		t.Fatal("expected Open to fail")
	}
	if _, err := svc.RecordIncome(context.Background(), decimal.NewFromInt(1)); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestSessionService_CorruptSnapshotStartsFresh(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Save(context.Background(), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, store, clock)

	if len(svc.State().Transactions) != 0 {
		t.Fatal("corrupt snapshot should yield an empty ledger")
	}
	if got := svc.Today().String(); got != "2026-03-10" {
		t.Fatalf("Today = %q", got)
	}
}

func TestSessionService_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestSession(t, storage.NewMemoryStore(), clock)
	if _, err := svc.RecordIncome(ctx, decimal.NewFromInt(10)); err != nil {
		t.Fatal(err)
	}

	st := svc.State()
	st.Transactions[0].Note = "mutated"
	if svc.State().Transactions[0].Note == "mutated" {
		t.Fatal("State must not expose internal storage")
	}
}

func TestSessionService_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc := NewSessionService(storage.NewGateway(storage.NewMemoryStore(), nil), SessionOptions{Now: clock.Now, Location: time.UTC})
	if err := svc.Open(ctx); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordTransaction(ctx, core.Expense, decimal.NewFromInt(1), "", ""); err != nil {
				t.Errorf("RecordTransaction: %v", err)
			}
			_, _ = svc.CheckRollover(ctx)
		}()
	}
	wg.Wait()

	if n := len(svc.State().Transactions); n != 20 {
		t.Fatalf("expected 20 entries, got %d", n)
	}
}
