package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dailyledger/internal/log"
)

type brokenStore struct{ err error }

func (b brokenStore) Load(ctx context.Context) ([]byte, error) { return nil, b.err }
func (b brokenStore) Save(ctx context.Context, data []byte) error { return b.err }

func TestGatewayAbsentWhenEmpty(t *testing.T) {
	g := NewGateway(NewMemoryStore(), log.Discard())
	_, ok, err := g.Load(context.Background())
	if ok || err != nil {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}
}

func TestGatewayCorruptIsAbsent(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(context.Background(), []byte(`{"transactions":"oops"}`))
	g := NewGateway(store, log.Discard())
	_, ok, err := g.Load(context.Background())
	if ok || err != nil {
		t.Fatalf("corrupt snapshot must read as absent, got ok=%v err=%v", ok, err)
	}
}

func TestGatewayReadFailureIsReported(t *testing.T) {
	boom := errors.New("disk on fire")
	g := NewGateway(brokenStore{err: boom}, log.Discard())
	if _, _, err := g.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
	if err := g.Save(context.Background(), sampleState()); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestGatewaySaveThenLoad(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)
	if err := g.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, ok, err := g.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(s.Transactions) != 2 || !s.Session.HasSetDailyIncome {
		t.Fatalf("loaded = %+v", s)
	}
}

func TestGatewaySaves(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore(), nil)
	for i := 0; i < 2; i++ {
		if err := g.Save(ctx, sampleState()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if n, ok, err := g.Saves(ctx); err != nil || !ok || n != 2 {
		t.Fatalf("Saves = %d, %v, %v", n, ok, err)
	}

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, ok, err := NewGateway(fs, nil).Saves(ctx); ok || err != nil {
		t.Fatalf("file store keeps no count, got ok=%v err=%v", ok, err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := fs.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := fs.Save(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Save(ctx, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := fs.Load(ctx)
	if err != nil || string(got) != `{"a":2}` {
		t.Fatalf("load = %q, %v", got, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileStoreEmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	fs, _ := NewFileStore(path)
	if _, err := fs.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	g := NewGateway(store, log.Discard())
	for i := 0; i < 3; i++ {
		if err := g.Save(ctx, sampleState()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	s, ok, err := g.Load(ctx)
	if err != nil || !ok || len(s.Transactions) != 2 {
		t.Fatalf("load: ok=%v err=%v state=%+v", ok, err, s)
	}
	n, ok, err := g.Saves(ctx)
	if err != nil || !ok || n != 3 {
		t.Fatalf("saves = %d, %v, %v", n, ok, err)
	}
}
